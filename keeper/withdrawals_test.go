package keeper_test

import (
	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/keeper"
	"github.com/strandlabs/vault/strategy"
	"github.com/strandlabs/vault/testutil"
	"github.com/strandlabs/vault/types"
)

const withdrawalDelay = 3_600

// setupDelayedVault creates a funded vault with a withdrawal delay and a
// 1000 share position for the depositor.
func (s *TestSuite) setupDelayedVault() {
	v := types.NewVaultState(shareDenom, admin, underlyingDenom, types.GuardMinimumDeposit)
	v.MinDeposit = sdkmath.NewInt(1)
	v.WithdrawalDelaySeconds = withdrawalDelay
	src := strategy.NewLedgerSource(s.ledger, custody, underlyingDenom)
	s.Require().NoError(s.k.CreateVault(s.ctx, v, src))
	s.ledger.Mint(depositor, underlyingDenom, sdkmath.NewInt(10_000))
	s.requireDeposit(depositor, 1_000)
}

func (s *TestSuite) TestRequestWithdrawalEscrowsShares() {
	s.setupDelayedVault()

	id, err := s.k.RequestWithdrawal(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(400), 1_000)
	s.Require().NoError(err, "withdrawal request should succeed")

	s.assertShareBalance(depositor, 600)
	s.assertShareBalance(types.EscrowOwner(shareDenom), 400)
	s.assertVaultCounters(1_000, 1_000)

	payoutTime, req, err := s.k.PendingWithdrawalQueue.GetByID(s.ctx, id)
	s.Require().NoError(err, "queued request should be retrievable by id")
	s.Assert().Equal(int64(1_000+withdrawalDelay), payoutTime, "payout is deferred by the configured delay")
	s.Assert().Equal(sdkmath.NewInt(400).String(), req.Assets.String(), "payout is fixed at the request-time rate")

	requested := s.events.OfType(types.EventTypeWithdrawalRequested)
	s.Require().Len(requested, 1)
	s.Assert().Equal("400", testutil.Attribute(requested[0], types.AttributeKeyShares))
}

func (s *TestSuite) TestProcessDueWithdrawalsSettles() {
	s.setupDelayedVault()

	_, err := s.k.RequestWithdrawal(s.ctx, shareDenom, depositor, receiver, sdkmath.NewInt(400), 1_000)
	s.Require().NoError(err)

	// Not due yet.
	s.Require().NoError(s.k.ProcessDueWithdrawals(s.ctx, 1_000))
	s.assertShareBalance(types.EscrowOwner(shareDenom), 400)
	s.assertLedgerBalance(receiver, 0)

	s.Require().NoError(s.k.ProcessDueWithdrawals(s.ctx, 1_000+withdrawalDelay))
	s.assertShareBalance(types.EscrowOwner(shareDenom), 0)
	s.assertLedgerBalance(receiver, 400)
	s.assertVaultCounters(600, 600)
	s.assertConservation()
	s.Require().Len(s.events.OfType(types.EventTypeWithdrawalSettled), 1)
}

func (s *TestSuite) TestYieldDuringDelayAccruesToRemainingHolders() {
	s.setupDelayedVault()

	_, err := s.k.RequestWithdrawal(s.ctx, shareDenom, depositor, receiver, sdkmath.NewInt(500), 0)
	s.Require().NoError(err)

	// Yield lands while the request waits; the payout stays fixed.
	s.ledger.Mint(custody, underlyingDenom, sdkmath.NewInt(200))
	_, err = s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err)

	s.Require().NoError(s.k.ProcessDueWithdrawals(s.ctx, withdrawalDelay))
	s.assertLedgerBalance(receiver, 500)
	s.assertVaultCounters(700, 500)

	// The remaining 500 shares now back 700 assets.
	assets, err := s.k.ConvertToAssets(s.ctx, shareDenom, sdkmath.NewInt(500))
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(700).String(), assets.String(), "waiting-period yield belongs to the remaining holders")
}

func (s *TestSuite) TestHaltedRequestsRefund() {
	s.setupDelayedVault()

	_, err := s.k.RequestWithdrawal(s.ctx, shareDenom, depositor, receiver, sdkmath.NewInt(400), 0)
	s.Require().NoError(err)

	// Total loss before settlement.
	s.Require().NoError(s.ledger.Transfer(custody, "thief", underlyingDenom, sdkmath.NewInt(1_000)))
	_, err = s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err)

	s.Require().NoError(s.k.ProcessDueWithdrawals(s.ctx, withdrawalDelay))

	s.assertShareBalance(depositor, 1_000)
	s.assertShareBalance(types.EscrowOwner(shareDenom), 0)
	s.assertLedgerBalance(receiver, 0)

	refunded := s.events.OfType(types.EventTypeWithdrawalRefunded)
	s.Require().Len(refunded, 1)
	s.Assert().Equal(keeper.RefundReasonHalted, testutil.Attribute(refunded[0], "reason"))
}

func (s *TestSuite) TestExpediteWithdrawal() {
	s.setupDelayedVault()

	id, err := s.k.RequestWithdrawal(s.ctx, shareDenom, depositor, receiver, sdkmath.NewInt(100), 1_000)
	s.Require().NoError(err)

	err = s.k.ExpediteWithdrawal(s.ctx, shareDenom, depositor, id)
	s.Require().Error(err, "only the admin may expedite")
	s.Assert().ErrorIs(err, types.ErrUnauthorized)

	s.Require().NoError(s.k.ExpediteWithdrawal(s.ctx, shareDenom, admin, id))
	s.Require().NoError(s.k.ProcessDueWithdrawals(s.ctx, 1_000))
	s.assertLedgerBalance(receiver, 100)
}

func (s *TestSuite) TestRequestWithdrawalRejectsExcessShares() {
	s.setupDelayedVault()

	_, err := s.k.RequestWithdrawal(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(1_001), 0)
	s.Require().Error(err)
	s.Assert().ErrorIs(err, types.ErrInsufficientShares)
	s.assertShareBalance(depositor, 1_000)
}
