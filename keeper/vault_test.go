package keeper_test

import (
	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/testutil"
	"github.com/strandlabs/vault/types"
)

// seedExchangeRate drives the vault to a 100:1 asset/share ratio: a 10 unit
// bootstrap deposit followed by a harvested donation up to 1000 assets.
func (s *TestSuite) seedExchangeRate() {
	s.setupBaseVault(types.GuardMinimumDeposit, 1_000_000)
	v, err := s.k.GetVault(s.ctx, shareDenom)
	s.Require().NoError(err)
	v.MinDeposit = sdkmath.NewInt(1)
	s.Require().NoError(s.k.InitGenesis(s.ctx, &types.GenesisState{Vaults: []types.VaultState{v}}))

	s.requireDeposit(depositor, 10)
	s.ledger.Mint(custody, underlyingDenom, sdkmath.NewInt(990))
	_, err = s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err, "harvest should succeed")
	s.assertVaultCounters(1_000, 10)
}

func (s *TestSuite) TestCreateVault() {
	v := s.setupBaseVault(types.GuardMinimumDeposit, 0)

	err := s.k.CreateVault(s.ctx, v, nil)
	s.Require().Error(err, "duplicate vault id should be rejected")
	s.Assert().ErrorIs(err, types.ErrVaultExists)

	bad := types.NewVaultState("othershare", admin, underlyingDenom, types.GuardMinimumDeposit)
	bad.TotalAssets = sdkmath.NewInt(5)
	bad.MinDeposit = sdkmath.NewInt(1)
	err = s.k.CreateVault(s.ctx, bad, nil)
	s.Require().Error(err, "non-zero counters should be rejected")

	created := s.events.OfType(types.EventTypeVaultCreated)
	s.Require().Len(created, 1, "exactly one creation event expected")
	s.Assert().Equal(shareDenom, testutil.Attribute(created[0], types.AttributeKeyVault))
}

func (s *TestSuite) TestBootstrapDepositIsOneToOne() {
	s.setupBaseVault(types.GuardMinimumDeposit, 10_000)

	shares := s.requireDeposit(depositor, 1_000)
	s.Assert().Equal(sdkmath.NewInt(1_000).String(), shares.String(), "first deposit must mint shares 1:1")

	s.assertVaultCounters(1_000, 1_000)
	s.assertShareBalance(depositor, 1_000)
	s.assertLedgerBalance(custody, 1_000)
	s.assertLedgerBalance(depositor, 9_000)
	s.assertConservation()
}

func (s *TestSuite) TestDepositRoundsDown() {
	s.seedExchangeRate()
	// 150 assets at 100:1 is 1.5 shares, floored to 1.
	shares, err := s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(150))
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(1).String(), shares.String(), "deposit must round shares down")
	s.assertVaultCounters(1_150, 11)
}

func (s *TestSuite) TestDepositRejectsZeroShares() {
	s.seedExchangeRate()
	// 50 assets at 100:1 floors to zero shares.
	_, err := s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(50))
	s.Require().Error(err, "a deposit worth zero shares must be rejected")
	s.Assert().ErrorIs(err, types.ErrZeroShares)
	s.assertVaultCounters(1_000, 10)
}

func (s *TestSuite) TestMintRoundsAssetsUp() {
	s.seedExchangeRate()
	s.ledger.Mint(custody, underlyingDenom, sdkmath.NewInt(5))
	_, err := s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err)
	s.assertVaultCounters(1_005, 10)

	// 1 share at 100.5 assets/share costs ceil(100.5) = 101.
	assets, err := s.k.Mint(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(1))
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(101).String(), assets.String(), "mint must round the asset cost up")
	s.assertVaultCounters(1_106, 11)
}

func (s *TestSuite) TestWithdrawRoundsSharesUp() {
	s.seedExchangeRate()
	// 150 assets at 100:1 burns ceil(1.5) = 2 shares.
	shares, err := s.k.Withdraw(s.ctx, shareDenom, depositor, depositor, depositor, sdkmath.NewInt(150))
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(2).String(), shares.String(), "withdraw must round shares burned up")
	s.assertVaultCounters(850, 8)
	s.assertLedgerBalance(depositor, 1_000_140)
	s.assertConservation()
}

func (s *TestSuite) TestRedeemRoundsAssetsDown() {
	s.seedExchangeRate()
	s.ledger.Mint(custody, underlyingDenom, sdkmath.NewInt(5))
	_, err := s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err)

	// 1 share at 100.5 assets/share pays floor(100.5) = 100.
	assets, err := s.k.Redeem(s.ctx, shareDenom, depositor, depositor, depositor, sdkmath.NewInt(1))
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(100).String(), assets.String(), "redeem must round assets down")
	s.assertVaultCounters(905, 9)
}

func (s *TestSuite) TestRoundTripNeverProfits() {
	s.seedExchangeRate()
	before := s.ledger.BalanceOf(depositor, underlyingDenom)

	shares, err := s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(199))
	s.Require().NoError(err)
	assets, err := s.k.Redeem(s.ctx, shareDenom, depositor, depositor, depositor, shares)
	s.Require().NoError(err)

	after := s.ledger.BalanceOf(depositor, underlyingDenom)
	s.Assert().True(after.LTE(before), "deposit then redeem must never profit: %s -> %s", before, after)
	s.Assert().True(assets.LTE(sdkmath.NewInt(199)), "redeemed %s for a 199 deposit", assets)
}

func (s *TestSuite) TestPreviewParity() {
	s.seedExchangeRate()

	for _, amount := range []int64{101, 150, 199, 250, 999} {
		previewShares, err := s.k.PreviewDeposit(s.ctx, shareDenom, sdkmath.NewInt(amount))
		s.Require().NoError(err, "preview deposit of %d", amount)
		shares, err := s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(amount))
		s.Require().NoError(err, "deposit of %d", amount)
		s.Assert().Equal(previewShares.String(), shares.String(), "preview and deposit must agree for %d", amount)

		previewAssets, err := s.k.PreviewRedeem(s.ctx, shareDenom, shares)
		s.Require().NoError(err, "preview redeem of %s", shares)
		assets, err := s.k.Redeem(s.ctx, shareDenom, depositor, depositor, depositor, shares)
		s.Require().NoError(err, "redeem of %s", shares)
		s.Assert().Equal(previewAssets.String(), assets.String(), "preview and redeem must agree for %s", shares)
	}

	previewAssets, err := s.k.PreviewMint(s.ctx, shareDenom, sdkmath.NewInt(3))
	s.Require().NoError(err)
	assets, err := s.k.Mint(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(3))
	s.Require().NoError(err)
	s.Assert().Equal(previewAssets.String(), assets.String(), "preview and mint must agree")

	previewShares, err := s.k.PreviewWithdraw(s.ctx, shareDenom, sdkmath.NewInt(77))
	s.Require().NoError(err)
	shares, err := s.k.Withdraw(s.ctx, shareDenom, depositor, depositor, depositor, sdkmath.NewInt(77))
	s.Require().NoError(err)
	s.Assert().Equal(previewShares.String(), shares.String(), "preview and withdraw must agree")
}

func (s *TestSuite) TestYieldAccruesToShareValue() {
	s.setupBaseVault(types.GuardMinimumDeposit, 10_000)
	s.requireDeposit(depositor, 1_000)

	s.ledger.Mint(custody, underlyingDenom, sdkmath.NewInt(100))
	_, err := s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err)
	s.assertVaultCounters(1_100, 1_000)

	assets, err := s.k.ConvertToAssets(s.ctx, shareDenom, sdkmath.NewInt(100))
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(110).String(), assets.String(), "100 shares should be worth 110 after ten percent yield")

	s.ledger.Mint(custody, underlyingDenom, sdkmath.NewInt(110))
	_, err = s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err)
	s.assertVaultCounters(1_210, 1_000)

	assets, err = s.k.ConvertToAssets(s.ctx, shareDenom, sdkmath.NewInt(100))
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(121).String(), assets.String(), "yield compounds into the exchange rate")
}

func (s *TestSuite) TestZeroAssetsFaultAndRecovery() {
	s.setupBaseVault(types.GuardMinimumDeposit, 10_000)
	s.requireDeposit(depositor, 1_000)

	// Custody is drained externally; the next harvest reports zero.
	s.Require().NoError(s.ledger.Transfer(custody, "thief", underlyingDenom, sdkmath.NewInt(1_000)))
	_, err := s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err, "harvest of a total loss still succeeds")

	v, err := s.k.GetVault(s.ctx, shareDenom)
	s.Require().NoError(err)
	s.Assert().True(v.Halted, "zero assets with supply outstanding must halt the vault")
	s.Require().Len(s.events.OfType(types.EventTypeVaultHalted), 1)

	shares, err := s.k.ConvertToShares(s.ctx, shareDenom, sdkmath.NewInt(100))
	s.Require().NoError(err)
	s.Assert().True(shares.IsZero(), "conversions return zero while faulted")

	_, err = s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(100))
	s.Require().Error(err, "deposits must not resume at 1:1 after a fault")
	s.Assert().ErrorIs(err, types.ErrVaultHalted)

	_, err = s.k.Withdraw(s.ctx, shareDenom, depositor, depositor, depositor, sdkmath.NewInt(100))
	s.Require().Error(err, "an exact-asset withdrawal is impossible while faulted")
	s.Assert().ErrorIs(err, types.ErrVaultHalted)

	// Redemption stays open as the formal exit: shares burn for nothing.
	assets, err := s.k.Redeem(s.ctx, shareDenom, depositor, depositor, depositor, sdkmath.NewInt(400))
	s.Require().NoError(err, "redeem is the formal exit from the fault state")
	s.Assert().True(assets.IsZero(), "faulted redemption pays nothing")
	s.assertVaultCounters(0, 600)
	s.assertConservation()

	// Only the admin can recover.
	s.ledger.Mint(depositor, underlyingDenom, sdkmath.NewInt(300))
	err = s.k.Recover(s.ctx, shareDenom, depositor, sdkmath.NewInt(300))
	s.Require().Error(err)
	s.Assert().ErrorIs(err, types.ErrUnauthorized)

	s.ledger.Mint(admin, underlyingDenom, sdkmath.NewInt(300))
	s.Require().NoError(s.k.Recover(s.ctx, shareDenom, admin, sdkmath.NewInt(300)), "admin recovery should succeed")
	s.assertVaultCounters(300, 600)

	// Pricing resumes at newAssets/totalShares, not 1:1.
	assets, err = s.k.ConvertToAssets(s.ctx, shareDenom, sdkmath.NewInt(200))
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(100).String(), assets.String(), "recovered pricing is proportional to the new assets")
}

func (s *TestSuite) TestMinimumDepositGuard() {
	s.setupBaseVault(types.GuardMinimumDeposit, 10_000)

	_, err := s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(999))
	s.Require().Error(err, "genesis deposit below the floor must be rejected")
	s.Assert().ErrorIs(err, types.ErrBelowMinimumDeposit)

	s.requireDeposit(depositor, 1_000)

	// The floor only applies to the genesis deposit.
	_, err = s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(5))
	s.Require().NoError(err, "later deposits are not bound by the genesis floor")
}

func (s *TestSuite) TestDeadSharesGuard() {
	s.setupBaseVault(types.GuardDeadShares, 100_000)

	_, err := s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(1_000))
	s.Require().Error(err, "first deposit must exceed the dead share quantity")
	s.Assert().ErrorIs(err, types.ErrBelowMinimumDeposit)

	shares := s.requireDeposit(depositor, 10_000)
	s.Assert().Equal(sdkmath.NewInt(9_000).String(), shares.String(), "dead shares come out of the first deposit")
	s.assertShareBalance(types.DeadShareOwner, 1_000)
	s.assertVaultCounters(10_000, 10_000)
	s.assertConservation()

	// The sink can never be drained.
	err = s.k.Transfer(s.ctx, shareDenom, depositor, types.DeadShareOwner, sdkmath.NewInt(1))
	s.Require().Error(err, "transfers into the sink are rejected")
}

func (s *TestSuite) TestVirtualOffsetGuardBluntsInflation() {
	s.setupBaseVault(types.GuardVirtualOffset, 1_000_000)

	// Attacker front-runs with a dust deposit and a large donation.
	attackerShares, err := s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(1))
	s.Require().NoError(err, "dust deposit should succeed under the offset guard")
	s.Assert().Equal(sdkmath.NewInt(1_000).String(), attackerShares.String(), "offset 3 scales the dust deposit by 10^3")

	s.ledger.Mint(custody, underlyingDenom, sdkmath.NewInt(10_000))
	_, err = s.k.Harvest(s.ctx, shareDenom, admin)
	s.Require().NoError(err)

	// The victim's deposit still mints a meaningful share count.
	victimShares, err := s.k.Deposit(s.ctx, shareDenom, depositor, receiver, sdkmath.NewInt(5_000))
	s.Require().NoError(err)
	s.Assert().True(victimShares.IsPositive(), "victim must not be rounded to zero shares")

	// The attacker cannot redeem more than the donation cost them.
	attackerAssets, err := s.k.PreviewRedeem(s.ctx, shareDenom, attackerShares)
	s.Require().NoError(err)
	s.Assert().True(attackerAssets.LTE(sdkmath.NewInt(10_001)), "attacker redeems at most their total outlay, got %s", attackerAssets)
}

func (s *TestSuite) TestDepositRollbackOnTransferFailure() {
	v := types.NewVaultState(shareDenom, admin, underlyingDenom, types.GuardMinimumDeposit)
	v.MinDeposit = sdkmath.NewInt(1)
	s.Require().NoError(s.k.CreateVault(s.ctx, v, &failingSource{total: sdkmath.ZeroInt()}))

	_, err := s.k.Deposit(s.ctx, shareDenom, depositor, depositor, sdkmath.NewInt(1_000))
	s.Require().Error(err, "deposit must fail when the transfer is rejected")
	s.Assert().ErrorIs(err, types.ErrTransferFailed)

	s.assertVaultCounters(0, 0)
	s.assertShareBalance(depositor, 0)
	s.Assert().Empty(s.events.OfType(types.EventTypeDeposit), "no deposit event after a rollback")
}

func (s *TestSuite) TestWithdrawRollbackOnTransferFailure() {
	s.setupBaseVault(types.GuardMinimumDeposit, 10_000)
	s.requireDeposit(depositor, 1_000)

	// Swap the custody backend for one that rejects payouts.
	s.k.RegisterAssetSource(shareDenom, &failingSource{total: sdkmath.NewInt(1_000)})

	_, err := s.k.Withdraw(s.ctx, shareDenom, depositor, depositor, depositor, sdkmath.NewInt(500))
	s.Require().Error(err)
	s.Assert().ErrorIs(err, types.ErrTransferFailed)

	s.assertVaultCounters(1_000, 1_000)
	s.assertShareBalance(depositor, 1_000)
	s.assertConservation()
}

func (s *TestSuite) TestOperatorWithdrawSpendsAllowance() {
	s.setupBaseVault(types.GuardMinimumDeposit, 10_000)
	s.requireDeposit(depositor, 1_000)

	_, err := s.k.Withdraw(s.ctx, shareDenom, "operator", receiver, depositor, sdkmath.NewInt(400))
	s.Require().Error(err, "operator without allowance must be rejected")
	s.Assert().ErrorIs(err, types.ErrInsufficientAllowance)

	s.Require().NoError(s.k.Approve(s.ctx, shareDenom, depositor, "operator", sdkmath.NewInt(500)))

	shares, err := s.k.Withdraw(s.ctx, shareDenom, "operator", receiver, depositor, sdkmath.NewInt(400))
	s.Require().NoError(err, "operator withdrawal within allowance should succeed")
	s.Assert().Equal(sdkmath.NewInt(400).String(), shares.String())
	s.assertLedgerBalance(receiver, 400)

	remaining, err := s.k.Allowance(s.ctx, shareDenom, depositor, "operator")
	s.Require().NoError(err)
	s.Assert().Equal(sdkmath.NewInt(100).String(), remaining.String(), "allowance is spent share for share")
}

func (s *TestSuite) TestWithdrawExceedingTotalAssets() {
	s.setupBaseVault(types.GuardMinimumDeposit, 10_000)
	s.requireDeposit(depositor, 1_000)

	_, err := s.k.Withdraw(s.ctx, shareDenom, depositor, depositor, depositor, sdkmath.NewInt(1_001))
	s.Require().Error(err)
	s.Assert().ErrorIs(err, types.ErrInsufficientFunds)
}

func (s *TestSuite) TestRedeemMoreThanBalance() {
	s.setupBaseVault(types.GuardMinimumDeposit, 10_000)
	s.requireDeposit(depositor, 1_000)

	_, err := s.k.Redeem(s.ctx, shareDenom, depositor, depositor, depositor, sdkmath.NewInt(1_001))
	s.Require().Error(err)
	s.Assert().ErrorIs(err, types.ErrInsufficientShares)
	s.assertVaultCounters(1_000, 1_000)
}

func (s *TestSuite) TestUnknownVault() {
	_, err := s.k.Deposit(s.ctx, "missing", depositor, depositor, sdkmath.NewInt(100))
	s.Require().Error(err)
	s.Assert().ErrorIs(err, types.ErrVaultNotFound)
}
