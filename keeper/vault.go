package keeper

import (
	"context"
	"errors"

	"cosmossdk.io/collections"
	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/types"
	"github.com/strandlabs/vault/utils"
)

// CreateVault validates and stores a new vault record and binds its asset
// source. The record must carry zeroed counters; non-zero state only enters
// through genesis import.
func (k *Keeper) CreateVault(ctx context.Context, v types.VaultState, src types.AssetSource) error {
	if err := v.Validate(); err != nil {
		return types.ErrInvalidRequest.Wrap(err.Error())
	}
	if !v.TotalAssets.IsZero() || !v.TotalShares.IsZero() {
		return types.ErrInvalidRequest.Wrap("new vaults must start with zero counters")
	}

	unlock := k.lockVault(v.Id)
	defer unlock()

	if ok, err := k.Vaults.Has(ctx, v.Id); err != nil {
		return err
	} else if ok {
		return types.ErrVaultExists.Wrap(v.Id)
	}
	if err := k.Vaults.Set(ctx, v.Id, v); err != nil {
		return err
	}
	if src != nil {
		k.RegisterAssetSource(v.Id, src)
	}

	k.emitEvent(ctx, types.NewEventVaultCreated(v))
	return nil
}

// GetVault finds a vault by id.
func (k *Keeper) GetVault(ctx context.Context, vaultID string) (types.VaultState, error) {
	v, err := k.Vaults.Get(ctx, vaultID)
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return types.VaultState{}, types.ErrVaultNotFound.Wrap(vaultID)
		}
		return types.VaultState{}, err
	}
	return v, nil
}

// setVault validates and persists a vault record.
func (k *Keeper) setVault(ctx context.Context, v types.VaultState) error {
	if err := v.Validate(); err != nil {
		return types.ErrInvalidRequest.Wrap(err.Error())
	}
	return k.Vaults.Set(ctx, v.Id, v)
}

// effectiveOffset returns the virtual offset applied to conversions: the
// configured decimals offset under the virtual-offset policy, zero otherwise.
func effectiveOffset(v types.VaultState) uint8 {
	if v.GuardPolicy == types.GuardVirtualOffset {
		return v.DecimalsOffset
	}
	return 0
}

// halted reports whether the vault is in (or flagged for) the post-loss
// fault state. Genesis may import a faulted record without the flag set.
func halted(v types.VaultState) bool {
	return v.Halted || v.IsFaulted()
}

// maybeHalt flags the fault state when an operation drives total assets to
// zero with supply outstanding. The caller persists the record.
func (k *Keeper) maybeHalt(ctx context.Context, v *types.VaultState) {
	if v.Halted || !v.IsFaulted() {
		return
	}
	v.Halted = true
	k.logger.Error("vault entered halted state", "vault", v.Id, "total_shares", v.TotalShares.String())
	k.emitEvent(ctx, types.NewEventVaultHalted(v.Id, v.TotalShares))
}

// depositQuote is the resolved outcome of a deposit or mint before any
// state is touched.
type depositQuote struct {
	// assets is the exact amount the depositor pays.
	assets sdkmath.Int
	// receiverShares is what the receiver is credited.
	receiverShares sdkmath.Int
	// deadShares is the genesis quantity minted to the sink owner, zero
	// outside the dead-shares policy's first deposit.
	deadShares sdkmath.Int
	// totalMinted is receiverShares + deadShares, the supply delta.
	totalMinted sdkmath.Int
}

// quoteDeposit resolves deposit(assets): exact assets in, shares out,
// rounded down so the vault keeps any residual value.
func quoteDeposit(v types.VaultState, assets sdkmath.Int) (depositQuote, error) {
	if assets.IsNil() || !assets.IsPositive() {
		return depositQuote{}, types.ErrZeroAssets.Wrap("deposit amount must be positive")
	}
	if !v.DepositsEnabled {
		return depositQuote{}, types.ErrDepositsDisabled.Wrap(v.Id)
	}
	if halted(v) {
		return depositQuote{}, types.ErrVaultHalted.Wrap(v.Id)
	}
	if v.GuardPolicy == types.GuardMinimumDeposit && v.TotalShares.IsZero() && assets.LT(v.MinDeposit) {
		return depositQuote{}, types.ErrBelowMinimumDeposit.Wrapf("deposit %s is below genesis minimum %s", assets, v.MinDeposit)
	}

	shares, err := utils.ConvertToShares(assets, v.TotalAssets, v.TotalShares, effectiveOffset(v), utils.RoundDown)
	if err != nil {
		return depositQuote{}, err
	}

	quote := depositQuote{
		assets:         assets,
		receiverShares: shares,
		deadShares:     sdkmath.ZeroInt(),
		totalMinted:    shares,
	}
	if v.GuardPolicy == types.GuardDeadShares && v.TotalShares.IsZero() {
		if shares.LTE(v.DeadShares) {
			return depositQuote{}, types.ErrBelowMinimumDeposit.Wrapf("first deposit mints %s shares, must exceed %s dead shares", shares, v.DeadShares)
		}
		quote.deadShares = v.DeadShares
		quote.receiverShares = shares.Sub(v.DeadShares)
	}
	if !quote.receiverShares.IsPositive() {
		return depositQuote{}, types.ErrZeroShares.Wrapf("deposit of %s converts to zero shares", assets)
	}
	return quote, nil
}

// quoteMint resolves mint(shares): exact shares out, assets required,
// rounded up so the vault is never underpaid. Under the dead-shares policy
// the first minter also funds the sink quantity.
func quoteMint(v types.VaultState, shares sdkmath.Int) (depositQuote, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return depositQuote{}, types.ErrZeroShares.Wrap("mint amount must be positive")
	}
	if !v.DepositsEnabled {
		return depositQuote{}, types.ErrDepositsDisabled.Wrap(v.Id)
	}
	if halted(v) {
		return depositQuote{}, types.ErrVaultHalted.Wrap(v.Id)
	}

	quote := depositQuote{
		receiverShares: shares,
		deadShares:     sdkmath.ZeroInt(),
		totalMinted:    shares,
	}
	if v.GuardPolicy == types.GuardDeadShares && v.TotalShares.IsZero() {
		quote.deadShares = v.DeadShares
		quote.totalMinted = shares.Add(v.DeadShares)
	}

	assets, err := utils.ConvertToAssets(quote.totalMinted, v.TotalAssets, v.TotalShares, effectiveOffset(v), utils.RoundUp)
	if err != nil {
		return depositQuote{}, err
	}
	if !assets.IsPositive() {
		return depositQuote{}, types.ErrZeroAssets.Wrapf("mint of %s shares requires zero assets", shares)
	}
	if v.GuardPolicy == types.GuardMinimumDeposit && v.TotalShares.IsZero() && assets.LT(v.MinDeposit) {
		return depositQuote{}, types.ErrBelowMinimumDeposit.Wrapf("mint cost %s is below genesis minimum %s", assets, v.MinDeposit)
	}
	quote.assets = assets
	return quote, nil
}

// quoteWithdraw resolves withdraw(assets): exact assets out, shares burned,
// rounded up so the vault keeps more per redemption.
func quoteWithdraw(v types.VaultState, assets sdkmath.Int) (sdkmath.Int, error) {
	if assets.IsNil() || !assets.IsPositive() {
		return sdkmath.Int{}, types.ErrZeroAssets.Wrap("withdraw amount must be positive")
	}
	if !v.WithdrawalsEnabled {
		return sdkmath.Int{}, types.ErrWithdrawalsDisabled.Wrap(v.Id)
	}
	if halted(v) {
		return sdkmath.Int{}, types.ErrVaultHalted.Wrap(v.Id)
	}
	if assets.GT(v.TotalAssets) {
		return sdkmath.Int{}, types.ErrInsufficientFunds.Wrapf("vault holds %s, withdraw wants %s", v.TotalAssets, assets)
	}

	shares, err := utils.ConvertToShares(assets, v.TotalAssets, v.TotalShares, effectiveOffset(v), utils.RoundUp)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !shares.IsPositive() {
		return sdkmath.Int{}, types.ErrZeroShares.Wrapf("withdraw of %s converts to zero shares", assets)
	}
	return shares, nil
}

// quoteRedeem resolves redeem(shares): exact shares in, assets out, rounded
// down. A halted vault quotes zero assets; redemption there is the formal
// exit that burns shares for nothing.
func quoteRedeem(v types.VaultState, shares sdkmath.Int) (sdkmath.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.Int{}, types.ErrZeroShares.Wrap("redeem amount must be positive")
	}
	if halted(v) {
		return sdkmath.ZeroInt(), nil
	}
	if !v.WithdrawalsEnabled {
		return sdkmath.Int{}, types.ErrWithdrawalsDisabled.Wrap(v.Id)
	}

	assets, err := utils.ConvertToAssets(shares, v.TotalAssets, v.TotalShares, effectiveOffset(v), utils.RoundDown)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !assets.IsPositive() {
		return sdkmath.Int{}, types.ErrZeroAssets.Wrapf("redeem of %s shares is too small and results in zero assets", shares)
	}
	return assets, nil
}

// Deposit exchanges an exact asset amount for newly minted shares, rounded
// down. Side effects run validate → counters and ledger → external
// transfer; a failed transfer rolls the internal writes back so counters
// never diverge from custody.
func (k *Keeper) Deposit(ctx context.Context, vaultID, depositor, receiver string, assets sdkmath.Int) (sdkmath.Int, error) {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	quote, err := quoteDeposit(v, assets)
	if err != nil {
		return sdkmath.Int{}, err
	}
	src, err := k.assetSource(vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}

	restore, err := k.snapshot(ctx, v, receiver, types.DeadShareOwner)
	if err != nil {
		return sdkmath.Int{}, err
	}

	if err := k.mintShares(ctx, vaultID, receiver, quote.receiverShares); err != nil {
		return sdkmath.Int{}, err
	}
	if quote.deadShares.IsPositive() {
		if err := k.mintShares(ctx, vaultID, types.DeadShareOwner, quote.deadShares); err != nil {
			restore(ctx)
			return sdkmath.Int{}, err
		}
	}
	v.TotalShares = v.TotalShares.Add(quote.totalMinted)
	v.TotalAssets = v.TotalAssets.Add(quote.assets)
	if err := k.setVault(ctx, v); err != nil {
		restore(ctx)
		return sdkmath.Int{}, err
	}

	if err := src.TransferIn(ctx, depositor, quote.assets); err != nil {
		restore(ctx)
		return sdkmath.Int{}, types.ErrTransferFailed.Wrap(err.Error())
	}

	k.emitEvent(ctx, types.NewEventDeposit(vaultID, depositor, receiver, quote.assets, quote.receiverShares))
	return quote.receiverShares, nil
}

// Mint exchanges assets for an exact share quantity, with the asset cost
// rounded up.
func (k *Keeper) Mint(ctx context.Context, vaultID, depositor, receiver string, shares sdkmath.Int) (sdkmath.Int, error) {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	quote, err := quoteMint(v, shares)
	if err != nil {
		return sdkmath.Int{}, err
	}
	src, err := k.assetSource(vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}

	restore, err := k.snapshot(ctx, v, receiver, types.DeadShareOwner)
	if err != nil {
		return sdkmath.Int{}, err
	}

	if err := k.mintShares(ctx, vaultID, receiver, quote.receiverShares); err != nil {
		return sdkmath.Int{}, err
	}
	if quote.deadShares.IsPositive() {
		if err := k.mintShares(ctx, vaultID, types.DeadShareOwner, quote.deadShares); err != nil {
			restore(ctx)
			return sdkmath.Int{}, err
		}
	}
	v.TotalShares = v.TotalShares.Add(quote.totalMinted)
	v.TotalAssets = v.TotalAssets.Add(quote.assets)
	if err := k.setVault(ctx, v); err != nil {
		restore(ctx)
		return sdkmath.Int{}, err
	}

	if err := src.TransferIn(ctx, depositor, quote.assets); err != nil {
		restore(ctx)
		return sdkmath.Int{}, types.ErrTransferFailed.Wrap(err.Error())
	}

	k.emitEvent(ctx, types.NewEventDeposit(vaultID, depositor, receiver, quote.assets, quote.receiverShares))
	return quote.assets, nil
}

// Withdraw pays an exact asset amount to receiver by burning owner's
// shares, rounded up. An operator that is not the owner spends allowance.
func (k *Keeper) Withdraw(ctx context.Context, vaultID, operator, receiver, owner string, assets sdkmath.Int) (sdkmath.Int, error) {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	shares, err := quoteWithdraw(v, assets)
	if err != nil {
		return sdkmath.Int{}, err
	}
	src, err := k.assetSource(vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}

	restore, err := k.snapshotWithAllowance(ctx, v, owner, operator)
	if err != nil {
		return sdkmath.Int{}, err
	}

	if operator != owner {
		if err := k.spendAllowance(ctx, vaultID, owner, operator, shares); err != nil {
			return sdkmath.Int{}, err
		}
	}
	if err := k.burnShares(ctx, vaultID, owner, shares); err != nil {
		restore(ctx)
		return sdkmath.Int{}, err
	}
	v.TotalShares = v.TotalShares.Sub(shares)
	v.TotalAssets = v.TotalAssets.Sub(assets)
	k.maybeHalt(ctx, &v)
	if err := k.setVault(ctx, v); err != nil {
		restore(ctx)
		return sdkmath.Int{}, err
	}

	if err := src.TransferOut(ctx, receiver, assets); err != nil {
		restore(ctx)
		return sdkmath.Int{}, types.ErrTransferFailed.Wrap(err.Error())
	}

	k.emitEvent(ctx, types.NewEventWithdraw(vaultID, owner, receiver, assets, shares))
	return shares, nil
}

// Redeem burns an exact share quantity and pays out assets, rounded down.
// On a halted vault redemption burns the shares and pays nothing, letting
// holders formally exit the fault state.
func (k *Keeper) Redeem(ctx context.Context, vaultID, operator, receiver, owner string, shares sdkmath.Int) (sdkmath.Int, error) {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	assets, err := quoteRedeem(v, shares)
	if err != nil {
		return sdkmath.Int{}, err
	}

	restore, err := k.snapshotWithAllowance(ctx, v, owner, operator)
	if err != nil {
		return sdkmath.Int{}, err
	}

	if operator != owner {
		if err := k.spendAllowance(ctx, vaultID, owner, operator, shares); err != nil {
			return sdkmath.Int{}, err
		}
	}
	if err := k.burnShares(ctx, vaultID, owner, shares); err != nil {
		restore(ctx)
		return sdkmath.Int{}, err
	}
	v.TotalShares = v.TotalShares.Sub(shares)
	v.TotalAssets = v.TotalAssets.Sub(assets)
	k.maybeHalt(ctx, &v)
	if err := k.setVault(ctx, v); err != nil {
		restore(ctx)
		return sdkmath.Int{}, err
	}

	if assets.IsPositive() {
		src, err := k.assetSource(vaultID)
		if err != nil {
			restore(ctx)
			return sdkmath.Int{}, err
		}
		if err := src.TransferOut(ctx, receiver, assets); err != nil {
			restore(ctx)
			return sdkmath.Int{}, types.ErrTransferFailed.Wrap(err.Error())
		}
	}

	k.emitEvent(ctx, types.NewEventWithdraw(vaultID, owner, receiver, assets, shares))
	return assets, nil
}

// PreviewDeposit returns exactly the shares Deposit would mint to the
// receiver in the current state. Preview/action parity is a hard
// equivalence: both run the same quote.
func (k *Keeper) PreviewDeposit(ctx context.Context, vaultID string, assets sdkmath.Int) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	quote, err := quoteDeposit(v, assets)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return quote.receiverShares, nil
}

// PreviewMint returns exactly the assets Mint would require.
func (k *Keeper) PreviewMint(ctx context.Context, vaultID string, shares sdkmath.Int) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	quote, err := quoteMint(v, shares)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return quote.assets, nil
}

// PreviewWithdraw returns exactly the shares Withdraw would burn.
func (k *Keeper) PreviewWithdraw(ctx context.Context, vaultID string, assets sdkmath.Int) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return quoteWithdraw(v, assets)
}

// PreviewRedeem returns exactly the assets Redeem would pay out.
func (k *Keeper) PreviewRedeem(ctx context.Context, vaultID string, shares sdkmath.Int) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return quoteRedeem(v, shares)
}

// ConvertToShares is the informational assets→shares conversion, rounded
// down. It ignores deposit toggles and guard floors.
func (k *Keeper) ConvertToShares(ctx context.Context, vaultID string, assets sdkmath.Int) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return utils.ConvertToShares(assets, v.TotalAssets, v.TotalShares, effectiveOffset(v), utils.RoundDown)
}

// ConvertToAssets is the informational shares→assets conversion, rounded down.
func (k *Keeper) ConvertToAssets(ctx context.Context, vaultID string, shares sdkmath.Int) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return utils.ConvertToAssets(shares, v.TotalAssets, v.TotalShares, effectiveOffset(v), utils.RoundDown)
}

// TotalAssets returns the vault's internally tracked asset counter.
func (k *Keeper) TotalAssets(ctx context.Context, vaultID string) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return v.TotalAssets, nil
}

// Recover is the administrative exit from the halted state: the authority
// funds newAssets into custody and pricing resumes at newAssets per
// totalShares, not 1:1, so remaining holders keep their proportional claim.
func (k *Keeper) Recover(ctx context.Context, vaultID, authority string, newAssets sdkmath.Int) error {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return err
	}
	if !halted(v) {
		return types.ErrInvalidRequest.Wrapf("vault %s is not halted", vaultID)
	}
	if authority != v.Admin {
		return types.ErrUnauthorized.Wrapf("%s is not the vault admin", authority)
	}
	if newAssets.IsNil() || !newAssets.IsPositive() {
		return types.ErrZeroAssets.Wrap("recovery amount must be positive")
	}
	src, err := k.assetSource(vaultID)
	if err != nil {
		return err
	}

	prev := v
	v.TotalAssets = newAssets
	v.Halted = false
	if err := k.setVault(ctx, v); err != nil {
		return err
	}

	if err := src.TransferIn(ctx, authority, newAssets); err != nil {
		if rerr := k.setVault(ctx, prev); rerr != nil {
			k.logger.Error("failed to restore vault record after recovery rollback", "vault", vaultID, "err", rerr)
		}
		return types.ErrTransferFailed.Wrap(err.Error())
	}

	k.logger.Info("vault recovered", "vault", vaultID, "new_assets", newAssets.String())
	k.emitEvent(ctx, types.NewEventVaultRecovered(vaultID, authority, newAssets))
	return nil
}

// snapshot captures the vault record and the touched ledger rows so a
// failed external transfer can restore them. No partial state change may
// survive a failed operation.
func (k *Keeper) snapshot(ctx context.Context, v types.VaultState, owners ...string) (func(context.Context), error) {
	balances := make([]sdkmath.Int, len(owners))
	for i, owner := range owners {
		bal, err := k.BalanceOf(ctx, v.Id, owner)
		if err != nil {
			return nil, err
		}
		balances[i] = bal
	}
	prev := v
	return func(rctx context.Context) {
		if err := k.Vaults.Set(rctx, prev.Id, prev); err != nil {
			k.logger.Error("failed to restore vault record", "vault", prev.Id, "err", err)
		}
		for i, owner := range owners {
			if err := k.setBalance(rctx, prev.Id, owner, balances[i]); err != nil {
				k.logger.Error("failed to restore share balance", "vault", prev.Id, "owner", owner, "err", err)
			}
		}
	}, nil
}

// snapshotWithAllowance additionally captures the (owner, operator)
// allowance row touched by operator-driven withdrawals.
func (k *Keeper) snapshotWithAllowance(ctx context.Context, v types.VaultState, owner, operator string) (func(context.Context), error) {
	restoreBalances, err := k.snapshot(ctx, v, owner)
	if err != nil {
		return nil, err
	}
	if operator == owner {
		return restoreBalances, nil
	}
	allowance, err := k.Allowance(ctx, v.Id, owner, operator)
	if err != nil {
		return nil, err
	}
	key := collections.Join3(v.Id, owner, operator)
	return func(rctx context.Context) {
		restoreBalances(rctx)
		if allowance.IsZero() {
			if ok, _ := k.Allowances.Has(rctx, key); ok {
				if err := k.Allowances.Remove(rctx, key); err != nil {
					k.logger.Error("failed to restore allowance", "vault", v.Id, "owner", owner, "err", err)
				}
			}
			return
		}
		if err := k.Allowances.Set(rctx, key, allowance); err != nil {
			k.logger.Error("failed to restore allowance", "vault", v.Id, "owner", owner, "err", err)
		}
	}, nil
}
