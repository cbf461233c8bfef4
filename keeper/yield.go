package keeper

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/interest"
	"github.com/strandlabs/vault/types"
)

// Harvest folds the asset source's reported total into the vault's tracked
// counter. This is the only operation that moves TotalAssets without a
// matching transfer; losses that drive it to zero with supply outstanding
// halt the vault.
func (k *Keeper) Harvest(ctx context.Context, vaultID, authority string) (sdkmath.Int, error) {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if authority != v.Admin {
		return sdkmath.Int{}, types.ErrUnauthorized.Wrapf("%s is not the vault admin", authority)
	}
	if v.Halted {
		return sdkmath.Int{}, types.ErrVaultHalted.Wrap(vaultID)
	}
	src, err := k.assetSource(vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}

	reported, err := src.TotalAssets(ctx)
	if err != nil {
		return sdkmath.Int{}, types.ErrTransferFailed.Wrapf("asset source report failed: %s", err)
	}
	if reported.IsNil() || reported.IsNegative() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("asset source reported invalid total %s", reported)
	}

	before := v.TotalAssets
	v.TotalAssets = reported
	k.maybeHalt(ctx, &v)
	if err := k.setVault(ctx, v); err != nil {
		return sdkmath.Int{}, err
	}

	k.emitEvent(ctx, types.NewEventYieldReported(vaultID, before, reported))
	return reported, nil
}

// ReconcileInterest accrues continuous-compounding interest on the vault's
// assets from the open period start up to now, folds it into TotalAssets,
// and opens a new period. Accrual is explicit; deposit and withdrawal paths
// never reconcile implicitly.
func (k *Keeper) ReconcileInterest(ctx context.Context, vaultID string, now int64) (sdkmath.Int, error) {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return k.reconcileInterest(ctx, &v, now)
}

// reconcileInterest accrues against the given record and persists it. The
// caller must hold the vault lock.
func (k *Keeper) reconcileInterest(ctx context.Context, v *types.VaultState, now int64) (sdkmath.Int, error) {
	if v.Halted {
		return sdkmath.Int{}, types.ErrVaultHalted.Wrap(v.Id)
	}
	if v.InterestRate == "" || now <= v.PeriodStart {
		return sdkmath.ZeroInt(), nil
	}

	seconds := now - v.PeriodStart
	earned, err := interest.CalculateInterestEarned(v.TotalAssets, v.InterestRate, seconds)
	if err != nil {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("interest calculation failed: %s", err)
	}

	v.TotalAssets = v.TotalAssets.Add(earned)
	if v.TotalAssets.IsNegative() {
		// A negative rate cannot decay holdings below zero.
		earned = earned.Sub(v.TotalAssets)
		v.TotalAssets = sdkmath.ZeroInt()
	}
	v.PeriodStart = now
	k.maybeHalt(ctx, v)
	if err := k.setVault(ctx, *v); err != nil {
		return sdkmath.Int{}, err
	}

	k.emitEvent(ctx, types.NewEventInterestReconciled(v.Id, v.InterestRate, seconds, earned))
	return earned, nil
}

// EstimateTotalAssets projects the vault's assets at a future time under the
// current interest rate without touching state.
func (k *Keeper) EstimateTotalAssets(ctx context.Context, vaultID string, at int64) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if v.InterestRate == "" || at <= v.PeriodStart {
		return v.TotalAssets, nil
	}
	earned, err := interest.CalculateInterestEarned(v.TotalAssets, v.InterestRate, at-v.PeriodStart)
	if err != nil {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("interest calculation failed: %s", err)
	}
	estimate := v.TotalAssets.Add(earned)
	if estimate.IsNegative() {
		return sdkmath.ZeroInt(), nil
	}
	return estimate, nil
}

// SetInterestRate updates the accrual rate, closing the open period first so
// time already elapsed accrues at the old rate. An empty rate disables
// accrual.
func (k *Keeper) SetInterestRate(ctx context.Context, vaultID, authority, rate string, now int64) error {
	if rate != "" {
		if _, err := sdkmath.LegacyNewDecFromStr(rate); err != nil {
			return types.ErrInvalidRequest.Wrapf("invalid interest rate %q", rate)
		}
	}

	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return err
	}
	if authority != v.Admin {
		return types.ErrUnauthorized.Wrapf("%s is not the vault admin", authority)
	}
	if v.InterestRate != "" {
		if _, err := k.reconcileInterest(ctx, &v, now); err != nil {
			return err
		}
	}
	v.InterestRate = rate
	if rate == "" {
		v.PeriodStart = 0
	} else {
		v.PeriodStart = now
	}
	return k.setVault(ctx, v)
}

// SetDepositsEnabled flips the deposit switch.
func (k *Keeper) SetDepositsEnabled(ctx context.Context, vaultID, authority string, enabled bool) error {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return err
	}
	if authority != v.Admin {
		return types.ErrUnauthorized.Wrapf("%s is not the vault admin", authority)
	}
	if v.DepositsEnabled == enabled {
		return nil
	}
	v.DepositsEnabled = enabled
	if err := k.setVault(ctx, v); err != nil {
		return err
	}
	k.emitEvent(ctx, types.NewEventToggleDeposits(vaultID, authority, enabled))
	return nil
}

// SetWithdrawalsEnabled flips the withdrawal switch.
func (k *Keeper) SetWithdrawalsEnabled(ctx context.Context, vaultID, authority string, enabled bool) error {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return err
	}
	if authority != v.Admin {
		return types.ErrUnauthorized.Wrapf("%s is not the vault admin", authority)
	}
	if v.WithdrawalsEnabled == enabled {
		return nil
	}
	v.WithdrawalsEnabled = enabled
	if err := k.setVault(ctx, v); err != nil {
		return err
	}
	k.emitEvent(ctx, types.NewEventToggleWithdrawals(vaultID, authority, enabled))
	return nil
}
