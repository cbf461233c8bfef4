package keeper

import (
	"context"
	"errors"

	"cosmossdk.io/collections"
	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/types"
)

// Share ledger. Per-owner balances live in the Shares collection; the
// running supply lives on the vault record and is maintained by the
// operations that mint and burn, never recomputed by iteration. Rows are
// removed when a balance reaches zero so genesis exports stay positive.

// BalanceOf returns the share balance of owner in the given vault. Unknown
// owners hold zero.
func (k *Keeper) BalanceOf(ctx context.Context, vaultID, owner string) (sdkmath.Int, error) {
	bal, err := k.Shares.Get(ctx, collections.Join(vaultID, owner))
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return sdkmath.ZeroInt(), nil
		}
		return sdkmath.Int{}, err
	}
	return bal, nil
}

// TotalSupply returns the vault's share supply.
func (k *Keeper) TotalSupply(ctx context.Context, vaultID string) (sdkmath.Int, error) {
	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return v.TotalShares, nil
}

// setBalance writes a ledger row, removing it when the balance is zero.
func (k *Keeper) setBalance(ctx context.Context, vaultID, owner string, amount sdkmath.Int) error {
	key := collections.Join(vaultID, owner)
	if amount.IsZero() {
		if ok, _ := k.Shares.Has(ctx, key); !ok {
			return nil
		}
		return k.Shares.Remove(ctx, key)
	}
	return k.Shares.Set(ctx, key, amount)
}

// mintShares credits owner's ledger row. The caller is responsible for the
// matching TotalShares update on the vault record within the same operation.
func (k *Keeper) mintShares(ctx context.Context, vaultID, owner string, amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return types.ErrZeroShares.Wrap("mint amount must be positive")
	}
	bal, err := k.BalanceOf(ctx, vaultID, owner)
	if err != nil {
		return err
	}
	return k.setBalance(ctx, vaultID, owner, bal.Add(amount))
}

// burnShares debits owner's ledger row. The caller is responsible for the
// matching TotalShares update on the vault record within the same operation.
func (k *Keeper) burnShares(ctx context.Context, vaultID, owner string, amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return types.ErrZeroShares.Wrap("burn amount must be positive")
	}
	bal, err := k.BalanceOf(ctx, vaultID, owner)
	if err != nil {
		return err
	}
	if bal.LT(amount) {
		return types.ErrInsufficientShares.Wrapf("owner %s has %s shares, needs %s", owner, bal, amount)
	}
	return k.setBalance(ctx, vaultID, owner, bal.Sub(amount))
}

// transferShares moves shares between ledger rows without touching supply.
func (k *Keeper) transferShares(ctx context.Context, vaultID, from, to string, amount sdkmath.Int) error {
	if err := k.burnShares(ctx, vaultID, from, amount); err != nil {
		return err
	}
	return k.mintShares(ctx, vaultID, to, amount)
}

// Transfer moves shares from the caller to another owner. This is the
// fungible-token transfer surface over the share ledger.
func (k *Keeper) Transfer(ctx context.Context, vaultID, from, to string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrZeroShares.Wrap("transfer amount must be positive")
	}
	if from == to {
		return types.ErrInvalidRequest.Wrap("cannot transfer to self")
	}
	if to == types.DeadShareOwner {
		return types.ErrInvalidRequest.Wrap("cannot transfer to the dead share sink")
	}
	unlock := k.lockVault(vaultID)
	defer unlock()

	if _, err := k.GetVault(ctx, vaultID); err != nil {
		return err
	}
	if err := k.transferShares(ctx, vaultID, from, to, amount); err != nil {
		return err
	}
	k.emitEvent(ctx, types.NewEventShareTransfer(vaultID, from, to, amount))
	return nil
}

// Approve sets spender's allowance over owner's shares. A zero amount
// clears the allowance.
func (k *Keeper) Approve(ctx context.Context, vaultID, owner, spender string, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInvalidRequest.Wrap("allowance cannot be negative")
	}
	if owner == spender {
		return types.ErrInvalidRequest.Wrap("cannot approve self")
	}
	unlock := k.lockVault(vaultID)
	defer unlock()

	if _, err := k.GetVault(ctx, vaultID); err != nil {
		return err
	}
	key := collections.Join3(vaultID, owner, spender)
	if amount.IsZero() {
		if ok, _ := k.Allowances.Has(ctx, key); ok {
			if err := k.Allowances.Remove(ctx, key); err != nil {
				return err
			}
		}
	} else if err := k.Allowances.Set(ctx, key, amount); err != nil {
		return err
	}
	k.emitEvent(ctx, types.NewEventShareApproval(vaultID, owner, spender, amount))
	return nil
}

// Allowance returns spender's remaining allowance over owner's shares.
func (k *Keeper) Allowance(ctx context.Context, vaultID, owner, spender string) (sdkmath.Int, error) {
	allowance, err := k.Allowances.Get(ctx, collections.Join3(vaultID, owner, spender))
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return sdkmath.ZeroInt(), nil
		}
		return sdkmath.Int{}, err
	}
	return allowance, nil
}

// TransferFrom moves shares from owner to another account, spending the
// caller's allowance.
func (k *Keeper) TransferFrom(ctx context.Context, vaultID, spender, owner, to string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrZeroShares.Wrap("transfer amount must be positive")
	}
	if owner == to {
		return types.ErrInvalidRequest.Wrap("cannot transfer to self")
	}
	if to == types.DeadShareOwner {
		return types.ErrInvalidRequest.Wrap("cannot transfer to the dead share sink")
	}
	unlock := k.lockVault(vaultID)
	defer unlock()

	if _, err := k.GetVault(ctx, vaultID); err != nil {
		return err
	}
	if err := k.spendAllowance(ctx, vaultID, owner, spender, amount); err != nil {
		return err
	}
	if err := k.transferShares(ctx, vaultID, owner, to, amount); err != nil {
		return err
	}
	k.emitEvent(ctx, types.NewEventShareTransfer(vaultID, owner, to, amount))
	return nil
}

// spendAllowance debits spender's allowance over owner's shares, removing
// the row when it reaches zero.
func (k *Keeper) spendAllowance(ctx context.Context, vaultID, owner, spender string, amount sdkmath.Int) error {
	allowance, err := k.Allowance(ctx, vaultID, owner, spender)
	if err != nil {
		return err
	}
	if allowance.LT(amount) {
		return types.ErrInsufficientAllowance.Wrapf("spender %s has allowance %s, needs %s", spender, allowance, amount)
	}
	key := collections.Join3(vaultID, owner, spender)
	remaining := allowance.Sub(amount)
	if remaining.IsZero() {
		return k.Allowances.Remove(ctx, key)
	}
	return k.Allowances.Set(ctx, key, remaining)
}
