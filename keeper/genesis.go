package keeper

import (
	"context"

	"cosmossdk.io/collections"
	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/types"
)

// InitGenesis loads a validated genesis state into the store. Asset sources
// are runtime wiring and must be registered separately after import.
func (k *Keeper) InitGenesis(ctx context.Context, gen *types.GenesisState) error {
	if err := gen.Validate(); err != nil {
		return types.ErrInvalidRequest.Wrap(err.Error())
	}

	for _, v := range gen.Vaults {
		if err := k.Vaults.Set(ctx, v.Id, v); err != nil {
			return err
		}
	}
	for _, b := range gen.Balances {
		if err := k.Shares.Set(ctx, collections.Join(b.VaultId, b.Owner), b.Shares); err != nil {
			return err
		}
	}
	for _, a := range gen.Allowances {
		if err := k.Allowances.Set(ctx, collections.Join3(a.VaultId, a.Owner, a.Spender), a.Shares); err != nil {
			return err
		}
	}
	return k.PendingWithdrawalQueue.Import(ctx, gen.PendingWithdrawals)
}

// ExportGenesis dumps the full module state.
func (k *Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	gen := types.DefaultGenesisState()

	err := k.Vaults.Walk(ctx, nil, func(_ string, v types.VaultState) (bool, error) {
		gen.Vaults = append(gen.Vaults, v)
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	err = k.Shares.Walk(ctx, nil, func(key collections.Pair[string, string], bal sdkmath.Int) (bool, error) {
		gen.Balances = append(gen.Balances, types.ShareBalance{
			VaultId: key.K1(),
			Owner:   key.K2(),
			Shares:  bal,
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	err = k.Allowances.Walk(ctx, nil, func(key collections.Triple[string, string, string], amount sdkmath.Int) (bool, error) {
		gen.Allowances = append(gen.Allowances, types.ShareAllowance{
			VaultId: key.K1(),
			Owner:   key.K2(),
			Spender: key.K3(),
			Shares:  amount,
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	gen.PendingWithdrawals, err = k.PendingWithdrawalQueue.Export(ctx)
	if err != nil {
		return nil, err
	}
	return gen, nil
}
