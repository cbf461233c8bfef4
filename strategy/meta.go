package strategy

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/keeper"
	"github.com/strandlabs/vault/types"
)

// MetaVaultSource backs an outer vault with a position in an inner vault:
// deposits flow through into inner shares held by the Holder account, and
// the reported total is the current value of that position. The outer
// vault's operation lock is held while the inner vault takes its own, which
// is safe as long as the composition stays acyclic.
type MetaVaultSource struct {
	Keeper       *keeper.Keeper
	InnerVaultID string
	// Holder is the account the inner shares are credited to.
	Holder string
}

var _ types.AssetSource = (*MetaVaultSource)(nil)

// NewMetaVaultSource builds a custody adapter over an inner vault position.
func NewMetaVaultSource(k *keeper.Keeper, innerVaultID, holder string) *MetaVaultSource {
	return &MetaVaultSource{Keeper: k, InnerVaultID: innerVaultID, Holder: holder}
}

// TotalAssets reports the redeemable value of the held inner shares.
func (s *MetaVaultSource) TotalAssets(ctx context.Context) (sdkmath.Int, error) {
	shares, err := s.Keeper.BalanceOf(ctx, s.InnerVaultID, s.Holder)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return s.Keeper.ConvertToAssets(ctx, s.InnerVaultID, shares)
}

// TransferIn deposits the pulled funds into the inner vault.
func (s *MetaVaultSource) TransferIn(ctx context.Context, from string, amount sdkmath.Int) error {
	_, err := s.Keeper.Deposit(ctx, s.InnerVaultID, from, s.Holder, amount)
	return err
}

// TransferOut withdraws the exact amount from the inner vault to the receiver.
func (s *MetaVaultSource) TransferOut(ctx context.Context, to string, amount sdkmath.Int) error {
	_, err := s.Keeper.Withdraw(ctx, s.InnerVaultID, s.Holder, to, s.Holder, amount)
	return err
}
