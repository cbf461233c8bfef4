package types

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

// AssetSource is the external custody boundary for a vault's underlying
// asset. The keeper only ever instructs it to move funds; it is never the
// operational source of truth for accounting. TotalAssets is consulted
// solely as a genesis hint or by an explicit Harvest.
type AssetSource interface {
	// TotalAssets reports the source's current value of the vault's holdings.
	TotalAssets(ctx context.Context) (sdkmath.Int, error)

	// TransferIn moves amount of the underlying asset from the given payer
	// into the source's custody for the vault.
	TransferIn(ctx context.Context, from string, amount sdkmath.Int) error

	// TransferOut moves amount of the underlying asset out of the source's
	// custody to the given recipient.
	TransferOut(ctx context.Context, to string, amount sdkmath.Int) error
}
