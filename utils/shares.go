package utils

import (
	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/types"
)

// Share/asset conversion.
//
// The governing identity is shares = assets * totalShares / totalAssets and
// its inverse, evaluated with an explicit rounding direction chosen by the
// caller so the vault is never the economic loser.
//
// offset == 0 uses the plain identity with two designed branches:
//   - zero-assets fault (totalAssets == 0, totalShares > 0): conversions
//     return 0; shares are currently worth nothing.
//   - zero-supply bootstrap (totalShares == 0): 1:1 pricing.
//
// offset > 0 redefines the conversion with virtual offsets,
//
//	shares = assets * (totalShares + 10^offset) / (totalAssets + 1)
//
// (and the symmetric inverse), which raises the cost of donation-based
// price manipulation by ~10^offset. The fault branch still applies.

// ConvertToShares returns the share quantity corresponding to the given
// asset amount at the supplied totals.
func ConvertToShares(assets, totalAssets, totalShares sdkmath.Int, offset uint8, rounding Rounding) (sdkmath.Int, error) {
	if assets.IsNegative() || totalAssets.IsNegative() || totalShares.IsNegative() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrap("negative values not allowed")
	}
	if assets.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if totalAssets.IsZero() && totalShares.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	if offset > 0 {
		return MulDiv(assets, totalShares.Add(TenPow(offset)), totalAssets.Add(sdkmath.OneInt()), rounding)
	}

	if totalShares.IsZero() {
		return assets, nil
	}
	return MulDiv(assets, totalShares, totalAssets, rounding)
}

// ConvertToAssets returns the asset amount corresponding to the given share
// quantity at the supplied totals.
func ConvertToAssets(shares, totalAssets, totalShares sdkmath.Int, offset uint8, rounding Rounding) (sdkmath.Int, error) {
	if shares.IsNegative() || totalAssets.IsNegative() || totalShares.IsNegative() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrap("negative values not allowed")
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if totalAssets.IsZero() && totalShares.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	if offset > 0 {
		return MulDiv(shares, totalAssets.Add(sdkmath.OneInt()), totalShares.Add(TenPow(offset)), rounding)
	}

	if totalShares.IsZero() {
		return shares, nil
	}
	return MulDiv(shares, totalAssets, totalShares, rounding)
}
