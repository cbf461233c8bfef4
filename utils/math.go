package utils

import (
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/types"
)

// Rounding selects the direction integer division truncates toward.
type Rounding int

const (
	// RoundDown truncates toward zero.
	RoundDown Rounding = iota
	// RoundUp rounds any non-zero remainder away from zero.
	RoundUp
)

// MulDiv computes a*b/c over non-negative integers with the given rounding
// direction. The intermediate product is checked against the 256-bit width
// the accounting domain is defined over.
//
// Errors:
//   - ErrInvalidRequest when any input is negative.
//   - ErrDivisionByZero when c is zero.
//   - ErrOverflow when a*b does not fit in 256 bits.
func MulDiv(a, b, c sdkmath.Int, rounding Rounding) (sdkmath.Int, error) {
	if a.IsNegative() || b.IsNegative() || c.IsNegative() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrap("negative values not allowed")
	}
	if c.IsZero() {
		return sdkmath.Int{}, types.ErrDivisionByZero
	}

	prod := new(big.Int).Mul(a.BigInt(), b.BigInt())
	if prod.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.Int{}, types.ErrOverflow.Wrapf("%s * %s exceeds %d bits", a, b, sdkmath.MaxBitLen)
	}

	quo, rem := new(big.Int).QuoRem(prod, c.BigInt(), new(big.Int))
	if rounding == RoundUp && rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return sdkmath.NewIntFromBigInt(quo), nil
}

// MulDivDown computes floor(a*b/c).
func MulDivDown(a, b, c sdkmath.Int) (sdkmath.Int, error) {
	return MulDiv(a, b, c, RoundDown)
}

// MulDivUp computes ceil(a*b/c). For all valid inputs it equals
// MulDivDown(a,b,c) plus one exactly when (a*b) mod c is non-zero.
func MulDivUp(a, b, c sdkmath.Int) (sdkmath.Int, error) {
	return MulDiv(a, b, c, RoundUp)
}

// TenPow returns 10^exp as an Int. exp is bounded by the vault validation
// (types.MaxDecimalsOffset) so the result is always tiny relative to the
// 256-bit domain.
func TenPow(exp uint8) sdkmath.Int {
	result := sdkmath.OneInt()
	ten := sdkmath.NewInt(10)
	for i := uint8(0); i < exp; i++ {
		result = result.Mul(ten)
	}
	return result
}
