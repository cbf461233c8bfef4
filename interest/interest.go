package interest

import (
	sdkmath "cosmossdk.io/math"
)

const (
	SecondsPerHour = 3_600
	SecondsPerYear = 31_536_000

	// EulerPrecision is the number of Maclaurin terms used for e^x.
	// Eighteen terms keep the truncation error below one base unit for the
	// rate*time products a vault sees in practice.
	EulerPrecision = 18
)

// CalculateInterestEarned returns the interest accrued on principal over the
// given number of seconds at an annual continuous-compounding rate,
//
//	interest = P * e^(r*t) - P
//
// truncated to an integer amount. rate is a decimal string; a negative rate
// yields a negative result (principal decay).
func CalculateInterestEarned(principal sdkmath.Int, rate string, seconds int64) (sdkmath.Int, error) {
	r, err := sdkmath.LegacyNewDecFromStr(rate)
	if err != nil {
		return sdkmath.Int{}, err
	}

	p := sdkmath.LegacyNewDecFromInt(principal)

	// t in years, as a deterministic decimal.
	t := sdkmath.LegacyNewDec(seconds).QuoInt64(SecondsPerYear)

	eRt := ExpDec(r.Mul(t), EulerPrecision)

	finalAmount := p.Mul(eRt)

	return finalAmount.Sub(p).TruncateInt(), nil
}

// ExpDec calculates e^x using the Maclaurin series expansion up to `terms`
// terms. Fully deterministic: no floats, no platform-dependent rounding.
//
//	e^x = 1 + x + x^2/2! + x^3/3! + ... + x^n/n!
func ExpDec(x sdkmath.LegacyDec, terms int) sdkmath.LegacyDec {
	result := sdkmath.LegacyOneDec()
	power := sdkmath.LegacyOneDec()
	factorial := sdkmath.LegacyOneDec()

	for i := 1; i <= terms; i++ {
		power = power.Mul(x)
		factorial = factorial.MulInt64(int64(i))
		term := power.Quo(factorial)
		result = result.Add(term)
	}

	return result
}
