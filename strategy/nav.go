package strategy

import (
	"context"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/types"
)

// UnitPrice expresses how many units of the underlying denom Volume units
// of another denom are worth. Unit price is Price/Volume as an integer
// fraction; conversions use floor division.
type UnitPrice struct {
	Price  sdkmath.Int
	Volume sdkmath.Int
}

// NAVSource values a multi-asset custody account in a single underlying
// denom. Deposits and withdrawals move the underlying; the other holdings
// only contribute to the reported total through their unit prices.
type NAVSource struct {
	Ledger     *TokenLedger
	Account    string
	Underlying string

	mu     sync.RWMutex
	prices map[string]UnitPrice
}

var _ types.AssetSource = (*NAVSource)(nil)

// NewNAVSource builds a NAV-valued custody adapter.
func NewNAVSource(ledger *TokenLedger, account, underlying string) *NAVSource {
	return &NAVSource{
		Ledger:     ledger,
		Account:    account,
		Underlying: underlying,
		prices:     make(map[string]UnitPrice),
	}
}

// SetUnitPrice registers the price fraction for a held denom.
func (s *NAVSource) SetUnitPrice(denom string, price, volume sdkmath.Int) error {
	if !volume.IsPositive() {
		return types.ErrInvalidRequest.Wrapf("nav volume for %s must be positive", denom)
	}
	if price.IsNil() || price.IsNegative() {
		return types.ErrInvalidRequest.Wrapf("nav price for %s cannot be negative", denom)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[denom] = UnitPrice{Price: price, Volume: volume}
	return nil
}

// unitPrice resolves the fraction for denom. The underlying prices at 1/1.
func (s *NAVSource) unitPrice(denom string) (UnitPrice, error) {
	if denom == s.Underlying {
		return UnitPrice{Price: sdkmath.OneInt(), Volume: sdkmath.OneInt()}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[denom]
	if !ok {
		return UnitPrice{}, types.ErrInvalidRequest.Wrapf("no unit price for %s/%s", denom, s.Underlying)
	}
	return p, nil
}

// TotalAssets sums every holding converted into the underlying denom,
// floored per holding. Denoms are visited in sorted order so the report is
// deterministic.
func (s *NAVSource) TotalAssets(_ context.Context) (sdkmath.Int, error) {
	holdings := s.Ledger.Balances(s.Account)
	denoms := make([]string, 0, len(holdings))
	for denom := range holdings {
		denoms = append(denoms, denom)
	}
	sort.Strings(denoms)

	total := sdkmath.ZeroInt()
	for _, denom := range denoms {
		amount := holdings[denom]
		if amount.IsZero() {
			continue
		}
		p, err := s.unitPrice(denom)
		if err != nil {
			return sdkmath.Int{}, err
		}
		total = total.Add(amount.Mul(p.Price).Quo(p.Volume))
	}
	return total, nil
}

// TransferIn pulls underlying funds into custody.
func (s *NAVSource) TransferIn(_ context.Context, from string, amount sdkmath.Int) error {
	return s.Ledger.Transfer(from, s.Account, s.Underlying, amount)
}

// TransferOut pays underlying funds out of custody.
func (s *NAVSource) TransferOut(_ context.Context, to string, amount sdkmath.Int) error {
	return s.Ledger.Transfer(s.Account, to, s.Underlying, amount)
}
