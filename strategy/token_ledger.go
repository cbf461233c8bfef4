// Package strategy provides asset source implementations that plug vault
// custody into different backends: a plain token ledger, an interest-bearing
// position, a multi-asset NAV aggregate, and another vault for meta-vault
// composition.
package strategy

import (
	"context"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/types"
)

// TokenLedger is an in-memory fungible token ledger keyed by (account,
// denom). It stands in for the host chain's bank module as the custody
// backend behind asset sources.
type TokenLedger struct {
	mu       sync.Mutex
	balances map[string]map[string]sdkmath.Int
}

// NewTokenLedger returns an empty ledger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{balances: make(map[string]map[string]sdkmath.Int)}
}

// Mint credits an account out of thin air. Test and genesis funding only.
func (l *TokenLedger) Mint(account, denom string, amount sdkmath.Int) {
	if !amount.IsPositive() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(account, denom, amount)
}

// BalanceOf returns the account's balance in denom. Unknown accounts hold zero.
func (l *TokenLedger) BalanceOf(account, denom string) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(account, denom)
}

// Transfer moves funds between accounts.
func (l *TokenLedger) Transfer(from, to, denom string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrInvalidRequest.Wrap("transfer amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balance(from, denom)
	if bal.LT(amount) {
		return types.ErrInsufficientFunds.Wrapf("account %s holds %s%s, needs %s", from, bal, denom, amount)
	}
	l.balances[from][denom] = bal.Sub(amount)
	l.credit(to, denom, amount)
	return nil
}

// Balances returns a copy of the account's holdings across all denoms.
func (l *TokenLedger) Balances(account string) map[string]sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]sdkmath.Int, len(l.balances[account]))
	for denom, amount := range l.balances[account] {
		out[denom] = amount
	}
	return out
}

func (l *TokenLedger) balance(account, denom string) sdkmath.Int {
	if denoms, ok := l.balances[account]; ok {
		if bal, ok := denoms[denom]; ok {
			return bal
		}
	}
	return sdkmath.ZeroInt()
}

func (l *TokenLedger) credit(account, denom string, amount sdkmath.Int) {
	denoms, ok := l.balances[account]
	if !ok {
		denoms = make(map[string]sdkmath.Int)
		l.balances[account] = denoms
	}
	bal, ok := denoms[denom]
	if !ok {
		bal = sdkmath.ZeroInt()
	}
	denoms[denom] = bal.Add(amount)
}

// LedgerSource is the plain custody adapter: the vault's funds live in a
// single denom under a dedicated ledger account.
type LedgerSource struct {
	Ledger  *TokenLedger
	Account string
	Denom   string
}

var _ types.AssetSource = (*LedgerSource)(nil)

// NewLedgerSource binds a ledger account and denom as a vault's custody.
func NewLedgerSource(ledger *TokenLedger, account, denom string) *LedgerSource {
	return &LedgerSource{Ledger: ledger, Account: account, Denom: denom}
}

// TotalAssets reports the custody account's balance.
func (s *LedgerSource) TotalAssets(_ context.Context) (sdkmath.Int, error) {
	return s.Ledger.BalanceOf(s.Account, s.Denom), nil
}

// TransferIn pulls funds from the depositor into custody.
func (s *LedgerSource) TransferIn(_ context.Context, from string, amount sdkmath.Int) error {
	return s.Ledger.Transfer(from, s.Account, s.Denom, amount)
}

// TransferOut pays funds out of custody.
func (s *LedgerSource) TransferOut(_ context.Context, to string, amount sdkmath.Int) error {
	return s.Ledger.Transfer(s.Account, to, s.Denom, amount)
}
