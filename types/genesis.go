package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// ShareBalance is one ledger row as exported to genesis.
type ShareBalance struct {
	VaultId string      `json:"vault_id"`
	Owner   string      `json:"owner"`
	Shares  sdkmath.Int `json:"shares"`
}

// ShareAllowance is one allowance row as exported to genesis.
type ShareAllowance struct {
	VaultId string      `json:"vault_id"`
	Owner   string      `json:"owner"`
	Spender string      `json:"spender"`
	Shares  sdkmath.Int `json:"shares"`
}

// GenesisState is the full exported state of the vault module.
type GenesisState struct {
	Vaults             []VaultState                `json:"vaults"`
	Balances           []ShareBalance              `json:"balances"`
	Allowances         []ShareAllowance            `json:"allowances"`
	PendingWithdrawals PendingWithdrawalQueueState `json:"pending_withdrawals"`
}

// DefaultGenesisState returns an empty genesis state.
func DefaultGenesisState() *GenesisState {
	return &GenesisState{}
}

// Validate checks internal consistency of the genesis state: every vault
// valid, every balance positive and bound to a known vault, and every
// vault's total shares equal to the sum of its ledger rows.
func (g GenesisState) Validate() error {
	vaults := make(map[string]VaultState, len(g.Vaults))
	for i, v := range g.Vaults {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid vault at index %d: %w", i, err)
		}
		if _, ok := vaults[v.Id]; ok {
			return fmt.Errorf("duplicate vault id %q", v.Id)
		}
		vaults[v.Id] = v
	}

	sums := make(map[string]sdkmath.Int, len(g.Vaults))
	seen := make(map[string]struct{}, len(g.Balances))
	for i, b := range g.Balances {
		if _, ok := vaults[b.VaultId]; !ok {
			return fmt.Errorf("balance at index %d references unknown vault %q", i, b.VaultId)
		}
		if b.Owner == "" {
			return fmt.Errorf("balance at index %d has an empty owner", i)
		}
		if b.Shares.IsNil() || !b.Shares.IsPositive() {
			return fmt.Errorf("balance at index %d must be positive", i)
		}
		key := b.VaultId + "/" + b.Owner
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate balance for owner %q in vault %q", b.Owner, b.VaultId)
		}
		seen[key] = struct{}{}

		sum, ok := sums[b.VaultId]
		if !ok {
			sum = sdkmath.ZeroInt()
		}
		sums[b.VaultId] = sum.Add(b.Shares)
	}

	for id, v := range vaults {
		sum, ok := sums[id]
		if !ok {
			sum = sdkmath.ZeroInt()
		}
		if !v.TotalShares.Equal(sum) {
			return fmt.Errorf("vault %q total shares %s does not match ledger sum %s", id, v.TotalShares, sum)
		}
	}

	for i, a := range g.Allowances {
		if _, ok := vaults[a.VaultId]; !ok {
			return fmt.Errorf("allowance at index %d references unknown vault %q", i, a.VaultId)
		}
		if a.Owner == "" || a.Spender == "" {
			return fmt.Errorf("allowance at index %d has an empty owner or spender", i)
		}
		if a.Shares.IsNil() || !a.Shares.IsPositive() {
			return fmt.Errorf("allowance at index %d must be positive", i)
		}
	}

	if err := g.PendingWithdrawals.Validate(); err != nil {
		return fmt.Errorf("invalid pending withdrawal queue: %w", err)
	}
	for i, entry := range g.PendingWithdrawals.Entries {
		if _, ok := vaults[entry.Withdrawal.VaultId]; !ok {
			return fmt.Errorf("pending withdrawal at index %d references unknown vault %q", i, entry.Withdrawal.VaultId)
		}
	}

	return nil
}
