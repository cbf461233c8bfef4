package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// GuardPolicy selects the first-deposit inflation mitigation applied by a vault.
type GuardPolicy string

const (
	// GuardMinimumDeposit rejects genesis deposits below MinDeposit.
	GuardMinimumDeposit GuardPolicy = "minimum_deposit"
	// GuardVirtualOffset applies virtual share/asset offsets to every conversion.
	GuardVirtualOffset GuardPolicy = "virtual_offset"
	// GuardDeadShares mints DeadShares to the sink owner out of the first deposit.
	GuardDeadShares GuardPolicy = "dead_shares"
)

// MaxDecimalsOffset bounds the virtual offset so 10^offset stays far from
// the 256-bit intermediate width used by the conversion math.
const MaxDecimalsOffset = 12

// VaultState is the persisted record for a single vault instance. The two
// counters here are the authoritative accounting state; external custody is
// never read back as a source of truth.
type VaultState struct {
	// Id is the vault identifier and doubles as the share denom.
	Id string `json:"id"`
	// Admin may pause, harvest, and recover the vault.
	Admin string `json:"admin"`
	// UnderlyingDenom is the denom of the asset the vault accounts for.
	UnderlyingDenom string `json:"underlying_denom"`

	// TotalAssets is the internally tracked value of underlying holdings.
	TotalAssets sdkmath.Int `json:"total_assets"`
	// TotalShares is the running share supply, equal to the sum of all
	// ledger balances at all times.
	TotalShares sdkmath.Int `json:"total_shares"`

	GuardPolicy GuardPolicy `json:"guard_policy"`
	// DecimalsOffset is the virtual precision boost used by GuardVirtualOffset.
	DecimalsOffset uint8 `json:"decimals_offset,omitempty"`
	// MinDeposit is the genesis deposit floor used by GuardMinimumDeposit.
	MinDeposit sdkmath.Int `json:"min_deposit"`
	// DeadShares is the genesis quantity minted to DeadShareOwner under GuardDeadShares.
	DeadShares sdkmath.Int `json:"dead_shares"`

	// Halted marks the post-loss fault state. Only Recover clears it.
	Halted             bool `json:"halted,omitempty"`
	DepositsEnabled    bool `json:"deposits_enabled"`
	WithdrawalsEnabled bool `json:"withdrawals_enabled"`

	// WithdrawalDelaySeconds defers RequestWithdrawal payouts by this long.
	WithdrawalDelaySeconds uint64 `json:"withdrawal_delay_seconds,omitempty"`

	// InterestRate is an annual continuous-compounding rate as a decimal
	// string. Empty disables accrual.
	InterestRate string `json:"interest_rate,omitempty"`
	// PeriodStart is the unix time the current accrual period opened.
	PeriodStart int64 `json:"period_start,omitempty"`
}

// NewVaultState builds a vault record with zeroed counters and both
// operation switches on.
func NewVaultState(id, admin, underlyingDenom string, policy GuardPolicy) VaultState {
	return VaultState{
		Id:                 id,
		Admin:              admin,
		UnderlyingDenom:    underlyingDenom,
		TotalAssets:        sdkmath.ZeroInt(),
		TotalShares:        sdkmath.ZeroInt(),
		GuardPolicy:        policy,
		MinDeposit:         sdkmath.ZeroInt(),
		DeadShares:         sdkmath.ZeroInt(),
		DepositsEnabled:    true,
		WithdrawalsEnabled: true,
	}
}

// Validate performs basic validation on the vault fields.
func (v VaultState) Validate() error {
	if err := ValidateDenom(v.Id); err != nil {
		return fmt.Errorf("invalid vault id: %w", err)
	}
	if v.Admin == "" {
		return fmt.Errorf("vault admin cannot be empty")
	}
	if err := ValidateDenom(v.UnderlyingDenom); err != nil {
		return fmt.Errorf("invalid underlying denom: %w", err)
	}
	if v.UnderlyingDenom == v.Id {
		return fmt.Errorf("share denom %q cannot equal the underlying denom", v.Id)
	}

	if v.TotalAssets.IsNil() || v.TotalAssets.IsNegative() {
		return fmt.Errorf("total assets must be a non-negative integer")
	}
	if v.TotalShares.IsNil() || v.TotalShares.IsNegative() {
		return fmt.Errorf("total shares must be a non-negative integer")
	}

	switch v.GuardPolicy {
	case GuardMinimumDeposit:
		if v.MinDeposit.IsNil() || !v.MinDeposit.IsPositive() {
			return fmt.Errorf("minimum deposit policy requires a positive min deposit")
		}
	case GuardVirtualOffset:
		if v.DecimalsOffset == 0 || v.DecimalsOffset > MaxDecimalsOffset {
			return fmt.Errorf("virtual offset policy requires an offset in [1, %d]", MaxDecimalsOffset)
		}
	case GuardDeadShares:
		if v.DeadShares.IsNil() || !v.DeadShares.IsPositive() {
			return fmt.Errorf("dead shares policy requires a positive dead share quantity")
		}
	default:
		return fmt.Errorf("unknown guard policy %q", v.GuardPolicy)
	}

	if v.InterestRate != "" {
		if _, err := sdkmath.LegacyNewDecFromStr(v.InterestRate); err != nil {
			return fmt.Errorf("invalid interest rate: %s", v.InterestRate)
		}
	}

	return nil
}

// IsFaulted reports the critical zero-assets state: supply outstanding with
// nothing backing it. All conversions return zero while faulted.
func (v VaultState) IsFaulted() bool {
	return v.TotalAssets.IsZero() && v.TotalShares.IsPositive()
}

// ValidateDenom checks that a denom is a plausible token identifier:
// lowercase alphanumerics plus '/', '.', '_' and '-', starting with a letter.
func ValidateDenom(denom string) error {
	if len(denom) < 3 || len(denom) > 128 {
		return fmt.Errorf("denom length must be in [3, 128]: %q", denom)
	}
	if denom[0] < 'a' || denom[0] > 'z' {
		return fmt.Errorf("denom must start with a lowercase letter: %q", denom)
	}
	for i := 1; i < len(denom); i++ {
		c := denom[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '/' || c == '.' || c == '_' || c == '-':
		default:
			return fmt.Errorf("invalid character %q in denom %q", c, denom)
		}
	}
	return nil
}
