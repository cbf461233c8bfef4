package types

import (
	"strconv"

	"cosmossdk.io/core/event"
	sdkmath "cosmossdk.io/math"
)

// Event type names emitted through the host event service.
const (
	EventTypeVaultCreated        = "vault_created"
	EventTypeDeposit             = "vault_deposit"
	EventTypeWithdraw            = "vault_withdraw"
	EventTypeVaultHalted         = "vault_halted"
	EventTypeVaultRecovered      = "vault_recovered"
	EventTypeYieldReported       = "vault_yield_reported"
	EventTypeInterestReconciled  = "vault_interest_reconciled"
	EventTypeWithdrawalRequested = "vault_withdrawal_requested"
	EventTypeWithdrawalSettled   = "vault_withdrawal_settled"
	EventTypeWithdrawalRefunded  = "vault_withdrawal_refunded"
	EventTypeToggleDeposits      = "vault_toggle_deposits"
	EventTypeToggleWithdrawals   = "vault_toggle_withdrawals"
	EventTypeShareTransfer       = "vault_share_transfer"
	EventTypeShareApproval       = "vault_share_approval"
)

// Attribute keys shared across vault events.
const (
	AttributeKeyVault    = "vault"
	AttributeKeyOwner    = "owner"
	AttributeKeyReceiver = "receiver"
	AttributeKeyAssets   = "assets"
	AttributeKeyShares   = "shares"
)

// Event pairs a type name with its kv attributes, ready for EmitKV.
type Event struct {
	Type       string
	Attributes []event.Attribute
}

func attr(key, value string) event.Attribute {
	return event.Attribute{Key: key, Value: value}
}

// NewEventVaultCreated records a new vault and its configuration.
func NewEventVaultCreated(v VaultState) Event {
	return Event{
		Type: EventTypeVaultCreated,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, v.Id),
			attr("admin", v.Admin),
			attr("underlying_denom", v.UnderlyingDenom),
			attr("guard_policy", string(v.GuardPolicy)),
		},
	}
}

// NewEventDeposit records assets in, shares out. Both Deposit and Mint emit it.
func NewEventDeposit(vaultID, owner, receiver string, assets, shares sdkmath.Int) Event {
	return Event{
		Type: EventTypeDeposit,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr(AttributeKeyOwner, owner),
			attr(AttributeKeyReceiver, receiver),
			attr(AttributeKeyAssets, assets.String()),
			attr(AttributeKeyShares, shares.String()),
		},
	}
}

// NewEventWithdraw records shares burned, assets out. Both Withdraw and Redeem emit it.
func NewEventWithdraw(vaultID, owner, receiver string, assets, shares sdkmath.Int) Event {
	return Event{
		Type: EventTypeWithdraw,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr(AttributeKeyOwner, owner),
			attr(AttributeKeyReceiver, receiver),
			attr(AttributeKeyAssets, assets.String()),
			attr(AttributeKeyShares, shares.String()),
		},
	}
}

// NewEventVaultHalted records entry into the post-loss fault state.
func NewEventVaultHalted(vaultID string, totalShares sdkmath.Int) Event {
	return Event{
		Type: EventTypeVaultHalted,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr(AttributeKeyShares, totalShares.String()),
		},
	}
}

// NewEventVaultRecovered records an administrative recovery out of the fault state.
func NewEventVaultRecovered(vaultID, authority string, newAssets sdkmath.Int) Event {
	return Event{
		Type: EventTypeVaultRecovered,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr("authority", authority),
			attr(AttributeKeyAssets, newAssets.String()),
		},
	}
}

// NewEventYieldReported records a harvest: the strategy-reported total
// replacing the tracked counter, with the signed delta for indexing.
func NewEventYieldReported(vaultID string, before, after sdkmath.Int) Event {
	return Event{
		Type: EventTypeYieldReported,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr("assets_before", before.String()),
			attr("assets_after", after.String()),
			attr("delta", after.Sub(before).String()),
		},
	}
}

// NewEventInterestReconciled records accrued interest folded into total assets.
func NewEventInterestReconciled(vaultID, rate string, periodSeconds int64, earned sdkmath.Int) Event {
	return Event{
		Type: EventTypeInterestReconciled,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr("rate", rate),
			attr("period_seconds", strconv.FormatInt(periodSeconds, 10)),
			attr("interest_earned", earned.String()),
		},
	}
}

// NewEventWithdrawalRequested records a queued delayed withdrawal.
func NewEventWithdrawalRequested(vaultID, owner string, assets, shares sdkmath.Int, id uint64, payoutTime int64) Event {
	return Event{
		Type: EventTypeWithdrawalRequested,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr(AttributeKeyOwner, owner),
			attr(AttributeKeyAssets, assets.String()),
			attr(AttributeKeyShares, shares.String()),
			attr("request_id", strconv.FormatUint(id, 10)),
			attr("payout_time", strconv.FormatInt(payoutTime, 10)),
		},
	}
}

// NewEventWithdrawalSettled records a due request paid out.
func NewEventWithdrawalSettled(vaultID, owner string, assets, shares sdkmath.Int, id uint64) Event {
	return Event{
		Type: EventTypeWithdrawalSettled,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr(AttributeKeyOwner, owner),
			attr(AttributeKeyAssets, assets.String()),
			attr(AttributeKeyShares, shares.String()),
			attr("request_id", strconv.FormatUint(id, 10)),
		},
	}
}

// NewEventWithdrawalRefunded records escrowed shares returned to the owner
// instead of a payout (halted vault or unfillable request).
func NewEventWithdrawalRefunded(vaultID, owner, reason string, shares sdkmath.Int, id uint64) Event {
	return Event{
		Type: EventTypeWithdrawalRefunded,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr(AttributeKeyOwner, owner),
			attr(AttributeKeyShares, shares.String()),
			attr("request_id", strconv.FormatUint(id, 10)),
			attr("reason", reason),
		},
	}
}

// NewEventToggleDeposits records the deposit switch changing.
func NewEventToggleDeposits(vaultID, admin string, enabled bool) Event {
	return Event{
		Type: EventTypeToggleDeposits,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr("admin", admin),
			attr("enabled", strconv.FormatBool(enabled)),
		},
	}
}

// NewEventToggleWithdrawals records the withdrawal switch changing.
func NewEventToggleWithdrawals(vaultID, admin string, enabled bool) Event {
	return Event{
		Type: EventTypeToggleWithdrawals,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr("admin", admin),
			attr("enabled", strconv.FormatBool(enabled)),
		},
	}
}

// NewEventShareTransfer records a share ledger transfer.
func NewEventShareTransfer(vaultID, from, to string, shares sdkmath.Int) Event {
	return Event{
		Type: EventTypeShareTransfer,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr("from", from),
			attr("to", to),
			attr(AttributeKeyShares, shares.String()),
		},
	}
}

// NewEventShareApproval records an allowance grant.
func NewEventShareApproval(vaultID, owner, spender string, shares sdkmath.Int) Event {
	return Event{
		Type: EventTypeShareApproval,
		Attributes: []event.Attribute{
			attr(AttributeKeyVault, vaultID),
			attr(AttributeKeyOwner, owner),
			attr("spender", spender),
			attr(AttributeKeyShares, shares.String()),
		},
	}
}
