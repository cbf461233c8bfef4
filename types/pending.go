package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// PendingWithdrawal is a queued delayed withdrawal. The owner's shares are
// escrowed under the vault's own ledger account until the request settles,
// and the asset amount is fixed at request time.
type PendingWithdrawal struct {
	VaultId string `json:"vault_id"`
	Owner   string `json:"owner"`
	// Receiver gets the assets at settlement.
	Receiver string `json:"receiver"`
	// Shares is the escrowed share quantity burned at settlement.
	Shares sdkmath.Int `json:"shares"`
	// Assets is the payout computed when the request was queued.
	Assets sdkmath.Int `json:"assets"`
}

// Validate performs basic validation on the pending withdrawal fields.
func (p PendingWithdrawal) Validate() error {
	if p.VaultId == "" {
		return fmt.Errorf("vault id cannot be empty")
	}
	if p.Owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if p.Receiver == "" {
		return fmt.Errorf("receiver cannot be empty")
	}
	if p.Shares.IsNil() || !p.Shares.IsPositive() {
		return fmt.Errorf("shares must be positive")
	}
	if p.Assets.IsNil() || p.Assets.IsNegative() {
		return fmt.Errorf("assets cannot be negative")
	}
	return nil
}

// PendingWithdrawalQueueEntry is one queue row as exported to genesis.
type PendingWithdrawalQueueEntry struct {
	Time       int64             `json:"time"`
	Id         uint64            `json:"id"`
	Withdrawal PendingWithdrawal `json:"withdrawal"`
}

// PendingWithdrawalQueueState is the queue's genesis form.
type PendingWithdrawalQueueState struct {
	LatestSequenceNumber uint64                        `json:"latest_sequence_number"`
	Entries              []PendingWithdrawalQueueEntry `json:"entries"`
}

// Validate checks every entry and the sequence bound.
func (q PendingWithdrawalQueueState) Validate() error {
	for i, entry := range q.Entries {
		if entry.Time < 0 {
			return fmt.Errorf("entry %d: time cannot be negative", i)
		}
		if entry.Id >= q.LatestSequenceNumber {
			return fmt.Errorf("entry %d: id %d not below latest sequence number %d", i, entry.Id, q.LatestSequenceNumber)
		}
		if err := entry.Withdrawal.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}
