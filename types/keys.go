package types

import (
	"cosmossdk.io/collections"
)

const (
	// ModuleName defines the module name
	ModuleName = "vault"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// DeadShareOwner is the unrecoverable sink owner that dead shares are
	// minted to under the dead-shares guard policy. No operation ever
	// burns or transfers from this owner.
	DeadShareOwner = "void"
)

// EscrowOwner returns the ledger owner a vault escrows shares under while a
// delayed withdrawal is pending.
func EscrowOwner(vaultID string) string {
	return vaultID + "/escrow"
}

var (
	// VaultsKeyPrefix is the prefix to retrieve all vault records.
	VaultsKeyPrefix = collections.NewPrefix(0)
	// VaultsName is a human-readable name for the vaults collection.
	VaultsName = "vaults"

	// SharesKeyPrefix is the prefix for the share ledger, keyed by (vault id, owner).
	SharesKeyPrefix = collections.NewPrefix(1)
	// SharesName is a human-readable name for the share ledger collection.
	SharesName = "shares"

	// AllowancesKeyPrefix is the prefix for share allowances, keyed by (vault id, owner, spender).
	AllowancesKeyPrefix = collections.NewPrefix(2)
	// AllowancesName is a human-readable name for the allowances collection.
	AllowancesName = "allowances"

	// PendingWithdrawalQueuePrefix is the prefix for the pending withdrawal queue.
	PendingWithdrawalQueuePrefix = collections.NewPrefix(3)
	// PendingWithdrawalQueueName is a human-readable name for the pending withdrawal queue.
	PendingWithdrawalQueueName = "pending_withdrawals"
	// PendingWithdrawalQueueSeqPrefix is the prefix for the pending withdrawal queue id sequence.
	PendingWithdrawalQueueSeqPrefix = collections.NewPrefix(4)
	// PendingWithdrawalQueueSeqName is a human-readable name for the pending withdrawal queue id sequence.
	PendingWithdrawalQueueSeqName = "pending_withdrawals_seq"
	// PendingWithdrawalByIdIndexPrefix is the prefix for the pending withdrawal by-id index.
	PendingWithdrawalByIdIndexPrefix = collections.NewPrefix(5)
	// PendingWithdrawalByIdIndexName is a human-readable name for the pending withdrawal by-id index.
	PendingWithdrawalByIdIndexName = "pending_withdrawals_by_id"
	// PendingWithdrawalByVaultIndexPrefix is the prefix for the pending withdrawal by-vault index.
	PendingWithdrawalByVaultIndexPrefix = collections.NewPrefix(6)
	// PendingWithdrawalByVaultIndexName is a human-readable name for the pending withdrawal by-vault index.
	PendingWithdrawalByVaultIndexName = "pending_withdrawals_by_vault"
)
