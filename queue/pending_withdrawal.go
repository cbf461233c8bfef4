package queue

import (
	"context"
	"fmt"

	"cosmossdk.io/collections"
	"cosmossdk.io/collections/indexes"

	"github.com/strandlabs/vault/types"
)

// PendingWithdrawalIndexes defines the indexes for the pending withdrawal queue.
type PendingWithdrawalIndexes struct {
	ByVault *indexes.Multi[string, collections.Triple[int64, uint64, string], types.PendingWithdrawal]
	ByID    *indexes.Unique[uint64, collections.Triple[int64, uint64, string], types.PendingWithdrawal]
}

// IndexesList returns the list of indexes for the pending withdrawal queue.
func (i PendingWithdrawalIndexes) IndexesList() []collections.Index[collections.Triple[int64, uint64, string], types.PendingWithdrawal] {
	return []collections.Index[
		collections.Triple[int64, uint64, string], types.PendingWithdrawal]{i.ByVault, i.ByID}
}

// NewPendingWithdrawalIndexes creates a new PendingWithdrawalIndexes object.
func NewPendingWithdrawalIndexes(sb *collections.SchemaBuilder) PendingWithdrawalIndexes {
	return PendingWithdrawalIndexes{
		ByVault: indexes.NewMulti(
			sb,
			types.PendingWithdrawalByVaultIndexPrefix,
			types.PendingWithdrawalByVaultIndexName,
			collections.StringKey,
			collections.TripleKeyCodec(collections.Int64Key, collections.Uint64Key, collections.StringKey),
			func(pk collections.Triple[int64, uint64, string], _ types.PendingWithdrawal) (string, error) {
				return pk.K3(), nil
			},
		),
		ByID: indexes.NewUnique(
			sb,
			types.PendingWithdrawalByIdIndexPrefix,
			types.PendingWithdrawalByIdIndexName,
			collections.Uint64Key,
			collections.TripleKeyCodec(collections.Int64Key, collections.Uint64Key, collections.StringKey),
			func(pk collections.Triple[int64, uint64, string], _ types.PendingWithdrawal) (uint64, error) {
				return pk.K2(), nil
			},
		),
	}
}

// PendingWithdrawalQueue is a time-ordered queue of delayed withdrawals.
type PendingWithdrawalQueue struct {
	// IndexedMap holds the pending withdrawals. The key is a triple of
	// (payout time, id, vault id) so iteration order is settlement order.
	IndexedMap *collections.IndexedMap[collections.Triple[int64, uint64, string], types.PendingWithdrawal, PendingWithdrawalIndexes]
	// Sequence generates unique withdrawal request IDs.
	Sequence collections.Sequence
}

// NewPendingWithdrawalQueue creates a new PendingWithdrawalQueue.
func NewPendingWithdrawalQueue(builder *collections.SchemaBuilder) *PendingWithdrawalQueue {
	keyCodec := collections.TripleKeyCodec(
		collections.Int64Key,
		collections.Uint64Key,
		collections.StringKey,
	)
	return &PendingWithdrawalQueue{
		IndexedMap: collections.NewIndexedMap(
			builder,
			types.PendingWithdrawalQueuePrefix,
			types.PendingWithdrawalQueueName,
			keyCodec,
			types.JSONValue[types.PendingWithdrawal]("types.PendingWithdrawal"),
			NewPendingWithdrawalIndexes(builder),
		),
		Sequence: collections.NewSequence(builder, types.PendingWithdrawalQueueSeqPrefix, types.PendingWithdrawalQueueSeqName),
	}
}

// Enqueue adds a pending withdrawal to the queue and returns its ID.
func (p *PendingWithdrawalQueue) Enqueue(ctx context.Context, payoutTime int64, req types.PendingWithdrawal) (uint64, error) {
	if payoutTime < 0 {
		return 0, fmt.Errorf("payout time cannot be negative")
	}
	if err := req.Validate(); err != nil {
		return 0, fmt.Errorf("invalid pending withdrawal request: %w", err)
	}
	id, err := p.Sequence.Next(ctx)
	if err != nil {
		return 0, err
	}
	return id, p.IndexedMap.Set(ctx, collections.Join3(payoutTime, id, req.VaultId), req)
}

// Dequeue removes a pending withdrawal from the queue. Removing an absent
// entry is not an error.
func (p *PendingWithdrawalQueue) Dequeue(ctx context.Context, payoutTime int64, vaultID string, id uint64) error {
	if payoutTime < 0 {
		return fmt.Errorf("payout time cannot be negative")
	}
	key := collections.Join3(payoutTime, id, vaultID)
	if ok, _ := p.IndexedMap.Has(ctx, key); !ok {
		return nil
	}
	return p.IndexedMap.Remove(ctx, key)
}

// GetByID gets a pending withdrawal and its payout time by ID.
func (p *PendingWithdrawalQueue) GetByID(ctx context.Context, id uint64) (int64, *types.PendingWithdrawal, error) {
	pk, err := p.IndexedMap.Indexes.ByID.MatchExact(ctx, id)
	if err != nil {
		return 0, nil, err
	}

	req, err := p.IndexedMap.Get(ctx, pk)
	if err != nil {
		return 0, nil, err
	}

	return pk.K1(), &req, nil
}

// Expedite sets the payout time of a pending withdrawal to 0 so the next
// settlement pass picks it up.
func (p *PendingWithdrawalQueue) Expedite(ctx context.Context, id uint64) error {
	pk, err := p.IndexedMap.Indexes.ByID.MatchExact(ctx, id)
	if err != nil {
		return err
	}

	req, err := p.IndexedMap.Get(ctx, pk)
	if err != nil {
		return err
	}

	if err := p.IndexedMap.Remove(ctx, pk); err != nil {
		return err
	}

	return p.IndexedMap.Set(ctx, collections.Join3(int64(0), pk.K2(), pk.K3()), req)
}

// WalkDue iterates over all entries with a payout time <= now. Iteration
// stops at the first entry with time > now (keys are time-ordered), or when
// the callback returns stop=true or an error.
func (p *PendingWithdrawalQueue) WalkDue(ctx context.Context, now int64, fn func(payoutTime int64, id uint64, req types.PendingWithdrawal) (stop bool, err error)) error {
	return p.IndexedMap.Walk(ctx, nil, func(key collections.Triple[int64, uint64, string], value types.PendingWithdrawal) (stop bool, err error) {
		if key.K1() > now {
			return true, nil
		}
		return fn(key.K1(), key.K2(), value)
	})
}

// Walk iterates over all entries in the queue.
func (p *PendingWithdrawalQueue) Walk(ctx context.Context, fn func(payoutTime int64, id uint64, req types.PendingWithdrawal) (stop bool, err error)) error {
	return p.IndexedMap.Walk(ctx, nil, func(key collections.Triple[int64, uint64, string], value types.PendingWithdrawal) (stop bool, err error) {
		return fn(key.K1(), key.K2(), value)
	})
}

// WalkByVault iterates over all entries for a specific vault.
func (p *PendingWithdrawalQueue) WalkByVault(ctx context.Context, vaultID string, fn func(payoutTime int64, id uint64, req types.PendingWithdrawal) (stop bool, err error)) error {
	iter, err := p.IndexedMap.Indexes.ByVault.MatchExact(ctx, vaultID)
	if err != nil {
		return err
	}
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		pk, err := iter.PrimaryKey()
		if err != nil {
			return err
		}
		req, err := p.IndexedMap.Get(ctx, pk)
		if err != nil {
			return err
		}
		if stop, err := fn(pk.K1(), pk.K2(), req); stop || err != nil {
			return err
		}
	}
	return nil
}

// Import restores the queue from its genesis form.
func (p *PendingWithdrawalQueue) Import(ctx context.Context, genQueue types.PendingWithdrawalQueueState) error {
	for _, entry := range genQueue.Entries {
		if err := entry.Withdrawal.Validate(); err != nil {
			return fmt.Errorf("invalid pending withdrawal in genesis queue: %w", err)
		}
		if err := p.IndexedMap.Set(ctx, collections.Join3(entry.Time, entry.Id, entry.Withdrawal.VaultId), entry.Withdrawal); err != nil {
			return fmt.Errorf("failed to enqueue pending withdrawal: %w", err)
		}
	}
	if err := p.Sequence.Set(ctx, genQueue.LatestSequenceNumber); err != nil {
		return fmt.Errorf("failed to set latest sequence number for pending withdrawal queue: %w", err)
	}
	return nil
}

// Export dumps the queue into its genesis form.
func (p *PendingWithdrawalQueue) Export(ctx context.Context) (types.PendingWithdrawalQueueState, error) {
	entries := make([]types.PendingWithdrawalQueueEntry, 0)
	err := p.Walk(ctx, func(payoutTime int64, id uint64, req types.PendingWithdrawal) (stop bool, err error) {
		entries = append(entries, types.PendingWithdrawalQueueEntry{
			Time:       payoutTime,
			Id:         id,
			Withdrawal: req,
		})
		return false, nil
	})
	if err != nil {
		return types.PendingWithdrawalQueueState{}, fmt.Errorf("failed to walk pending withdrawal queue: %w", err)
	}

	latestSequenceNumber, err := p.Sequence.Peek(ctx)
	if err != nil {
		return types.PendingWithdrawalQueueState{}, fmt.Errorf("failed to get latest sequence number for pending withdrawal queue: %w", err)
	}

	return types.PendingWithdrawalQueueState{
		LatestSequenceNumber: latestSequenceNumber,
		Entries:              entries,
	}, nil
}
