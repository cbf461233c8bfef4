package keeper

import (
	"context"
	"fmt"
	"sync"

	"cosmossdk.io/collections"
	"cosmossdk.io/core/event"
	"cosmossdk.io/core/store"
	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/queue"
	"github.com/strandlabs/vault/types"
)

// Keeper owns all vault accounting state: the vault records with their two
// authoritative counters, the share ledger, share allowances, and the
// pending withdrawal queue. Asset sources are runtime collaborators
// registered per vault; they hold custody but never accounting truth.
type Keeper struct {
	schema       collections.Schema
	eventService event.Service
	logger       log.Logger

	Vaults                 collections.Map[string, types.VaultState]
	Shares                 collections.Map[collections.Pair[string, string], sdkmath.Int]
	Allowances             collections.Map[collections.Triple[string, string, string], sdkmath.Int]
	PendingWithdrawalQueue *queue.PendingWithdrawalQueue

	sourcesMu    sync.RWMutex
	assetSources map[string]types.AssetSource

	// vaultLocks serializes operations per vault so every operation runs
	// against a consistent snapshot of the counters (meta-vault composition
	// may take the inner vault's lock while holding the outer one).
	vaultLocks sync.Map
}

// NewKeeper wires the module's collections schema over the host store
// service. The event service and logger come from the host as well.
func NewKeeper(
	storeService store.KVStoreService,
	eventService event.Service,
	logger log.Logger,
) *Keeper {
	builder := collections.NewSchemaBuilder(storeService)

	keeper := &Keeper{
		eventService: eventService,
		logger:       logger.With("module", "x/"+types.ModuleName),
		Vaults: collections.NewMap(
			builder, types.VaultsKeyPrefix, types.VaultsName,
			collections.StringKey, types.JSONValue[types.VaultState]("types.VaultState"),
		),
		Shares: collections.NewMap(
			builder, types.SharesKeyPrefix, types.SharesName,
			collections.PairKeyCodec(collections.StringKey, collections.StringKey), types.IntValue,
		),
		Allowances: collections.NewMap(
			builder, types.AllowancesKeyPrefix, types.AllowancesName,
			collections.TripleKeyCodec(collections.StringKey, collections.StringKey, collections.StringKey), types.IntValue,
		),
		PendingWithdrawalQueue: queue.NewPendingWithdrawalQueue(builder),
		assetSources:           make(map[string]types.AssetSource),
	}

	schema, err := builder.Build()
	if err != nil {
		panic(err)
	}

	keeper.schema = schema
	return keeper
}

// Logger returns the keeper's module-scoped logger.
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// RegisterAssetSource binds the custody collaborator for a vault. It must be
// called before any operation on the vault moves funds, and again after a
// process restart (sources are runtime wiring, not persisted state).
func (k *Keeper) RegisterAssetSource(vaultID string, src types.AssetSource) {
	k.sourcesMu.Lock()
	defer k.sourcesMu.Unlock()
	k.assetSources[vaultID] = src
}

// assetSource resolves the registered custody collaborator for a vault.
func (k *Keeper) assetSource(vaultID string) (types.AssetSource, error) {
	k.sourcesMu.RLock()
	defer k.sourcesMu.RUnlock()
	src, ok := k.assetSources[vaultID]
	if !ok {
		return nil, fmt.Errorf("no asset source registered for vault %q", vaultID)
	}
	return src, nil
}

// lockVault acquires the per-vault operation lock and returns its unlock.
func (k *Keeper) lockVault(vaultID string) func() {
	muAny, _ := k.vaultLocks.LoadOrStore(vaultID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// emitEvent forwards a typed event to the host event service. Emission
// failures are logged, never fatal to the operation.
func (k *Keeper) emitEvent(ctx context.Context, e types.Event) {
	if k.eventService == nil {
		return
	}
	if err := k.eventService.EventManager(ctx).EmitKV(e.Type, e.Attributes...); err != nil {
		k.logger.Error("failed to emit event", "type", e.Type, "err", err)
	}
}
