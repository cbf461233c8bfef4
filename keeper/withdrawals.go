package keeper

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/strandlabs/vault/types"
)

// Refund reasons attached to withdrawal refund events.
const (
	RefundReasonHalted       = "vault_halted"
	RefundReasonInsufficient = "insufficient_assets"
)

// RequestWithdrawal queues a delayed withdrawal. The owner's shares move to
// the vault's escrow account immediately and the asset payout is fixed at
// the current exchange rate; yield earned while the request waits accrues
// to the remaining holders.
func (k *Keeper) RequestWithdrawal(ctx context.Context, vaultID, owner, receiver string, shares sdkmath.Int, now int64) (uint64, error) {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return 0, err
	}
	if halted(v) {
		return 0, types.ErrVaultHalted.Wrap(vaultID)
	}
	assets, err := quoteRedeem(v, shares)
	if err != nil {
		return 0, err
	}

	if err := k.transferShares(ctx, vaultID, owner, types.EscrowOwner(vaultID), shares); err != nil {
		return 0, err
	}

	payoutTime := now + int64(v.WithdrawalDelaySeconds)
	id, err := k.PendingWithdrawalQueue.Enqueue(ctx, payoutTime, types.PendingWithdrawal{
		VaultId:  vaultID,
		Owner:    owner,
		Receiver: receiver,
		Shares:   shares,
		Assets:   assets,
	})
	if err != nil {
		if rerr := k.transferShares(ctx, vaultID, types.EscrowOwner(vaultID), owner, shares); rerr != nil {
			k.logger.Error("failed to return escrowed shares", "vault", vaultID, "owner", owner, "err", rerr)
		}
		return 0, err
	}

	k.emitEvent(ctx, types.NewEventWithdrawalRequested(vaultID, owner, assets, shares, id, payoutTime))
	return id, nil
}

// ExpediteWithdrawal reschedules a pending request so the next settlement
// pass picks it up. Admin only.
func (k *Keeper) ExpediteWithdrawal(ctx context.Context, vaultID, authority string, id uint64) error {
	unlock := k.lockVault(vaultID)
	defer unlock()

	v, err := k.GetVault(ctx, vaultID)
	if err != nil {
		return err
	}
	if authority != v.Admin {
		return types.ErrUnauthorized.Wrapf("%s is not the vault admin", authority)
	}
	_, req, err := k.PendingWithdrawalQueue.GetByID(ctx, id)
	if err != nil {
		return types.ErrInvalidRequest.Wrapf("pending withdrawal %d not found", id)
	}
	if req.VaultId != vaultID {
		return types.ErrInvalidRequest.Wrapf("pending withdrawal %d does not belong to vault %s", id, vaultID)
	}
	return k.PendingWithdrawalQueue.Expedite(ctx, id)
}

// dueWithdrawal is one settlement candidate collected before any state is
// mutated, so iteration never runs concurrently with removal.
type dueWithdrawal struct {
	payoutTime int64
	id         uint64
	req        types.PendingWithdrawal
}

// ProcessDueWithdrawals settles every request whose payout time has passed.
// Requests against a halted vault, or whose fixed payout the vault can no
// longer cover, refund the escrowed shares to the owner instead. A failed
// settlement is logged and skipped; the remaining requests still run.
func (k *Keeper) ProcessDueWithdrawals(ctx context.Context, now int64) error {
	due := make([]dueWithdrawal, 0)
	err := k.PendingWithdrawalQueue.WalkDue(ctx, now, func(payoutTime int64, id uint64, req types.PendingWithdrawal) (bool, error) {
		due = append(due, dueWithdrawal{payoutTime: payoutTime, id: id, req: req})
		return false, nil
	})
	if err != nil {
		return err
	}

	for _, d := range due {
		if err := k.PendingWithdrawalQueue.Dequeue(ctx, d.payoutTime, d.req.VaultId, d.id); err != nil {
			k.logger.Error("failed to dequeue pending withdrawal", "id", d.id, "vault", d.req.VaultId, "err", err)
			continue
		}
		if err := k.settleWithdrawal(ctx, d.id, d.req); err != nil {
			k.logger.Error("failed to settle pending withdrawal", "id", d.id, "vault", d.req.VaultId, "err", err)
		}
	}
	return nil
}

// settleWithdrawal burns the escrowed shares and pays the fixed asset
// amount, or refunds the escrow when the vault cannot honor the request.
func (k *Keeper) settleWithdrawal(ctx context.Context, id uint64, req types.PendingWithdrawal) error {
	unlock := k.lockVault(req.VaultId)
	defer unlock()

	v, err := k.GetVault(ctx, req.VaultId)
	if err != nil {
		return err
	}

	if halted(v) {
		return k.refundWithdrawal(ctx, id, req, RefundReasonHalted)
	}
	if req.Assets.GT(v.TotalAssets) {
		return k.refundWithdrawal(ctx, id, req, RefundReasonInsufficient)
	}

	src, err := k.assetSource(req.VaultId)
	if err != nil {
		return err
	}
	escrow := types.EscrowOwner(req.VaultId)

	restore, err := k.snapshot(ctx, v, escrow)
	if err != nil {
		return err
	}

	if err := k.burnShares(ctx, req.VaultId, escrow, req.Shares); err != nil {
		return err
	}
	v.TotalShares = v.TotalShares.Sub(req.Shares)
	v.TotalAssets = v.TotalAssets.Sub(req.Assets)
	k.maybeHalt(ctx, &v)
	if err := k.setVault(ctx, v); err != nil {
		restore(ctx)
		return err
	}

	if err := src.TransferOut(ctx, req.Receiver, req.Assets); err != nil {
		restore(ctx)
		return types.ErrTransferFailed.Wrap(err.Error())
	}

	k.emitEvent(ctx, types.NewEventWithdrawalSettled(req.VaultId, req.Owner, req.Assets, req.Shares, id))
	return nil
}

// refundWithdrawal returns escrowed shares to the owner without a payout.
func (k *Keeper) refundWithdrawal(ctx context.Context, id uint64, req types.PendingWithdrawal, reason string) error {
	if err := k.transferShares(ctx, req.VaultId, types.EscrowOwner(req.VaultId), req.Owner, req.Shares); err != nil {
		return err
	}
	k.emitEvent(ctx, types.NewEventWithdrawalRefunded(req.VaultId, req.Owner, reason, req.Shares, id))
	return nil
}
