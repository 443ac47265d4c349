package commands

import (
	"context"
	"log/slog"

	"keymint/internal/infra"
	"keymint/internal/pkg/clock"
	"keymint/internal/pkg/errs"
	"keymint/internal/usecase/shared"

	"github.com/google/uuid"
)

var ErrUnknownEventType = errs.New("unknown webhook event type")

type EventType string

const (
	EventInvoiceSettled EventType = "InvoiceSettled"
	EventInvoiceExpired EventType = "InvoiceExpired"
)

// WebhookEvent is a payment-provider delivery. Deliveries are
// at-least-once and may arrive duplicated or out of order.
type WebhookEvent struct {
	Type        EventType
	OrderID     uuid.UUID
	PurchaserID uuid.UUID
	KeyIDs      []uuid.UUID
}

// WebhookResult reports what the reconciler actually did. A losing
// duplicate or a delivery for an unknown order transitions nothing and
// touches no keys.
type WebhookResult struct {
	Transitioned bool
	KeysAffected int64
}

type WebhookCommands interface {
	Handle(ctx context.Context, event WebhookEvent) (*WebhookResult, error)
}

type webhookUseCaseImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewWebhookCommands(uow shared.UnitOfWork, clock clock.Clock) WebhookCommands {
	return &webhookUseCaseImpl{
		uow:   uow,
		clock: clock,
	}
}

func (w *webhookUseCaseImpl) Handle(ctx context.Context, event WebhookEvent) (*WebhookResult, error) {
	switch event.Type {
	case EventInvoiceSettled:
		return w.settle(ctx, event)
	case EventInvoiceExpired:
		return w.expire(ctx, event)
	default:
		return nil, ErrUnknownEventType
	}
}

// settle finalizes ownership. The order is locked and transitioned
// through the domain state machine in the same transaction as the key
// mutation, so only the first winning delivery touches keys; no stock
// change, it was decremented at allocation.
func (w *webhookUseCaseImpl) settle(ctx context.Context, event WebhookEvent) (*WebhookResult, error) {
	result := &WebhookResult{}
	now := w.clock.Now()

	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ord, err := tx.Orders().FindForUpdate(ctx, tx.DB(), event.OrderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return err
		}
		if !ord.MarkPaid(now) {
			return nil
		}
		if err := tx.Orders().UpdateStatus(ctx, tx.DB(), ord); err != nil {
			return err
		}
		result.Transitioned = true

		keys, err := tx.Keys().FindForUpdate(ctx, tx.DB(), event.KeyIDs)
		if err != nil {
			return err
		}
		toAssign := make([]uuid.UUID, 0, len(keys))
		for _, k := range keys {
			if err := k.Assign(event.PurchaserID); err != nil {
				continue
			}
			toAssign = append(toAssign, k.ID())
		}
		if len(toAssign) == 0 {
			return nil
		}

		if err := tx.Keys().AssignOwner(ctx, tx.DB(), toAssign, event.PurchaserID); err != nil {
			return err
		}
		result.KeysAffected = int64(len(toAssign))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Transitioned {
		slog.Info("settled webhook ignored for non-unpaid order", "order_id", event.OrderID)
	}
	return result, nil
}

// expire reverses the pending allocation: unowned keys return to the
// pool and the stock ledger is credited by the count actually reversed
// per tier.
func (w *webhookUseCaseImpl) expire(ctx context.Context, event WebhookEvent) (*WebhookResult, error) {
	result := &WebhookResult{}
	now := w.clock.Now()

	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ord, err := tx.Orders().FindForUpdate(ctx, tx.DB(), event.OrderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return err
		}
		if !ord.MarkExpired(now) {
			return nil
		}
		if err := tx.Orders().UpdateStatus(ctx, tx.DB(), ord); err != nil {
			return err
		}
		result.Transitioned = true

		perTier, err := releaseUnowned(ctx, tx, event.KeyIDs)
		if err != nil {
			return err
		}
		for tierID, n := range perTier {
			if err := tx.Stock().Increment(ctx, tx.DB(), tierID, n); err != nil {
				return err
			}
			result.KeysAffected += int64(n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Transitioned {
		slog.Info("expired webhook ignored for non-unpaid order", "order_id", event.OrderID)
	}
	return result, nil
}
