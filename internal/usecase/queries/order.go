package queries

import (
	"context"

	"keymint/internal/domain/identity"
	"keymint/internal/infra"
	"keymint/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrOrderNotFound = errs.New("order not found")

type OrderReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	FindByPurchaser(ctx context.Context, purchaserID uuid.UUID) ([]*OrderListItem, error)
}

type OrderQueries interface {
	GetOrder(ctx context.Context, id uuid.UUID, requester identity.User) (*OrderView, error)
	ListOrders(ctx context.Context, requester identity.User) ([]*OrderListItem, error)
}

type orderQueriesImpl struct {
	orders OrderReadStore
}

func NewOrderQueries(orders OrderReadStore) OrderQueries {
	return &orderQueriesImpl{orders: orders}
}

func (q *orderQueriesImpl) GetOrder(ctx context.Context, id uuid.UUID, requester identity.User) (*OrderView, error) {
	view, err := q.orders.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errs.Wrap(err, "failed to find order")
	}

	// Purchasers see only their own orders; an absent order and a foreign
	// order are indistinguishable to the caller.
	if view.PurchaserID != requester.ID && requester.Role != identity.RoleAdmin {
		return nil, ErrOrderNotFound
	}

	return view, nil
}

func (q *orderQueriesImpl) ListOrders(ctx context.Context, requester identity.User) ([]*OrderListItem, error) {
	items, err := q.orders.FindByPurchaser(ctx, requester.ID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list orders")
	}
	return items, nil
}
