package commands

import (
	"context"
	"errors"
	"log/slog"

	"keymint/internal/domain/cart"
	"keymint/internal/domain/catalog"
	"keymint/internal/domain/order"
	"keymint/internal/infra"
	"keymint/internal/pkg/clock"
	"keymint/internal/pkg/errs"
	"keymint/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

var (
	ErrInvalidProduct          = errs.New("invalid product")
	ErrInsufficientStock       = errs.New("insufficient stock")
	ErrInsufficientKeys        = errs.New("insufficient keys")
	ErrAmountMismatch          = errs.New("amount does not match cart total")
	ErrAllocationConflict      = errs.New("allocation conflict")
	ErrGatewayFailure          = errs.New("invoice gateway failure")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

type CheckoutInput struct {
	PurchaserID uuid.UUID
	AmountCents int64
	Cart        cart.Cart
}

type CheckoutResult struct {
	OrderID      uuid.UUID
	CheckoutLink string
	Snapshots    []*order.KeySnapshot
}

type CheckoutCommands interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
}

type checkoutUseCaseImpl struct {
	uow     shared.UnitOfWork
	catalog shared.CatalogReads
	gateway shared.InvoiceGateway
	clock   clock.Clock
}

func NewCheckoutCommands(
	uow shared.UnitOfWork,
	catalog shared.CatalogReads,
	gateway shared.InvoiceGateway,
	clock clock.Clock,
) CheckoutCommands {
	return &checkoutUseCaseImpl{
		uow:     uow,
		catalog: catalog,
		gateway: gateway,
		clock:   clock,
	}
}

// resolvedTier pairs the catalog entities a cart line resolved to with
// the raw pricing row that gets copied into snapshots.
type resolvedTier struct {
	product *catalog.Product
	tier    *catalog.PricingTier
	snap    *shared.TierSnapshot
}

func (c *checkoutUseCaseImpl) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	tiers, err := c.validateCart(ctx, input.Cart)
	if err != nil {
		return nil, err
	}

	total := cartTotal(input.Cart, tiers)
	if input.AmountCents != total {
		return nil, ErrAmountMismatch
	}

	ord, snapshots, keyIDs, err := c.allocate(ctx, input, tiers)
	if err != nil {
		return nil, err
	}

	invoice, err := c.gateway.CreateInvoice(ctx, shared.InvoiceRequest{
		AmountCents: total,
		OrderID:     ord.ID(),
		PurchaserID: input.PurchaserID,
		KeyIDs:      keyIDs,
	})
	if err != nil {
		// The allocation is already committed; reverse it explicitly
		// before surfacing the gateway failure.
		if compErr := c.compensate(ctx, ord.ID(), keyIDs); compErr != nil {
			slog.Error("compensating release failed after gateway error",
				"order_id", ord.ID(), "error", compErr.Error())
		}
		return nil, errs.Mark(err, ErrGatewayFailure)
	}

	if err := c.attachInvoice(ctx, ord.ID(), invoice.InvoiceID, invoice.CheckoutURL); err != nil {
		// The invoice exists and the caller still gets the link; an order
		// row without it is recoverable from the provider side.
		slog.Warn("failed to persist invoice reference",
			"order_id", ord.ID(), "error", err.Error())
	}

	return &CheckoutResult{
		OrderID:      ord.ID(),
		CheckoutLink: invoice.CheckoutURL,
		Snapshots:    snapshots,
	}, nil
}

// validateCart resolves every line to its catalog entities and pre-checks
// stock. The check is advisory: stock can change before allocation, which
// re-enforces it atomically.
func (c *checkoutUseCaseImpl) validateCart(ctx context.Context, crt cart.Cart) (map[uuid.UUID]*resolvedTier, error) {
	tiers := make(map[uuid.UUID]*resolvedTier)
	for _, line := range crt.Lines() {
		if _, seen := tiers[line.PricingTierID()]; seen {
			continue
		}
		ts, err := c.catalog.TierByID(ctx, line.PricingTierID())
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, ErrInvalidProduct
			}
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}

		product, err := catalog.NewProduct(ts.ProductID, ts.ProductName)
		if err != nil {
			return nil, errs.Mark(err, ErrInvalidProduct)
		}
		tier, err := catalog.NewPricingTier(ts.ID, ts.ProductID, ts.TierName, ts.DurationDays, ts.UnitPriceCents, ts.StockCount)
		if err != nil {
			return nil, errs.Mark(err, ErrInvalidProduct)
		}

		tiers[ts.ID] = &resolvedTier{product: product, tier: tier, snap: ts}
	}

	for _, line := range crt.Lines() {
		if tiers[line.PricingTierID()].product.Name() != line.ProductName() {
			return nil, ErrInvalidProduct
		}
	}
	for tierID, quantity := range crt.QuantityPerTier() {
		if !tiers[tierID].tier.HasStock(quantity) {
			return nil, ErrInsufficientStock
		}
	}

	return tiers, nil
}

// allocate runs the all-or-nothing reservation transaction: every cart
// line claims its full quantity, the stock ledger is decremented per
// tier, and one snapshot per key is persisted. Any shortfall aborts the
// whole transaction with nothing persisted.
func (c *checkoutUseCaseImpl) allocate(
	ctx context.Context,
	input CheckoutInput,
	tiers map[uuid.UUID]*resolvedTier,
) (*order.Order, []*order.KeySnapshot, []uuid.UUID, error) {
	now := c.clock.Now()
	ord := order.NewOrder(input.PurchaserID, now)

	var (
		snapshots []*order.KeySnapshot
		keyIDs    []uuid.UUID
	)

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		// Reset accumulated state in case the transaction is retried.
		snapshots = nil
		keyIDs = nil

		if err := tx.Orders().Create(ctx, tx.DB(), ord); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		claimed := make([]uuid.UUID, 0, input.Cart.TotalQuantity())
		for _, line := range input.Cart.Lines() {
			rt := tiers[line.PricingTierID()]
			expiry := rt.tier.ExpiryFrom(now)

			reserved, err := tx.Keys().ReserveForTier(ctx, tx.DB(), rt.tier.ID(), line.Quantity(), claimed, expiry)
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			if int32(len(reserved)) < line.Quantity() {
				return ErrInsufficientKeys
			}

			if err := tx.Stock().Decrement(ctx, tx.DB(), rt.tier.ID(), line.Quantity()); err != nil {
				if infra.IsKind(err, infra.KindStockExhausted) {
					return ErrInsufficientKeys
				}
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}

			for _, k := range reserved {
				// Pricing is copied by value so later tier edits never
				// rewrite sold-order history.
				var pricing order.Pricing
				if err := copier.Copy(&pricing, rt.snap); err != nil {
					return errs.Mark(err, ErrDatabaseOperationFailed)
				}
				snapshots = append(snapshots, order.NewKeySnapshot(
					ord.ID(), k.ID(), rt.product.Name(), pricing, k.Secret(), expiry, now))
				claimed = append(claimed, k.ID())
				keyIDs = append(keyIDs, k.ID())
			}
		}

		if err := tx.Snapshots().CreateBatch(ctx, tx.DB(), snapshots); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrMaxRetriesExceeded) {
			return nil, nil, nil, errs.Mark(err, ErrAllocationConflict)
		}
		return nil, nil, nil, err
	}

	return ord, snapshots, keyIDs, nil
}

// compensate reverses a committed allocation whose invoice could not be
// created: the order expires, unowned keys return to the pool, snapshots
// are voided and the stock ledger is credited per tier.
func (c *checkoutUseCaseImpl) compensate(ctx context.Context, orderID uuid.UUID, keyIDs []uuid.UUID) error {
	now := c.clock.Now()
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ord, err := tx.Orders().FindForUpdate(ctx, tx.DB(), orderID)
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

		perTier, err := releaseUnowned(ctx, tx, keyIDs)
		if err != nil {
			return err
		}
		for tierID, n := range perTier {
			if err := tx.Stock().Increment(ctx, tx.DB(), tierID, n); err != nil {
				return err
			}
		}

		return tx.Snapshots().VoidByOrder(ctx, tx.DB(), orderID)
	})
}

func (c *checkoutUseCaseImpl) attachInvoice(ctx context.Context, orderID uuid.UUID, invoiceID, link string) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ord, err := tx.Orders().FindForUpdate(ctx, tx.DB(), orderID)
		if err != nil {
			return err
		}
		ord.AttachInvoice(invoiceID, link)
		return tx.Orders().SetInvoice(ctx, tx.DB(), ord)
	})
}

// releaseUnowned frees the still-unowned keys among the given ids and
// reports how many were freed per tier so the stock ledger can be
// credited. Keys that gained an owner stay sold.
func releaseUnowned(ctx context.Context, tx shared.Tx, keyIDs []uuid.UUID) (map[uuid.UUID]int32, error) {
	keys, err := tx.Keys().FindForUpdate(ctx, tx.DB(), keyIDs)
	if err != nil {
		return nil, err
	}

	released := make([]uuid.UUID, 0, len(keys))
	perTier := make(map[uuid.UUID]int32)
	for _, k := range keys {
		if !k.IsReserved() {
			continue
		}
		if err := k.Release(); err != nil {
			continue
		}
		released = append(released, k.ID())
		perTier[k.PricingTierID()]++
	}
	if len(released) == 0 {
		return perTier, nil
	}

	if err := tx.Keys().Release(ctx, tx.DB(), released); err != nil {
		return nil, err
	}
	return perTier, nil
}

func cartTotal(crt cart.Cart, tiers map[uuid.UUID]*resolvedTier) int64 {
	var total int64
	for _, line := range crt.Lines() {
		total += tiers[line.PricingTierID()].tier.UnitPriceCents() * int64(line.Quantity())
	}
	return total
}
