package shared

import (
	"context"
	"time"

	"keymint/internal/domain/key"
	"keymint/internal/domain/order"
	"keymint/internal/infra/db"
	"keymint/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrTransactionBegin   = errs.New("failed to begin transaction")
	ErrTransactionCommit  = errs.New("failed to commit transaction")
	ErrMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with bounded retry on
	// serialization conflicts
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error
}

type Tx interface {
	Orders() OrderRepository
	Keys() ProductKeyRepository
	Snapshots() KeySnapshotRepository
	Stock() StockLedger
	DB() db.DBTX
}

type OrderRepository interface {
	Create(ctx context.Context, tx db.DBTX, o *order.Order) error
	// FindForUpdate loads the order under a row lock, so a state-machine
	// decision made on the loaded entity holds until the transaction
	// commits. Missing orders report KindNotFound.
	FindForUpdate(ctx context.Context, tx db.DBTX, id uuid.UUID) (*order.Order, error)
	UpdateStatus(ctx context.Context, tx db.DBTX, o *order.Order) error
	SetInvoice(ctx context.Context, tx db.DBTX, o *order.Order) error
}

type ProductKeyRepository interface {
	// ReserveForTier claims up to quantity unsold keys of the tier, skipping
	// ids already claimed earlier in the same transaction. Fewer rows than
	// quantity means the tier ran dry; the caller aborts the transaction.
	ReserveForTier(ctx context.Context, tx db.DBTX, tierID uuid.UUID, quantity int32, exclude []uuid.UUID, expiresAt *time.Time) ([]*key.ProductKey, error)
	// FindForUpdate locks the given keys so ownership decisions made on
	// the loaded entities hold until commit.
	FindForUpdate(ctx context.Context, tx db.DBTX, keyIDs []uuid.UUID) ([]*key.ProductKey, error)
	// AssignOwner persists ownership on keys the reconciler assigned.
	AssignOwner(ctx context.Context, tx db.DBTX, keyIDs []uuid.UUID, ownerID uuid.UUID) error
	// Release frees the given keys back to the unsold pool.
	Release(ctx context.Context, tx db.DBTX, keyIDs []uuid.UUID) error
}

type KeySnapshotRepository interface {
	CreateBatch(ctx context.Context, tx db.DBTX, snapshots []*order.KeySnapshot) error
	VoidByOrder(ctx context.Context, tx db.DBTX, orderID uuid.UUID) error
}

// StockLedger is the atomic per-tier counter of unsold keys. Both
// operations are single store-level statements, never read-then-write.
type StockLedger interface {
	// Decrement fails with KindStockExhausted and no partial effect if the
	// resulting stock would go below zero.
	Decrement(ctx context.Context, tx db.DBTX, tierID uuid.UUID, n int32) error
	// Increment is an unconditional atomic add, used only to reverse a
	// prior decrement.
	Increment(ctx context.Context, tx db.DBTX, tierID uuid.UUID, n int32) error
}
