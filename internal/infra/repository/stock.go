package repository

import (
	"context"

	"keymint/internal/infra"
	"keymint/internal/infra/db"
	"keymint/internal/pkg/pgconv"

	"github.com/google/uuid"
)

// StockRepository keeps the per-tier unsold-key counters. Both mutations
// are single conditional statements so concurrent checkouts can never
// produce a lost update or drive stock below zero.
type StockRepository struct{}

func NewStockRepository() *StockRepository {
	return &StockRepository{}
}

const decrementStockSQL = `
UPDATE pricing_tiers
SET stock_count = stock_count - $2, updated_at = now()
WHERE id = $1 AND stock_count >= $2`

func (r *StockRepository) Decrement(ctx context.Context, tx db.DBTX, tierID uuid.UUID, n int32) error {
	tag, err := tx.Exec(ctx, decrementStockSQL, tierID, n)
	if err != nil {
		return infra.WrapRepoErr("failed to decrement stock", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing tier from exhausted stock.
		var current int32
		err := tx.QueryRow(ctx, `SELECT stock_count FROM pricing_tiers WHERE id = $1`, tierID).Scan(&current)
		if err != nil {
			if pgconv.IsNoRows(err) {
				return infra.WrapRepoErr("pricing tier not found", nil, infra.KindNotFound)
			}
			return infra.WrapRepoErr("failed to read stock after rejected decrement", err)
		}
		return infra.WrapRepoErr("stock exhausted", nil, infra.KindStockExhausted)
	}
	return nil
}

const incrementStockSQL = `
UPDATE pricing_tiers
SET stock_count = stock_count + $2, updated_at = now()
WHERE id = $1`

func (r *StockRepository) Increment(ctx context.Context, tx db.DBTX, tierID uuid.UUID, n int32) error {
	tag, err := tx.Exec(ctx, incrementStockSQL, tierID, n)
	if err != nil {
		return infra.WrapRepoErr("failed to increment stock", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("pricing tier not found", nil, infra.KindNotFound)
	}
	return nil
}
