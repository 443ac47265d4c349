//go:build unit

package commands_test

import (
	"context"
	"fmt"
	"time"

	"keymint/internal/domain/key"
	"keymint/internal/domain/order"
	"keymint/internal/infra"
	"keymint/internal/infra/db"
	"keymint/internal/usecase/shared"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the persistence layer. Within
// snapshots the state up front and restores it when the function fails,
// mirroring transaction rollback.
type memStore struct {
	orders    map[uuid.UUID]*orderRow
	keys      []*keyRow
	stock     map[uuid.UUID]int32
	snapshots map[uuid.UUID][]*snapRow
}

type orderRow struct {
	purchaserID uuid.UUID
	status      order.Status
	invoiceID   string
	invoiceLink string
	createdAt   time.Time
	updatedAt   time.Time
}

type keyRow struct {
	id        uuid.UUID
	productID uuid.UUID
	tierID    uuid.UUID
	secret    string
	reserved  bool
	ownerID   *uuid.UUID
	expiresAt *time.Time
}

type snapRow struct {
	snapshot *order.KeySnapshot
	void     bool
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[uuid.UUID]*orderRow),
		stock:     make(map[uuid.UUID]int32),
		snapshots: make(map[uuid.UUID][]*snapRow),
	}
}

func (s *memStore) addKeys(tierID uuid.UUID, n int) {
	for i := 0; i < n; i++ {
		s.keys = append(s.keys, &keyRow{
			id:        uuid.New(),
			productID: uuid.New(),
			tierID:    tierID,
			secret:    fmt.Sprintf("KEY-%s-%d", tierID.String()[:8], len(s.keys)),
		})
	}
}

func (s *memStore) freeKeyCount(tierID uuid.UUID) int {
	n := 0
	for _, k := range s.keys {
		if k.tierID == tierID && !k.reserved {
			n++
		}
	}
	return n
}

func (s *memStore) ownedKeyCount(ownerID uuid.UUID) int {
	n := 0
	for _, k := range s.keys {
		if k.ownerID != nil && *k.ownerID == ownerID {
			n++
		}
	}
	return n
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for id, o := range s.orders {
		cp := *o
		c.orders[id] = &cp
	}
	for _, k := range s.keys {
		cp := *k
		if k.ownerID != nil {
			owner := *k.ownerID
			cp.ownerID = &owner
		}
		if k.expiresAt != nil {
			exp := *k.expiresAt
			cp.expiresAt = &exp
		}
		c.keys = append(c.keys, &cp)
	}
	for id, n := range s.stock {
		c.stock[id] = n
	}
	for id, rows := range s.snapshots {
		cs := make([]*snapRow, len(rows))
		for i, r := range rows {
			cp := *r
			cs[i] = &cp
		}
		c.snapshots[id] = cs
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.orders = from.orders
	s.keys = from.keys
	s.stock = from.stock
	s.snapshots = from.snapshots
}

// UnitOfWork

func (s *memStore) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	saved := s.clone()
	if err := fn(ctx, s); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

func (s *memStore) WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error {
	return fn(ctx, nil)
}

// Tx

func (s *memStore) Orders() shared.OrderRepository          { return s }
func (s *memStore) Keys() shared.ProductKeyRepository       { return memKeys{s} }
func (s *memStore) Snapshots() shared.KeySnapshotRepository { return s }
func (s *memStore) Stock() shared.StockLedger               { return s }
func (s *memStore) DB() db.DBTX                             { return nil }

// OrderRepository

func (s *memStore) Create(_ context.Context, _ db.DBTX, o *order.Order) error {
	s.orders[o.ID()] = &orderRow{
		purchaserID: o.PurchaserID(),
		status:      o.Status(),
		invoiceID:   o.InvoiceID(),
		invoiceLink: o.InvoiceLink(),
		createdAt:   o.CreatedAt(),
		updatedAt:   o.UpdatedAt(),
	}
	return nil
}

func (s *memStore) FindForUpdate(_ context.Context, _ db.DBTX, id uuid.UUID) (*order.Order, error) {
	row, ok := s.orders[id]
	if !ok {
		return nil, infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	return order.Reconstruct(id, row.purchaserID, row.invoiceID, row.invoiceLink,
		row.status, row.createdAt, row.updatedAt), nil
}

func (s *memStore) UpdateStatus(_ context.Context, _ db.DBTX, o *order.Order) error {
	row, ok := s.orders[o.ID()]
	if !ok {
		return infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	row.status = o.Status()
	row.updatedAt = o.UpdatedAt()
	return nil
}

func (s *memStore) SetInvoice(_ context.Context, _ db.DBTX, o *order.Order) error {
	row, ok := s.orders[o.ID()]
	if !ok {
		return infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	row.invoiceID = o.InvoiceID()
	row.invoiceLink = o.InvoiceLink()
	return nil
}

// ProductKeyRepository. A separate receiver keeps the key methods from
// clashing with the order methods of the same names.

type memKeys struct {
	s *memStore
}

func (m memKeys) ReserveForTier(_ context.Context, _ db.DBTX, tierID uuid.UUID, quantity int32, exclude []uuid.UUID, expiresAt *time.Time) ([]*key.ProductKey, error) {
	s := m.s
	excluded := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var reserved []*key.ProductKey
	for _, k := range s.keys {
		if int32(len(reserved)) == quantity {
			break
		}
		if k.tierID != tierID || k.reserved || excluded[k.id] {
			continue
		}
		k.reserved = true
		k.expiresAt = expiresAt
		entity, err := k.toEntity()
		if err != nil {
			return nil, err
		}
		reserved = append(reserved, entity)
	}
	return reserved, nil
}

func (m memKeys) FindForUpdate(_ context.Context, _ db.DBTX, keyIDs []uuid.UUID) ([]*key.ProductKey, error) {
	s := m.s
	wanted := make(map[uuid.UUID]bool, len(keyIDs))
	for _, id := range keyIDs {
		wanted[id] = true
	}

	var keys []*key.ProductKey
	for _, k := range s.keys {
		if !wanted[k.id] {
			continue
		}
		entity, err := k.toEntity()
		if err != nil {
			return nil, err
		}
		keys = append(keys, entity)
	}
	return keys, nil
}

func (m memKeys) AssignOwner(_ context.Context, _ db.DBTX, keyIDs []uuid.UUID, ownerID uuid.UUID) error {
	for _, k := range m.s.keys {
		for _, id := range keyIDs {
			if k.id == id && k.reserved && k.ownerID == nil {
				owner := ownerID
				k.ownerID = &owner
			}
		}
	}
	return nil
}

func (m memKeys) Release(_ context.Context, _ db.DBTX, keyIDs []uuid.UUID) error {
	for _, k := range m.s.keys {
		for _, id := range keyIDs {
			if k.id == id && k.ownerID == nil {
				k.reserved = false
				k.expiresAt = nil
			}
		}
	}
	return nil
}

func (k *keyRow) toEntity() (*key.ProductKey, error) {
	var owner *uuid.UUID
	if k.ownerID != nil {
		o := *k.ownerID
		owner = &o
	}
	var exp *time.Time
	if k.expiresAt != nil {
		e := *k.expiresAt
		exp = &e
	}
	return key.Reconstruct(k.id, k.productID, k.tierID, k.secret, k.reserved, owner, nil, exp)
}

// KeySnapshotRepository

func (s *memStore) CreateBatch(_ context.Context, _ db.DBTX, snapshots []*order.KeySnapshot) error {
	for _, snap := range snapshots {
		s.snapshots[snap.OrderID] = append(s.snapshots[snap.OrderID], &snapRow{snapshot: snap})
	}
	return nil
}

func (s *memStore) VoidByOrder(_ context.Context, _ db.DBTX, orderID uuid.UUID) error {
	for _, row := range s.snapshots[orderID] {
		row.void = true
	}
	return nil
}

// StockLedger

func (s *memStore) Decrement(_ context.Context, _ db.DBTX, tierID uuid.UUID, n int32) error {
	if s.stock[tierID] < n {
		return infra.WrapRepoErr("stock exhausted", nil, infra.KindStockExhausted)
	}
	s.stock[tierID] -= n
	return nil
}

func (s *memStore) Increment(_ context.Context, _ db.DBTX, tierID uuid.UUID, n int32) error {
	s.stock[tierID] += n
	return nil
}

// conflictUoW simulates a write set that never stops colliding: every
// transaction ends in retry exhaustion.
type conflictUoW struct{}

func (conflictUoW) Within(context.Context, func(context.Context, shared.Tx) error) error {
	return shared.ErrMaxRetriesExceeded
}

func (conflictUoW) WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error {
	return fn(ctx, nil)
}

// fakeCatalog resolves tiers from a fixed map.
type fakeCatalog struct {
	tiers map[uuid.UUID]*shared.TierSnapshot
}

func (f *fakeCatalog) TierByID(_ context.Context, id uuid.UUID) (*shared.TierSnapshot, error) {
	ts, ok := f.tiers[id]
	if !ok {
		return nil, infra.WrapRepoErr("pricing tier not found", nil, infra.KindNotFound)
	}
	cp := *ts
	return &cp, nil
}

// fakeGateway records invoice requests and returns a canned result.
type fakeGateway struct {
	err      error
	result   shared.InvoiceResult
	requests []shared.InvoiceRequest
}

func (f *fakeGateway) CreateInvoice(_ context.Context, req shared.InvoiceRequest) (*shared.InvoiceResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	cp := f.result
	return &cp, nil
}
