package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Exists reports whether a ledger entry already exists for the
	// composite identity. The unique index remains the authoritative
	// guard; this check only short-circuits obvious redeliveries.
	Exists(ctx context.Context, db *gorm.DB, shop, orderID, lineItemID string) (bool, error)

	// Insert persists a new ledger entry. A unique violation is mapped to
	// ErrDuplicateRecord so callers can absorb redelivery races.
	Insert(ctx context.Context, db *gorm.DB, record *OrderItemRecord) error

	// UnbilledSince returns the unbilled entries created on/after since.
	UnbilledSince(ctx context.Context, db *gorm.DB, shop string, since time.Time) ([]OrderItemRecord, error)

	// MarkBilled flips entries that are still unbilled and returns how many
	// rows actually transitioned. The conditional update is what keeps two
	// overlapping reconciliation runs from double-charging.
	MarkBilled(ctx context.Context, db *gorm.DB, shop string, since time.Time, billedAt time.Time) (int64, error)

	InsertHistory(ctx context.Context, db *gorm.DB, record *BillingHistoryRecord) error
	ListHistory(ctx context.Context, db *gorm.DB, shop string) ([]BillingHistoryRecord, error)
}
