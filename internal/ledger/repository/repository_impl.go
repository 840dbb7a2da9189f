package repository

import (
	"context"
	"strings"
	"time"

	ledgerdomain "github.com/smallbiznis/editorbridge/internal/ledger/domain"
	"github.com/smallbiznis/editorbridge/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) Exists(ctx context.Context, conn *gorm.DB, shop, orderID, lineItemID string) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM order_item_records
		 WHERE shop = ? AND order_id = ? AND line_item_id = ?`,
		shop,
		orderID,
		lineItemID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, record *ledgerdomain.OrderItemRecord) error {
	if record == nil {
		return ledgerdomain.ErrInvalidRecord
	}
	if strings.TrimSpace(record.Shop) == "" ||
		strings.TrimSpace(record.OrderID) == "" ||
		strings.TrimSpace(record.LineItemID) == "" {
		return ledgerdomain.ErrInvalidRecord
	}

	err := conn.WithContext(ctx).Create(record).Error
	if db.IsDuplicateKeyErr(err) {
		return ledgerdomain.ErrDuplicateRecord
	}
	return err
}

func (r *repo) UnbilledSince(ctx context.Context, conn *gorm.DB, shop string, since time.Time) ([]ledgerdomain.OrderItemRecord, error) {
	var records []ledgerdomain.OrderItemRecord
	err := conn.WithContext(ctx).
		Model(&ledgerdomain.OrderItemRecord{}).
		Where("shop = ? AND billed = ? AND created_at >= ?", shop, false, since).
		Order("created_at asc, id asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) MarkBilled(ctx context.Context, conn *gorm.DB, shop string, since time.Time, billedAt time.Time) (int64, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE order_item_records
		 SET billed = ?, billed_at = ?, updated_at = ?
		 WHERE shop = ? AND billed = ? AND created_at >= ?`,
		true,
		billedAt,
		billedAt,
		shop,
		false,
		since,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) InsertHistory(ctx context.Context, conn *gorm.DB, record *ledgerdomain.BillingHistoryRecord) error {
	return conn.WithContext(ctx).Create(record).Error
}

func (r *repo) ListHistory(ctx context.Context, conn *gorm.DB, shop string) ([]ledgerdomain.BillingHistoryRecord, error) {
	var records []ledgerdomain.BillingHistoryRecord
	err := conn.WithContext(ctx).
		Model(&ledgerdomain.BillingHistoryRecord{}).
		Where("shop = ?", shop).
		Order("created_at desc, id desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
