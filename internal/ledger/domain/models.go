// Package domain contains the usage-fee ledger: one record per customized
// order line item, plus the immutable billing-history audit trail.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderItemRecord is the ledger entry for one customized line item of a paid
// order. Created once when the order is first processed; the only mutation
// after creation is the billed transition performed in bulk by the
// reconciler.
type OrderItemRecord struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	Shop       string       `json:"shop" gorm:"type:text;not null;uniqueIndex:idx_order_items_identity,priority:1"`
	OrderID    string       `json:"order_id" gorm:"type:text;not null;uniqueIndex:idx_order_items_identity,priority:2"`
	LineItemID string       `json:"line_item_id" gorm:"type:text;not null;uniqueIndex:idx_order_items_identity,priority:3"`

	OrderName  string          `json:"order_name" gorm:"type:text;not null"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2);not null"`
	Currency   string          `json:"currency" gorm:"type:text;not null"` // source currency
	ProjectKey string          `json:"project_key" gorm:"type:text;not null"`
	ProductID  string          `json:"product_id" gorm:"type:text;not null"`
	VariantID  *string         `json:"variant_id" gorm:"type:text"`

	// UsageFee is the per-item commission in the billing currency, computed
	// once at creation time.
	UsageFee decimal.Decimal `json:"usage_fee" gorm:"type:numeric(18,2);not null"`

	Billed   bool       `json:"billed" gorm:"not null;default:false;index"`
	BilledAt *time.Time `json:"billed_at"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OrderItemRecord) TableName() string { return "order_item_records" }

// BillingHistoryRecord captures one successful reconciliation run for a
// shop. Never mutated, deleted only on shop erasure.
type BillingHistoryRecord struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	Shop       string          `json:"shop" gorm:"type:text;not null;index"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:numeric(18,2);not null"`
	ItemsCount int             `json:"items_count" gorm:"not null"`

	// Details carries the charge audit trail: platform charge id and the
	// period the run covered.
	Details datatypes.JSON `json:"details" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingHistoryRecord) TableName() string { return "billing_history_records" }

var (
	// ErrDuplicateRecord reports that the (shop, order, line item) identity
	// already exists. Expected on webhook redelivery and handled locally.
	ErrDuplicateRecord = errors.New("duplicate_order_item_record")
	ErrInvalidRecord   = errors.New("invalid_order_item_record")
)
