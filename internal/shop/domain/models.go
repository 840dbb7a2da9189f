// Package domain contains the per-shop settings consumed by the processing core.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ShopSettings holds FastEditor credentials and locale data for one shop.
// The processing core treats this as read-only configuration fetched once
// per operation.
type ShopSettings struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Shop      string       `json:"shop" gorm:"type:text;not null;uniqueIndex"`
	APIKey    string       `json:"-" gorm:"type:text;not null"`
	APISecret string       `json:"-" gorm:"type:text;not null"`

	// PlatformToken is the offline admin-API token for this shop.
	PlatformToken string `json:"-" gorm:"type:text;not null"`

	Locale   string `json:"locale" gorm:"type:text;not null;default:'en'"`
	Currency string `json:"currency" gorm:"type:text;not null"`
	Country  string `json:"country" gorm:"type:text;not null"`

	// SubscriptionLineItemID is the platform subscription line item usage
	// charges are attached to. Empty until the merchant approves billing.
	SubscriptionLineItemID string `json:"subscription_line_item_id" gorm:"type:text"`

	Installed bool      `json:"installed" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ShopSettings) TableName() string { return "shop_settings" }

var (
	ErrInvalidShop  = errors.New("invalid_shop")
	ErrShopNotFound = errors.New("shop_not_found")
)
