// Package domain contains the persisted exchange-rate table and the
// conversion contracts used to normalize usage fees.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CurrencyRate stores one active rate per currency code relative to the
// fixed base currency. The rate expresses "1 unit of base buys `rate`
// units of code", so converting code -> base divides by the rate.
type CurrencyRate struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	Code      string          `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Rate      decimal.Decimal `json:"rate" gorm:"type:numeric(18,8);not null"`
	Base      string          `json:"base" gorm:"type:text;not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CurrencyRate) TableName() string { return "currency_rates" }

// Converter normalizes amounts into the billing currency. Conversion always
// reads from the persisted rate table, never from the provider.
type Converter interface {
	ToBillingCurrency(ctx context.Context, code string, amount decimal.Decimal) (decimal.Decimal, error)
}

// Refresher maintains the rate table from the external provider.
type Refresher interface {
	SeedRates(ctx context.Context) error
	RefreshRates(ctx context.Context) error
}

var (
	ErrRateNotFound   = errors.New("rate_not_found")
	ErrInvalidCode    = errors.New("invalid_currency_code")
	ErrProviderFailed = errors.New("rate_provider_failed")
)
