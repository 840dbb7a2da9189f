package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/editorbridge/internal/config"
	currencydomain "github.com/smallbiznis/editorbridge/internal/currency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ConverterParams struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Converter struct {
	db              *gorm.DB
	log             *zap.Logger
	billingCurrency string
}

func NewConverter(p ConverterParams) currencydomain.Converter {
	return &Converter{
		db:              p.DB,
		log:             p.Log.Named("currency.converter"),
		billingCurrency: strings.ToUpper(p.Cfg.BillingCurrency),
	}
}

// ToBillingCurrency converts amount from code into the billing currency,
// rounded half-up to two decimal places. The identity case skips the rate
// lookup entirely.
func (c *Converter) ToBillingCurrency(ctx context.Context, code string, amount decimal.Decimal) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return decimal.Zero, currencydomain.ErrInvalidCode
	}
	if code == c.billingCurrency {
		return amount.Round(2), nil
	}

	var rate currencydomain.CurrencyRate
	err := c.db.WithContext(ctx).Raw(
		`SELECT id, code, rate, base, created_at, updated_at
		 FROM currency_rates WHERE code = ?`,
		code,
	).Scan(&rate).Error
	if err != nil {
		return decimal.Zero, err
	}
	if rate.ID == 0 || rate.Rate.IsZero() {
		return decimal.Zero, currencydomain.ErrRateNotFound
	}

	return amount.DivRound(rate.Rate, 2), nil
}
