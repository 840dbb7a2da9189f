package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/editorbridge/internal/clock"
	"github.com/smallbiznis/editorbridge/internal/config"
	currencydomain "github.com/smallbiznis/editorbridge/internal/currency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RefresherParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	GenID *snowflake.Node
	Clock clock.Clock
}

type Refresher struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	client *http.Client
	url    string
	base   string
}

func NewRefresher(p RefresherParams) currencydomain.Refresher {
	return &Refresher{
		db:    p.DB,
		log:   p.Log.Named("currency.refresher"),
		genID: p.GenID,
		clock: p.Clock,
		client: &http.Client{
			Timeout: p.Cfg.RateProviderTimeout,
		},
		url:  p.Cfg.RateProviderURL,
		base: strings.ToUpper(p.Cfg.BillingCurrency),
	}
}

// providerResponse matches the open exchange-rate provider payload keyed to
// a fixed base currency.
type providerResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// SeedRates populates the rate table on first run. It shares the upsert
// path with RefreshRates so repeated seeding is harmless.
func (r *Refresher) SeedRates(ctx context.Context) error {
	return r.RefreshRates(ctx)
}

// RefreshRates pulls the provider table and applies all rates in one
// transaction so mid-cycle conversions never mix stale and fresh rates.
func (r *Refresher) RefreshRates(ctx context.Context) error {
	rates, err := r.fetch(ctx)
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		return currencydomain.ErrProviderFailed
	}

	now := r.clock.Now()
	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, code := range codes {
			record := currencydomain.CurrencyRate{
				ID:        r.genID.Generate(),
				Code:      code,
				Rate:      rates[code],
				Base:      r.base,
				CreatedAt: now,
				UpdatedAt: now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"rate", "base", "updated_at"}),
			}).Create(&record).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info("currency rates refreshed",
		zap.Int("count", len(codes)),
		zap.String("base", r.base),
	)
	return nil
}

func (r *Refresher) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", currencydomain.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", currencydomain.ErrProviderFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var parsed providerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", currencydomain.ErrProviderFailed, err)
	}
	if parsed.BaseCode != "" && !strings.EqualFold(parsed.BaseCode, r.base) {
		return nil, fmt.Errorf("%w: provider base %s, want %s", currencydomain.ErrProviderFailed, parsed.BaseCode, r.base)
	}

	rates := make(map[string]decimal.Decimal, len(parsed.Rates))
	for code, rate := range parsed.Rates {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || rate <= 0 {
			continue
		}
		rates[code] = decimal.NewFromFloat(rate)
	}
	return rates, nil
}
