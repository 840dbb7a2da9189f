package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/editorbridge/internal/clock"
	"github.com/smallbiznis/editorbridge/internal/config"
	currencydomain "github.com/smallbiznis/editorbridge/internal/currency/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestRefresher(t *testing.T, db *gorm.DB, providerURL string) *Refresher {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewRefresher(RefresherParams{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Cfg: config.Config{
			BillingCurrency:     "EUR",
			RateProviderURL:     providerURL,
			RateProviderTimeout: 2 * time.Second,
		},
	})
	return svc.(*Refresher)
}

func TestRefreshRates_UpsertsProviderTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","base_code":"EUR","rates":{"USD":1.1,"GBP":0.85,"EUR":1}}`))
	}))
	defer srv.Close()

	db := newConverterTestDB(t)
	ref := newTestRefresher(t, db, srv.URL)

	require.NoError(t, ref.RefreshRates(context.Background()))

	var count int64
	require.NoError(t, db.Model(&currencydomain.CurrencyRate{}).Count(&count).Error)
	require.EqualValues(t, 3, count)

	var usd currencydomain.CurrencyRate
	require.NoError(t, db.Where("code = ?", "USD").First(&usd).Error)
	require.Equal(t, "1.1", usd.Rate.String())
	require.Equal(t, "EUR", usd.Base)

	// A second refresh updates in place instead of duplicating rows.
	require.NoError(t, ref.RefreshRates(context.Background()))
	require.NoError(t, db.Model(&currencydomain.CurrencyRate{}).Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestRefreshRates_ProviderFailureLeavesTableUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	db := newConverterTestDB(t)
	seedRate(t, db, "USD", "1.1")
	ref := newTestRefresher(t, db, srv.URL)

	err := ref.RefreshRates(context.Background())
	require.ErrorIs(t, err, currencydomain.ErrProviderFailed)

	var count int64
	require.NoError(t, db.Model(&currencydomain.CurrencyRate{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRefreshRates_RejectsForeignBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"EUR":0.9}}`))
	}))
	defer srv.Close()

	db := newConverterTestDB(t)
	ref := newTestRefresher(t, db, srv.URL)

	err := ref.RefreshRates(context.Background())
	require.ErrorIs(t, err, currencydomain.ErrProviderFailed)
}

func TestSeedRates_SharesRefreshPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","base_code":"EUR","rates":{"USD":1.1}}`))
	}))
	defer srv.Close()

	db := newConverterTestDB(t)
	ref := newTestRefresher(t, db, srv.URL)

	require.NoError(t, ref.SeedRates(context.Background()))
	require.NoError(t, ref.SeedRates(context.Background()))

	var count int64
	require.NoError(t, db.Model(&currencydomain.CurrencyRate{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
