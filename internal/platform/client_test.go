package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/editorbridge/internal/config"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
	"github.com/stretchr/testify/require"
)

func newTestPlatformClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	factory := NewFactory(config.Config{
		PlatformAPIBaseURL: baseURL,
		PlatformAPIVersion: "2026-01",
		PlatformTimeout:    2 * time.Second,
	})
	client, err := factory.ForShop(&shopdomain.ShopSettings{
		Shop:          "demo.example.com",
		PlatformToken: "shptoken",
	})
	require.NoError(t, err)
	return client
}

func TestForShop_RequiresToken(t *testing.T) {
	factory := NewFactory(config.Config{PlatformAPIVersion: "2026-01"})

	_, err := factory.ForShop(&shopdomain.ShopSettings{Shop: "demo.example.com"})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestForShop_DefaultsToShopAdminURL(t *testing.T) {
	factory := NewFactory(config.Config{PlatformAPIVersion: "2026-01"})

	client, err := factory.ForShop(&shopdomain.ShopSettings{
		Shop:          "demo.example.com",
		PlatformToken: "shptoken",
	})
	require.NoError(t, err)
	require.Equal(t, "https://demo.example.com/admin/api/2026-01", client.baseURL)
}

func TestGetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/450789469.json", r.URL.Path)
		require.Equal(t, "shptoken", r.Header.Get("X-Access-Token"))
		w.Write([]byte(`{"order":{"id":"450789469","name":"#1001","currency":"USD","tags":"vip"}}`))
	}))
	defer srv.Close()

	client := newTestPlatformClient(t, srv.URL)
	order, err := client.GetOrder(context.Background(), "450789469")
	require.NoError(t, err)
	require.Equal(t, "#1001", order.Name)
	require.Equal(t, "vip", order.Tags)
}

func TestGetOrder_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestPlatformClient(t, srv.URL)
	_, err := client.GetOrder(context.Background(), "1")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateOrderTags_JoinsTags(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestPlatformClient(t, srv.URL)
	err := client.UpdateOrderTags(context.Background(), "450789469", []string{"vip", "fasteditor-completed"})
	require.NoError(t, err)

	order := payload["order"].(map[string]any)
	require.Equal(t, "vip, fasteditor-completed", order["tags"])
}

func TestActiveSubscriptionLineItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recurring_application_charges/current.json", r.URL.Path)
		w.Write([]byte(`{"recurring_application_charge":{"status":"active","line_item":{"id":"sub-li-1"}}}`))
	}))
	defer srv.Close()

	client := newTestPlatformClient(t, srv.URL)
	lineItem, err := client.ActiveSubscriptionLineItem(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sub-li-1", lineItem.ID)
}

func TestActiveSubscriptionLineItem_Lapsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recurring_application_charge":{"status":"cancelled","line_item":{"id":"sub-li-1"}}}`))
	}))
	defer srv.Close()

	client := newTestPlatformClient(t, srv.URL)
	_, err := client.ActiveSubscriptionLineItem(context.Background())
	require.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestCreateUsageCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recurring_application_charges/sub-li-1/usage_charges.json", r.URL.Path)
		w.Write([]byte(`{"usage_charge":{"id":"charge-1"}}`))
	}))
	defer srv.Close()

	client := newTestPlatformClient(t, srv.URL)
	charge, err := client.CreateUsageCharge(context.Background(), UsageChargeRequest{
		Description:            "usage",
		Amount:                 12.5,
		Currency:               "EUR",
		SubscriptionLineItemID: "sub-li-1",
	})
	require.NoError(t, err)
	require.Equal(t, "charge-1", charge.ID)
}

func TestCreateUsageCharge_UserErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"usage_charge":{"id":"","user_errors":["capped amount reached"]}}`))
	}))
	defer srv.Close()

	client := newTestPlatformClient(t, srv.URL)
	_, err := client.CreateUsageCharge(context.Background(), UsageChargeRequest{
		SubscriptionLineItemID: "sub-li-1",
	})
	require.ErrorIs(t, err, ErrUserErrors)
	require.Contains(t, err.Error(), "capped amount reached")
}

func TestCreateUsageCharge_RequiresLineItem(t *testing.T) {
	client := newTestPlatformClient(t, "http://127.0.0.1:0")

	_, err := client.CreateUsageCharge(context.Background(), UsageChargeRequest{})
	require.ErrorIs(t, err, ErrNoActiveSubscription)
}
