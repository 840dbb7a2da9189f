package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/smallbiznis/editorbridge/internal/config"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
	"go.uber.org/fx"
)

// Factory builds per-shop admin API clients.
type Factory struct {
	apiVersion string
	baseURL    string
	client     *http.Client
}

// Module provides the client factory.
var Module = fx.Module("platform", fx.Provide(NewFactory))

func NewFactory(cfg config.Config) *Factory {
	return &Factory{
		apiVersion: cfg.PlatformAPIVersion,
		baseURL:    cfg.PlatformAPIBaseURL,
		client: &http.Client{
			Timeout: cfg.PlatformTimeout,
		},
	}
}

// ForShop returns a client bound to one shop's admin token.
func (f *Factory) ForShop(settings *shopdomain.ShopSettings) (*Client, error) {
	if settings == nil || strings.TrimSpace(settings.PlatformToken) == "" {
		return nil, ErrInvalidToken
	}
	base := f.baseURL
	if base == "" {
		base = fmt.Sprintf("https://%s/admin/api/%s", settings.Shop, f.apiVersion)
	}
	return &Client{
		shop:    settings.Shop,
		baseURL: base,
		token:   strings.TrimSpace(settings.PlatformToken),
		client:  f.client,
	}, nil
}

// Client is an immutable value holding one shop's admin-API access.
type Client struct {
	shop    string
	baseURL string
	token   string
	client  *http.Client
}

// GetOrder fetches one order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	err := c.do(ctx, http.MethodGet, "/orders/"+orderID+".json", nil, &out)
	if err != nil {
		return nil, err
	}
	if out.Order.ID == "" {
		return nil, ErrOrderNotFound
	}
	return &out.Order, nil
}

// SetOrderMetafield writes one namespace-scoped metafield on an order.
func (c *Client) SetOrderMetafield(ctx context.Context, orderID string, field Metafield) error {
	payload := map[string]any{"metafield": field}
	return c.do(ctx, http.MethodPost, "/orders/"+orderID+"/metafields.json", payload, nil)
}

// UpdateOrderTags replaces the order's tag list with the given tags.
func (c *Client) UpdateOrderTags(ctx context.Context, orderID string, tags []string) error {
	payload := map[string]any{
		"order": map[string]any{
			"id":   orderID,
			"tags": strings.Join(tags, ", "),
		},
	}
	return c.do(ctx, http.MethodPut, "/orders/"+orderID+".json", payload, nil)
}

// ActiveSubscriptionLineItem returns the merchant's active subscription
// line item, or ErrNoActiveSubscription when the merchant has lapsed.
func (c *Client) ActiveSubscriptionLineItem(ctx context.Context) (*SubscriptionLineItem, error) {
	var out struct {
		Subscription *struct {
			Status   string               `json:"status"`
			LineItem SubscriptionLineItem `json:"line_item"`
		} `json:"recurring_application_charge"`
	}
	err := c.do(ctx, http.MethodGet, "/recurring_application_charges/current.json", nil, &out)
	if err != nil {
		return nil, err
	}
	if out.Subscription == nil || !strings.EqualFold(out.Subscription.Status, "active") || out.Subscription.LineItem.ID == "" {
		return nil, ErrNoActiveSubscription
	}
	return &out.Subscription.LineItem, nil
}

// CreateUsageCharge creates one usage charge against the subscription line
// item. User errors from the billing API are surfaced as ErrUserErrors.
func (c *Client) CreateUsageCharge(ctx context.Context, req UsageChargeRequest) (*UsageChargeResponse, error) {
	if req.SubscriptionLineItemID == "" {
		return nil, ErrNoActiveSubscription
	}
	payload := map[string]any{"usage_charge": req}
	var out struct {
		UsageCharge UsageChargeResponse `json:"usage_charge"`
	}
	err := c.do(ctx, http.MethodPost, "/recurring_application_charges/"+req.SubscriptionLineItemID+"/usage_charges.json", payload, &out)
	if err != nil {
		return nil, err
	}
	if len(out.UsageCharge.UserErrors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserErrors, strings.Join(out.UsageCharge.UserErrors, "; "))
	}
	if out.UsageCharge.ID == "" {
		return nil, fmt.Errorf("%w: empty charge id", ErrRequestFailed)
	}
	return &out.UsageCharge, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}
