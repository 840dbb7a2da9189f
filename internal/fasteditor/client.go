package fasteditor

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/editorbridge/internal/config"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
	"go.uber.org/fx"
)

// Factory builds per-shop clients. The shared http.Client carries the
// configured timeout; credentials live on the client value, never mutated.
type Factory struct {
	baseURL string
	client  *http.Client
}

// Module provides the client factory.
var Module = fx.Module("fasteditor", fx.Provide(NewFactory))

func NewFactory(cfg config.Config) *Factory {
	return &Factory{
		baseURL: cfg.FastEditorBaseURL,
		client: &http.Client{
			Timeout: cfg.FastEditorTimeout,
		},
	}
}

// ForShop returns a client bound to one shop's FastEditor credentials.
func (f *Factory) ForShop(settings *shopdomain.ShopSettings) (*Client, error) {
	if settings == nil || strings.TrimSpace(settings.APIKey) == "" || strings.TrimSpace(settings.APISecret) == "" {
		return nil, ErrInvalidCredentials
	}
	return &Client{
		baseURL:   f.baseURL,
		apiKey:    strings.TrimSpace(settings.APIKey),
		apiSecret: strings.TrimSpace(settings.APISecret),
		client:    f.client,
	}, nil
}

// Client is an immutable value: credentials plus base URL. Construct one per
// operation via Factory.ForShop.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
}

// CreateSmartLink returns the customization URL for a product variant.
func (c *Client) CreateSmartLink(ctx context.Context, req SmartLinkRequest) (*SmartLinkResponse, error) {
	if strings.TrimSpace(req.SKU) == "" {
		return nil, fmt.Errorf("%w: sku is required", ErrRequestFailed)
	}
	var out SmartLinkResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/smartlink", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NotifySale reports the customized items of one paid order. Called exactly
// once per order, never per item.
func (c *Client) NotifySale(ctx context.Context, notification SaleNotification) error {
	if strings.TrimSpace(notification.OrderID) == "" || len(notification.OrderItems) == 0 {
		return fmt.Errorf("%w: empty sale notification", ErrRequestFailed)
	}
	return c.do(ctx, http.MethodPost, "/api/v1/sales", notification, nil)
}

// GetProduct fetches FastEditor product data by SKU.
func (c *Client) GetProduct(ctx context.Context, sku string) (*ProductResponse, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, fmt.Errorf("%w: sku is required", ErrRequestFailed)
	}
	var out ProductResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(sku), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
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
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Signature", c.sign(body))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
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

// sign computes the request signature FastEditor verifies: HMAC-SHA256 over
// the raw body with the shop's API secret.
func (c *Client) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
