// Package fasteditor wraps the FastEditor personalization HTTP API.
package fasteditor

import "errors"

// SmartLinkRequest asks FastEditor for a customization URL pre-configured
// for one product variant in one shop.
type SmartLinkRequest struct {
	SKU      string `json:"sku"`
	Language string `json:"language"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
	// ProjectKey resumes an existing customization when present.
	ProjectKey string `json:"projectKey,omitempty"`
}

type SmartLinkResponse struct {
	URL string `json:"url"`
}

// SaleOrderItem is one customized line item inside a sale notification.
type SaleOrderItem struct {
	ProjectKey     string  `json:"projectKey"`
	OrderItemID    string  `json:"orderItemId"`
	Quantity       int     `json:"quantity"`
	TotalSaleValue float64 `json:"totalSaleValue"`
}

// ContactInfo mirrors the order address blocks FastEditor expects.
type ContactInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// SaleNotification aggregates every customized item of one paid order.
// Sent exactly once per order.
type SaleNotification struct {
	OrderID      string          `json:"orderId"`
	OrderItems   []SaleOrderItem `json:"orderItems"`
	BillingInfo  ContactInfo     `json:"billingInfo"`
	ShippingInfo ContactInfo     `json:"shippingInfo"`
	// CallbackURL embeds the shop so the asynchronous production result can
	// be routed back to the right store.
	CallbackURL string `json:"callbackUrl"`
}

type ProductResponse struct {
	SKU   string `json:"sku"`
	Name  string `json:"name"`
	Thumb string `json:"thumbnailUrl"`
}

var (
	ErrInvalidCredentials = errors.New("fasteditor_invalid_credentials")
	ErrRequestFailed      = errors.New("fasteditor_request_failed")
	ErrNotFound           = errors.New("fasteditor_not_found")
)
