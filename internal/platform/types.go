// Package platform wraps the commerce platform's admin and billing APIs.
package platform

import "errors"

// Order is the platform order resource as delivered by webhooks and the
// admin API.
type Order struct {
	ID              string    `json:"id" binding:"required"`
	Name            string    `json:"name" binding:"required"`
	Currency        string    `json:"currency" binding:"required"`
	LineItems       []LineItem `json:"line_items" binding:"required,dive"`
	BillingAddress  *Address  `json:"billing_address"`
	ShippingAddress *Address  `json:"shipping_address"`
	Customer        *Customer `json:"customer"`
	Tags            string    `json:"tags"`
}

type LineItem struct {
	ID         string     `json:"id" binding:"required"`
	Quantity   int        `json:"quantity" binding:"required,gt=0"`
	Price      string     `json:"price" binding:"required"`
	ProductID  string     `json:"product_id"`
	VariantID  string     `json:"variant_id"`
	Properties []Property `json:"properties"`
}

// Property is a named line-item property. Customized items carry the
// FastEditor project key under the reserved name.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Address struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

type Customer struct {
	Email string `json:"email"`
}

// Metafield is a namespace-scoped key/value attached to an order.
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// SubscriptionLineItem identifies the merchant's active recurring charge
// usage fees attach to. Nil when the merchant has no active payment.
type SubscriptionLineItem struct {
	ID string `json:"id"`
}

// UsageChargeRequest creates one usage charge on the platform billing API.
type UsageChargeRequest struct {
	Description            string  `json:"description"`
	Amount                 float64 `json:"amount"`
	Currency               string  `json:"currency_code"`
	SubscriptionLineItemID string  `json:"subscription_line_item_id"`
}

type UsageChargeResponse struct {
	ID         string   `json:"id"`
	UserErrors []string `json:"user_errors,omitempty"`
}

var (
	ErrInvalidToken         = errors.New("platform_invalid_token")
	ErrRequestFailed        = errors.New("platform_request_failed")
	ErrOrderNotFound        = errors.New("platform_order_not_found")
	ErrNoActiveSubscription = errors.New("platform_no_active_subscription")
	ErrUserErrors           = errors.New("platform_user_errors")
)
