// Package domain defines the order-processing contracts: customized-item
// extraction, per-order processing results, and the FastEditor callback.
// Every tag and metafield key lives here so the paid-order path and the
// async callback path cannot drift apart.
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/editorbridge/internal/platform"
)

// PropertyProjectKey marks a line item as customized through FastEditor.
// Items without this property are ignored entirely.
const PropertyProjectKey = "_fasteditor_project_key"

// Order annotation keys. Shared by paid-order processing and the callback
// handler.
const (
	MetafieldNamespace      = "fasteditor"
	MetafieldResults        = "processing_results"
	MetafieldDownloadURL    = "download_url"
	MetafieldCompleted      = "customization_completed"
	MetafieldCompletedAt    = "customization_completed_at"
	MetafieldOfferingID     = "offering_id"
	MetafieldOrderItemID    = "order_item_id"
	TagProcessingPrefix     = "fasteditor-processing"
	TagCompleted            = "fasteditor-completed"
)

// CustomizedItem is one extracted line item carrying a FastEditor project
// key, with its usage fee in the billing currency.
type CustomizedItem struct {
	LineItemID string
	ProjectKey string
	ProductID  string
	VariantID  *string
	Quantity   int
	UnitPrice  decimal.Decimal
	// SaleValue is quantity × unit price in the order currency.
	SaleValue decimal.Decimal
	// UsageFee is SaleValue normalized to the billing currency.
	UsageFee decimal.Decimal
	// AlreadyRecorded is true when the ledger already held this item, i.e.
	// the webhook was redelivered.
	AlreadyRecorded bool
}

// ProcessingResult records one FastEditor sale-notification attempt. One
// entry per order with customized items; orders without any yield an empty
// result slice.
type ProcessingResult struct {
	OrderID    string `json:"order_id"`
	ItemsCount int    `json:"items_count"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// EditorCallback is the asynchronous production result FastEditor posts
// back after a sale notification.
type EditorCallback struct {
	Shop        string `json:"shop"`
	OrderID     string `json:"order_id" binding:"required"`
	OfferingID  string `json:"offering_id"`
	OrderItemID string `json:"order_item_id"`
	Status      string `json:"status" binding:"required"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url"`
}

const CallbackStatusSuccess = "success"

// Service is the order-processing core.
type Service interface {
	// ProcessPaidOrder turns one paid order into ledger entries, at most
	// one FastEditor notification, and order annotations. Never returns an
	// error for notification or annotation failures; those are recorded in
	// the results.
	ProcessPaidOrder(ctx context.Context, shop string, order platform.Order) ([]ProcessingResult, error)

	// HandleEditorCallback applies the asynchronous FastEditor result to
	// the order. Non-success callbacks are acknowledged without mutation.
	HandleEditorCallback(ctx context.Context, cb EditorCallback) error
}

var (
	ErrInvalidOrder = errors.New("invalid_order")
	ErrInvalidShop  = errors.New("invalid_shop")
)
