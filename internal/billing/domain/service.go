// Package domain defines the monthly usage-billing reconciliation contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/editorbridge/internal/platform"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
)

// Service aggregates unbilled ledger entries into one platform usage charge
// per shop and records an immutable history entry.
type Service interface {
	// ReconcileShop bills one shop for everything unbilled since the given
	// date. No-op when nothing is owed or the merchant has no active
	// subscription; in the latter case entries stay unbilled for the next
	// run.
	ReconcileShop(ctx context.Context, shop string, since time.Time) error

	// ReconcileAll sweeps every installed shop. One shop's failure does
	// not stop the sweep.
	ReconcileAll(ctx context.Context, since time.Time) error
}

// Gateway is the outbound platform billing surface.
type Gateway interface {
	ActiveSubscriptionLineItem(ctx context.Context, settings *shopdomain.ShopSettings) (*platform.SubscriptionLineItem, error)
	CreateUsageCharge(ctx context.Context, settings *shopdomain.ShopSettings, req platform.UsageChargeRequest) (*platform.UsageChargeResponse, error)
}

var (
	// ErrRunInProgress reports that another reconciliation run currently
	// holds the shop's lock.
	ErrRunInProgress = errors.New("billing_run_in_progress")
)
