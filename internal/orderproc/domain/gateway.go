package domain

import (
	"context"

	"github.com/smallbiznis/editorbridge/internal/fasteditor"
	"github.com/smallbiznis/editorbridge/internal/platform"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
)

// EditorGateway is the outbound FastEditor surface the processor needs.
// Implementations resolve per-shop credentials from the settings value.
type EditorGateway interface {
	NotifySale(ctx context.Context, settings *shopdomain.ShopSettings, notification fasteditor.SaleNotification) error
}

// CommerceGateway is the outbound platform admin-API surface.
type CommerceGateway interface {
	GetOrder(ctx context.Context, settings *shopdomain.ShopSettings, orderID string) (*platform.Order, error)
	SetOrderMetafield(ctx context.Context, settings *shopdomain.ShopSettings, orderID string, field platform.Metafield) error
	UpdateOrderTags(ctx context.Context, settings *shopdomain.ShopSettings, orderID string, tags []string) error
}
