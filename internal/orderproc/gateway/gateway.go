// Package gateway adapts the per-shop client factories to the processor's
// outbound interfaces.
package gateway

import (
	"context"

	"github.com/smallbiznis/editorbridge/internal/fasteditor"
	orderprocdomain "github.com/smallbiznis/editorbridge/internal/orderproc/domain"
	"github.com/smallbiznis/editorbridge/internal/platform"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
)

type editorGateway struct {
	factory *fasteditor.Factory
}

func ProvideEditor(factory *fasteditor.Factory) orderprocdomain.EditorGateway {
	return &editorGateway{factory: factory}
}

func (g *editorGateway) NotifySale(ctx context.Context, settings *shopdomain.ShopSettings, notification fasteditor.SaleNotification) error {
	client, err := g.factory.ForShop(settings)
	if err != nil {
		return err
	}
	return client.NotifySale(ctx, notification)
}

type commerceGateway struct {
	factory *platform.Factory
}

func ProvideCommerce(factory *platform.Factory) orderprocdomain.CommerceGateway {
	return &commerceGateway{factory: factory}
}

func (g *commerceGateway) GetOrder(ctx context.Context, settings *shopdomain.ShopSettings, orderID string) (*platform.Order, error) {
	client, err := g.factory.ForShop(settings)
	if err != nil {
		return nil, err
	}
	return client.GetOrder(ctx, orderID)
}

func (g *commerceGateway) SetOrderMetafield(ctx context.Context, settings *shopdomain.ShopSettings, orderID string, field platform.Metafield) error {
	client, err := g.factory.ForShop(settings)
	if err != nil {
		return err
	}
	return client.SetOrderMetafield(ctx, orderID, field)
}

func (g *commerceGateway) UpdateOrderTags(ctx context.Context, settings *shopdomain.ShopSettings, orderID string, tags []string) error {
	client, err := g.factory.ForShop(settings)
	if err != nil {
		return err
	}
	return client.UpdateOrderTags(ctx, orderID, tags)
}
