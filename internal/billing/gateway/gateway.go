// Package gateway adapts the platform client factory to the billing surface.
package gateway

import (
	"context"

	billingdomain "github.com/smallbiznis/editorbridge/internal/billing/domain"
	"github.com/smallbiznis/editorbridge/internal/platform"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
)

type platformGateway struct {
	factory *platform.Factory
}

func Provide(factory *platform.Factory) billingdomain.Gateway {
	return &platformGateway{factory: factory}
}

func (g *platformGateway) ActiveSubscriptionLineItem(ctx context.Context, settings *shopdomain.ShopSettings) (*platform.SubscriptionLineItem, error) {
	client, err := g.factory.ForShop(settings)
	if err != nil {
		return nil, err
	}
	return client.ActiveSubscriptionLineItem(ctx)
}

func (g *platformGateway) CreateUsageCharge(ctx context.Context, settings *shopdomain.ShopSettings, req platform.UsageChargeRequest) (*platform.UsageChargeResponse, error) {
	client, err := g.factory.ForShop(settings)
	if err != nil {
		return nil, err
	}
	return client.CreateUsageCharge(ctx, req)
}
