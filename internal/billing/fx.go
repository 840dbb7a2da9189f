package billing

import (
	"github.com/smallbiznis/editorbridge/internal/billing/gateway"
	"github.com/smallbiznis/editorbridge/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(gateway.Provide),
	fx.Provide(service.NewService),
)
