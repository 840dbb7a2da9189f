package orderproc

import (
	"github.com/smallbiznis/editorbridge/internal/orderproc/gateway"
	"github.com/smallbiznis/editorbridge/internal/orderproc/service"
	"go.uber.org/fx"
)

var Module = fx.Module("orderproc",
	fx.Provide(gateway.ProvideEditor),
	fx.Provide(gateway.ProvideCommerce),
	fx.Provide(service.NewService),
)
