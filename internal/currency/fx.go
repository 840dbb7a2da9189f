package currency

import (
	"github.com/smallbiznis/editorbridge/internal/currency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("currency",
	fx.Provide(service.NewConverter),
	fx.Provide(service.NewRefresher),
)
