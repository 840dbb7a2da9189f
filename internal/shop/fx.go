package shop

import (
	"github.com/smallbiznis/editorbridge/internal/shop/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("shop",
	fx.Provide(repository.Provide),
)
