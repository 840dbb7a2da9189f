package migration

import (
	currencydomain "github.com/smallbiznis/editorbridge/internal/currency/domain"
	ledgerdomain "github.com/smallbiznis/editorbridge/internal/ledger/domain"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		// The versioned SQL path is postgres-only. Local sqlite and mysql
		// deployments fall back to gorm's schema sync.
		if conn.Name() != "postgres" {
			return conn.AutoMigrate(
				&shopdomain.ShopSettings{},
				&ledgerdomain.OrderItemRecord{},
				&ledgerdomain.BillingHistoryRecord{},
				&currencydomain.CurrencyRate{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
