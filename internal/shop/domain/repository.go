package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Get(ctx context.Context, db *gorm.DB, shop string) (*ShopSettings, error)
	ListInstalled(ctx context.Context, db *gorm.DB) ([]ShopSettings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *ShopSettings) error
	// Erase removes the shop and everything recorded for it. Used on
	// uninstall and GDPR shop-redact requests.
	Erase(ctx context.Context, db *gorm.DB, shop string) error
}
