package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/editorbridge/internal/shop/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, shop string) (*domain.ShopSettings, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}
	var settings domain.ShopSettings
	err := db.WithContext(ctx).Raw(
		`SELECT id, shop, api_key, api_secret, platform_token, locale, currency, country,
		        subscription_line_item_id, installed, created_at, updated_at
		 FROM shop_settings WHERE shop = ?`,
		shop,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.ID == 0 {
		return nil, domain.ErrShopNotFound
	}
	return &settings, nil
}

func (r *repo) ListInstalled(ctx context.Context, db *gorm.DB) ([]domain.ShopSettings, error) {
	var shops []domain.ShopSettings
	err := db.WithContext(ctx).
		Model(&domain.ShopSettings{}).
		Where("installed = ?", true).
		Order("shop asc").
		Find(&shops).Error
	if err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, settings *domain.ShopSettings) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shop"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"api_key", "api_secret", "platform_token", "locale", "currency",
				"country", "subscription_line_item_id", "installed", "updated_at",
			}),
		}).
		Create(settings).Error
}

func (r *repo) Erase(ctx context.Context, db *gorm.DB, shop string) error {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.ErrInvalidShop
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM order_item_records WHERE shop = ?`, shop).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM billing_history_records WHERE shop = ?`, shop).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM shop_settings WHERE shop = ?`, shop).Error
	})
}
