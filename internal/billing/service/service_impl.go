package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/editorbridge/internal/billing/domain"
	"github.com/smallbiznis/editorbridge/internal/clock"
	"github.com/smallbiznis/editorbridge/internal/config"
	ledgerdomain "github.com/smallbiznis/editorbridge/internal/ledger/domain"
	"github.com/smallbiznis/editorbridge/internal/lock"
	obsmetrics "github.com/smallbiznis/editorbridge/internal/observability/metrics"
	"github.com/smallbiznis/editorbridge/internal/platform"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const shopLockTTL = 5 * time.Minute

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Billing    *config.BillingConfigHolder
	GenID      *snowflake.Node
	Clock      clock.Clock
	ShopRepo   shopdomain.Repository
	LedgerRepo ledgerdomain.Repository
	Gateway    billingdomain.Gateway
	Locker     *lock.Locker        `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	billingCurrency string
	billingCfg      *config.BillingConfigHolder
	genID           *snowflake.Node
	clock           clock.Clock
	shopRepo        shopdomain.Repository
	ledgerRepo      ledgerdomain.Repository
	gateway         billingdomain.Gateway
	locker          *lock.Locker
	metrics         *obsmetrics.Metrics
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("billing.service"),
		billingCurrency: p.Cfg.BillingCurrency,
		billingCfg:      p.Billing,
		genID:           p.GenID,
		clock:           p.Clock,
		shopRepo:        p.ShopRepo,
		ledgerRepo:      p.LedgerRepo,
		gateway:         p.Gateway,
		locker:          p.Locker,
		metrics:         p.Metrics,
	}
}

func (s *Service) ReconcileShop(ctx context.Context, shop string, since time.Time) error {
	if s.locker != nil {
		key := "editorbridge:billing:" + shop
		token, ok, err := s.locker.TryLock(ctx, key, shopLockTTL)
		if err != nil {
			return err
		}
		if !ok {
			s.incRun("locked")
			return billingdomain.ErrRunInProgress
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				s.log.Warn("release billing lock", zap.String("shop", shop), zap.Error(err))
			}
		}()
	}
	return s.reconcile(ctx, shop, since)
}

func (s *Service) reconcile(ctx context.Context, shop string, since time.Time) error {
	log := s.log.With(zap.String("shop", shop), zap.Time("since", since))

	items, err := s.ledgerRepo.UnbilledSince(ctx, s.db, shop, since)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		s.incRun("empty")
		return nil
	}

	// Items were rounded at creation time; the aggregate sums the rounded
	// values so the charged total matches the ledger exactly.
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UsageFee)
	}
	if total.Cmp(decimal.Zero) <= 0 {
		log.Warn("unbilled aggregate is not positive, skipping",
			zap.String("total", total.String()),
			zap.Int("items", len(items)),
		)
		s.incRun("non_positive")
		return nil
	}

	cfg := s.billingCfg.Current()
	if min := decimal.NewFromFloat(cfg.MinimumChargeTotal); total.Cmp(min) < 0 {
		log.Info("unbilled aggregate below minimum, deferring",
			zap.String("total", total.String()),
			zap.Float64("minimum", cfg.MinimumChargeTotal),
		)
		s.incRun("deferred")
		return nil
	}

	settings, err := s.shopRepo.Get(ctx, s.db, shop)
	if err != nil {
		return err
	}

	lineItem, err := s.gateway.ActiveSubscriptionLineItem(ctx, settings)
	if errors.Is(err, platform.ErrNoActiveSubscription) {
		// Merchant lapsed. Items stay unbilled and are picked up by the
		// next run once the subscription is restored.
		log.Warn("no active subscription, leaving items unbilled",
			zap.Int("items", len(items)),
		)
		s.incRun("no_subscription")
		return nil
	}
	if err != nil {
		return err
	}

	amount, _ := total.Float64()
	charge, err := s.gateway.CreateUsageCharge(ctx, settings, platform.UsageChargeRequest{
		Description:            cfg.ChargeDescription,
		Amount:                 amount,
		Currency:               s.billingCurrency,
		SubscriptionLineItemID: lineItem.ID,
	})
	if err != nil {
		// Nothing transitioned: entries remain unbilled and the next run
		// retries the full aggregate.
		s.incRun("charge_failed")
		return err
	}

	now := s.clock.Now()
	affected, err := s.ledgerRepo.MarkBilled(ctx, s.db, shop, since, now)
	if err != nil {
		// The charge went through but the transition failed; surface the
		// error so the operator reconciles by hand rather than silently
		// double-charging next month.
		log.Error("charge created but billed transition failed",
			zap.String("charge_id", charge.ID),
			zap.Error(err),
		)
		return err
	}
	if affected != int64(len(items)) {
		log.Warn("billed transition count differs from aggregate set",
			zap.Int64("affected", affected),
			zap.Int("items", len(items)),
		)
	}

	details, _ := json.Marshal(map[string]any{
		"charge_id": charge.ID,
		"since":     since.UTC().Format(time.RFC3339),
	})
	history := &ledgerdomain.BillingHistoryRecord{
		ID:         s.genID.Generate(),
		Shop:       shop,
		TotalPrice: total,
		ItemsCount: len(items),
		Details:    datatypes.JSON(details),
		CreatedAt:  now,
	}
	if err := s.ledgerRepo.InsertHistory(ctx, s.db, history); err != nil {
		return err
	}

	log.Info("usage billing reconciled",
		zap.String("charge_id", charge.ID),
		zap.String("total", total.String()),
		zap.Int("items", len(items)),
	)
	s.incRun("charged")
	return nil
}

func (s *Service) ReconcileAll(ctx context.Context, since time.Time) error {
	shops, err := s.shopRepo.ListInstalled(ctx, s.db)
	if err != nil {
		return err
	}

	var lastErr error
	for _, settings := range shops {
		if err := s.ReconcileShop(ctx, settings.Shop, since); err != nil {
			if errors.Is(err, billingdomain.ErrRunInProgress) {
				continue
			}
			s.log.Error("shop reconciliation failed",
				zap.String("shop", settings.Shop),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	return lastErr
}

func (s *Service) incRun(outcome string) {
	if s.metrics != nil {
		s.metrics.IncBillingRun(outcome)
	}
}
