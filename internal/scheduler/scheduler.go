package scheduler

import (
	"context"
	"errors"
	"time"

	billingdomain "github.com/smallbiznis/editorbridge/internal/billing/domain"
	"github.com/smallbiznis/editorbridge/internal/clock"
	"github.com/smallbiznis/editorbridge/internal/config"
	currencydomain "github.com/smallbiznis/editorbridge/internal/currency/domain"
	obsmetrics "github.com/smallbiznis/editorbridge/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Refresher  currencydomain.Refresher
	BillingSvc billingdomain.Service
	BillingCfg *config.BillingConfigHolder
	Config     Config              `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	refresher  currencydomain.Refresher
	billingSvc billingdomain.Service
	billingCfg *config.BillingConfigHolder
	metrics    *obsmetrics.Metrics

	lastRateRefresh   time.Time
	lastBillingPeriod time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Refresher == nil || p.BillingSvc == nil || p.BillingCfg == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		refresher:  p.Refresher,
		billingSvc: p.BillingSvc,
		billingCfg: p.BillingCfg,
		metrics:    p.Metrics,
	}, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	var lastErr error
	if err := s.RefreshRatesJob(ctx); err != nil {
		lastErr = err
	}
	if err := s.MonthlyBillingJob(ctx); err != nil {
		lastErr = err
	}
	return lastErr
}

// RefreshRatesJob updates the currency table when the refresh interval has
// elapsed.
func (s *Scheduler) RefreshRatesJob(ctx context.Context) error {
	now := s.clock.Now()
	if !s.lastRateRefresh.IsZero() && now.Sub(s.lastRateRefresh) < s.cfg.RateRefreshInterval {
		return nil
	}
	err := s.runJob(ctx, "refresh_rates", func(ctx context.Context) error {
		return s.refresher.RefreshRates(ctx)
	})
	if err != nil {
		return err
	}
	s.lastRateRefresh = now
	return nil
}

// MonthlyBillingJob sweeps all shops once per month on the configured
// billing day, charging everything accrued in the previous period.
func (s *Scheduler) MonthlyBillingJob(ctx context.Context) error {
	now := s.clock.Now()
	period := currentPeriod(now)
	if now.Day() < s.billingCfg.Current().BillingDay {
		return nil
	}
	if s.lastBillingPeriod.Equal(period) {
		return nil
	}

	since := period.AddDate(0, -1, 0)
	err := s.runJob(ctx, "monthly_billing", func(ctx context.Context) error {
		return s.billingSvc.ReconcileAll(ctx, since)
	})
	if err != nil {
		return err
	}
	s.lastBillingPeriod = period
	return nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	log.Info("job started")

	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	s.metrics.ObserveJobDuration(name, elapsed)
	if err != nil {
		s.metrics.IncJobError(name)
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout))
		} else {
			log.Warn("job failed", zap.Error(err))
		}
		return err
	}

	log.Info("job finished", zap.Duration("elapsed", elapsed))
	return nil
}

// currentPeriod is the first instant of now's month in UTC.
func currentPeriod(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
