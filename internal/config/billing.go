package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig tunes the monthly usage reconciliation without a redeploy.
type BillingConfig struct {
	// ChargeDescription is the human-readable text attached to every
	// platform usage charge.
	ChargeDescription string `mapstructure:"chargeDescription"`
	// MinimumChargeTotal defers charging a shop whose unbilled aggregate is
	// below this value (EUR). Zero charges everything above the ≤0 guard.
	MinimumChargeTotal float64 `mapstructure:"minimumChargeTotal"`
	// BillingDay is the day of month the reconciler sweeps all shops.
	BillingDay int `mapstructure:"billingDay"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		ChargeDescription:  "FastEditor personalization usage fee",
		MinimumChargeTotal: 0,
		BillingDay:         1,
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/editorbridge/config")
	v.AddConfigPath("/etc/editorbridge")
	v.AddConfigPath(".")

	v.SetEnvPrefix("EDITORBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.chargeDescription", defaults.ChargeDescription)
		v.SetDefault("billing.minimumChargeTotal", defaults.MinimumChargeTotal)
		v.SetDefault("billing.billingDay", defaults.BillingDay)
	}

	holder := &BillingConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("billing config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed configuration. Intended for
// tests and tooling that do not watch a config file.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	h := &BillingConfigHolder{}
	h.current.Store(cfg)
	return h
}

func (h *BillingConfigHolder) reload(v *viper.Viper) error {
	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}

// Current returns the active billing configuration.
func (h *BillingConfigHolder) Current() BillingConfig {
	if cfg, ok := h.current.Load().(BillingConfig); ok {
		return cfg
	}
	return DefaultBillingConfig()
}

func (c BillingConfig) validate() error {
	if strings.TrimSpace(c.ChargeDescription) == "" {
		return errors.New("billing.chargeDescription must not be empty")
	}
	if c.MinimumChargeTotal < 0 {
		return errors.New("billing.minimumChargeTotal must not be negative")
	}
	if c.BillingDay < 1 || c.BillingDay > 28 {
		return errors.New("billing.billingDay must be between 1 and 28")
	}
	return nil
}
