package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BooksConfig is the hot-reloadable bookkeeping configuration.
type BooksConfig struct {
	Currency string `mapstructure:"currency"`
	// Sources maps a collection kind to the source label written on new entries.
	Sources SourceLabels `mapstructure:"sources"`
	// MatchTolerance bounds the amount difference accepted by best-match removal.
	MatchTolerance float64 `mapstructure:"matchTolerance"`
}

type SourceLabels struct {
	SalesCredit       string `mapstructure:"salesCredit"`
	ServiceCredit     string `mapstructure:"serviceCredit"`
	NetProfit         string `mapstructure:"netProfit"`
	StockInvestment   string `mapstructure:"stockInvestment"`
	ServiceInvestment string `mapstructure:"serviceInvestment"`
}

func DefaultBooksConfig() BooksConfig {
	return BooksConfig{
		Currency: "Rs",
		Sources: SourceLabels{
			SalesCredit:       "Sales (Credit Collected)",
			ServiceCredit:     "Service (Credit Collected)",
			NetProfit:         "Net Profit (Collected)",
			StockInvestment:   "Stock Investment (Collected)",
			ServiceInvestment: "Service Investment (Collected)",
		},
		MatchTolerance: 0.0001,
	}
}

type BooksConfigHolder struct {
	current atomic.Value // holds BooksConfig
}

// NewStaticBooksConfigHolder pins cfg without watching any file.
func NewStaticBooksConfigHolder(cfg BooksConfig) *BooksConfigHolder {
	holder := &BooksConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBooksConfigHolder(log *zap.Logger) (*BooksConfigHolder, error) {
	log = log.Named("config.books")
	v := viper.New()

	v.SetConfigName("books")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/shopbooks/config")
	v.AddConfigPath("/etc/shopbooks")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHOPBOOKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBooksConfig()
	v.SetDefault("books.currency", defaults.Currency)
	v.SetDefault("books.matchTolerance", defaults.MatchTolerance)
	v.SetDefault("books.sources.salesCredit", defaults.Sources.SalesCredit)
	v.SetDefault("books.sources.serviceCredit", defaults.Sources.ServiceCredit)
	v.SetDefault("books.sources.netProfit", defaults.Sources.NetProfit)
	v.SetDefault("books.sources.stockInvestment", defaults.Sources.StockInvestment)
	v.SetDefault("books.sources.serviceInvestment", defaults.Sources.ServiceInvestment)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var cfg BooksConfig
	if err := v.UnmarshalKey("books", &cfg); err != nil {
		return nil, err
	}
	if err := validateBooksConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBooksConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BooksConfig
		if err := v.UnmarshalKey("books", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateBooksConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BooksConfigHolder) Get() BooksConfig {
	return h.current.Load().(BooksConfig)
}

func validateBooksConfig(cfg BooksConfig) error {
	if cfg.MatchTolerance <= 0 {
		return errors.New("books.matchTolerance must be positive")
	}
	s := cfg.Sources
	for _, label := range []string{s.SalesCredit, s.ServiceCredit, s.NetProfit, s.StockInvestment, s.ServiceInvestment} {
		if strings.TrimSpace(label) == "" {
			return errors.New("books.sources labels cannot be empty")
		}
	}
	return nil
}
