package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"metals-dashboard/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
	Market     MarketConfig     `mapstructure:"market"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Session    SessionConfig    `mapstructure:"session"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig drives the web dashboard.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SessionCookie   string        `mapstructure:"session_cookie"`
}

// MarketConfig covers the market-data provider.
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Interval       string        `mapstructure:"interval"`
	HighLookback   int           `mapstructure:"high_lookback"`
	Symbols        SymbolsConfig `mapstructure:"symbols"`
	Windows        WindowsConfig `mapstructure:"windows"`
}

// SymbolsConfig names the provider tickers per metal.
type SymbolsConfig struct {
	GoldFutures   string `mapstructure:"gold_futures"`
	SilverFutures string `mapstructure:"silver_futures"`
	GoldETF       string `mapstructure:"gold_etf"`
	SilverETF     string `mapstructure:"silver_etf"`
}

// WindowsConfig holds lookback windows in provider range notation.
type WindowsConfig struct {
	ETF     string `mapstructure:"etf"`
	Futures string `mapstructure:"futures"`
	Trend   string `mapstructure:"trend"`
}

// PricingConfig holds the static inputs of the metrics pipeline.
type PricingConfig struct {
	USDINRRate       float64       `mapstructure:"usd_inr_rate"`
	DefaultBudgetINR float64       `mapstructure:"default_budget_inr"`
	Cities           []CityPremium `mapstructure:"cities"`
}

// CityPremium is one row of the locality premium table.
type CityPremium struct {
	Name       string  `mapstructure:"name"`
	PremiumINR float64 `mapstructure:"premium_inr"`
}

// PredictionConfig locates the forecast model.
type PredictionConfig struct {
	ModelPath      string        `mapstructure:"model_path"`
	ServiceURL     string        `mapstructure:"service_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ChatConfig parameterises the completion service.
type ChatConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float32       `mapstructure:"temperature"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SessionConfig selects the per-session state backend.
type SessionConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig covers the optional shared session store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// AlertingConfig defines forecast notification routing.
type AlertingConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// WatchConfig drives the periodic forecast publisher.
type WatchConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToStart bool          `mapstructure:"align_to_start"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// ExportConfig sets export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Load builds configuration from file, environment, and defaults.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("METALSDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("chat.api_key", "METALSDASH_CHAT_API_KEY", "CHATBOT_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind chat api key: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// DefaultCities is the locality premium table in INR per gram.
func DefaultCities() []CityPremium {
	return []CityPremium{
		{Name: "Mumbai", PremiumINR: 20},
		{Name: "Delhi", PremiumINR: 15},
		{Name: "Bengaluru", PremiumINR: 10},
		{Name: "Chennai", PremiumINR: 12},
		{Name: "Kolkata", PremiumINR: 18},
		{Name: "Hyderabad", PremiumINR: 14},
		{Name: "Pune", PremiumINR: 9},
		{Name: "Ahmedabad", PremiumINR: 22},
		{Name: "Surat", PremiumINR: 16},
		{Name: "Jaipur", PremiumINR: 13},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "metalsdash")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.session_cookie", "metalsdash_session")

	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.request_timeout", "10s")
	v.SetDefault("market.user_agent", "Mozilla/5.0 (metalsdash)")
	v.SetDefault("market.interval", "1d")
	v.SetDefault("market.high_lookback", 10)
	v.SetDefault("market.symbols.gold_futures", "GC=F")
	v.SetDefault("market.symbols.silver_futures", "SI=F")
	v.SetDefault("market.symbols.gold_etf", "GLD")
	v.SetDefault("market.symbols.silver_etf", "SLV")
	v.SetDefault("market.windows.etf", "30d")
	v.SetDefault("market.windows.futures", "5d")
	v.SetDefault("market.windows.trend", "1y")

	v.SetDefault("pricing.usd_inr_rate", 91.09)
	v.SetDefault("pricing.default_budget_inr", 100000.0)
	cities := make([]map[string]any, 0, 10)
	for _, c := range DefaultCities() {
		cities = append(cities, map[string]any{"name": c.Name, "premium_inr": c.PremiumINR})
	}
	v.SetDefault("pricing.cities", cities)

	v.SetDefault("prediction.model_path", "silver_model.json")
	v.SetDefault("prediction.service_url", "")
	v.SetDefault("prediction.request_timeout", "5s")

	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.base_url", "")
	v.SetDefault("chat.model", "gpt-3.5-turbo")
	v.SetDefault("chat.max_tokens", 300)
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.history_limit", 20)
	v.SetDefault("chat.request_timeout", "30s")

	v.SetDefault("session.backend", SessionBackendMemory)
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.prefix", "metalsdash")

	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.align_to_start", true)
	v.SetDefault("watch.startup_delay", "0s")

	v.SetDefault("export.max_data_points", 1000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Pricing.USDINRRate <= 0 {
		return fmt.Errorf("pricing.usd_inr_rate must be greater than zero")
	}
	if c.Pricing.DefaultBudgetINR < 0 {
		return fmt.Errorf("pricing.default_budget_inr cannot be negative")
	}
	if len(c.Pricing.Cities) == 0 {
		return fmt.Errorf("pricing.cities cannot be empty")
	}
	for _, city := range c.Pricing.Cities {
		if strings.TrimSpace(city.Name) == "" {
			return fmt.Errorf("pricing.cities entries need a name")
		}
		if city.PremiumINR < 0 {
			return fmt.Errorf("pricing.cities premium for %s cannot be negative", city.Name)
		}
	}
	s := c.Market.Symbols
	if s.GoldFutures == "" || s.SilverFutures == "" || s.GoldETF == "" || s.SilverETF == "" {
		return fmt.Errorf("market.symbols must all be configured")
	}
	if c.Market.HighLookback <= 0 {
		return fmt.Errorf("market.high_lookback must be greater than zero")
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be greater than zero")
	}
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q", SessionBackendMemory, SessionBackendRedis, c.Session.Backend)
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// CityPremiums flattens the premium table for the pricing package.
func (c *Config) CityPremiums() map[string]float64 {
	out := make(map[string]float64, len(c.Pricing.Cities))
	for _, city := range c.Pricing.Cities {
		out[city.Name] = city.PremiumINR
	}
	return out
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
