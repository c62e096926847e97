package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHATBOT_API_KEY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("defaults should load: %v", err)
	}
	if cfg.Pricing.USDINRRate != 91.09 {
		t.Fatalf("unexpected default rate %v", cfg.Pricing.USDINRRate)
	}
	if len(cfg.Pricing.Cities) != 10 {
		t.Fatalf("expected 10 default cities, got %d", len(cfg.Pricing.Cities))
	}
	if cfg.CityPremiums()["Mumbai"] != 20 {
		t.Fatalf("Mumbai premium should be 20, got %v", cfg.CityPremiums()["Mumbai"])
	}
	if cfg.Chat.HistoryLimit != 20 || cfg.Chat.MaxTokens != 300 {
		t.Fatalf("unexpected chat defaults: %+v", cfg.Chat)
	}
	if cfg.Market.RequestTimeout != 10*time.Second {
		t.Fatalf("unexpected market timeout %v", cfg.Market.RequestTimeout)
	}
	if cfg.Watch.Interval != time.Hour || !cfg.Watch.AlignToStart {
		t.Fatalf("unexpected watch defaults: %+v", cfg.Watch)
	}
	if cfg.Market.Symbols.SilverFutures != "SI=F" {
		t.Fatalf("unexpected silver futures symbol %q", cfg.Market.Symbols.SilverFutures)
	}
}

func TestLoadChatKeyFromLegacyEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHATBOT_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chat.APIKey != "sk-test" {
		t.Fatalf("chat api key should come from CHATBOT_API_KEY, got %q", cfg.Chat.APIKey)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "custom.yaml")
	body := `
pricing:
  usd_inr_rate: 83.5
  cities:
    - name: Kochi
      premium_inr: 7.5
session:
  backend: redis
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pricing.USDINRRate != 83.5 {
		t.Fatalf("rate not overridden: %v", cfg.Pricing.USDINRRate)
	}
	if len(cfg.Pricing.Cities) != 1 || cfg.Pricing.Cities[0].Name != "Kochi" {
		t.Fatalf("cities not overridden: %+v", cfg.Pricing.Cities)
	}
	if cfg.Session.Backend != SessionBackendRedis {
		t.Fatalf("session backend not overridden: %q", cfg.Session.Backend)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		return Config{
			Market: MarketConfig{
				HighLookback: 10,
				Symbols:      SymbolsConfig{GoldFutures: "GC=F", SilverFutures: "SI=F", GoldETF: "GLD", SilverETF: "SLV"},
			},
			Pricing: PricingConfig{USDINRRate: 91.09, Cities: DefaultCities()},
			Chat:    ChatConfig{HistoryLimit: 20},
			Session: SessionConfig{Backend: SessionBackendMemory},
			Watch:   WatchConfig{Interval: time.Hour},
			Export:  ExportConfig{MaxDataPoints: 10},
		}
	}

	ok := base()
	if err := ok.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	mutations := map[string]func(*Config){
		"zero rate":        func(c *Config) { c.Pricing.USDINRRate = 0 },
		"negative premium": func(c *Config) { c.Pricing.Cities = []CityPremium{{Name: "X", PremiumINR: -1}} },
		"missing symbol":   func(c *Config) { c.Market.Symbols.SilverETF = "" },
		"history limit":    func(c *Config) { c.Chat.HistoryLimit = 0 },
		"session backend":  func(c *Config) { c.Session.Backend = "etcd" },
		"telegram token":   func(c *Config) { c.Alerting.Telegram.Enabled = true },
		"watch interval":   func(c *Config) { c.Watch.Interval = 0 },
		"export points":    func(c *Config) { c.Export.MaxDataPoints = 0 },
	}
	for name, mutate := range mutations {
		cfg := base()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
