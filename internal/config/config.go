package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageSQLite = "sqlite"
	StorageBolt   = "bolt"
)

type Config struct {
	Exchange struct {
		APIKey            string  `yaml:"api_key"`
		APISecret         string  `yaml:"api_secret"`
		RESTEndpoint      string  `yaml:"rest_endpoint"`
		Testnet           bool    `yaml:"testnet"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		TimeoutMs         int     `yaml:"timeout_ms"`
	} `yaml:"exchange"`
	Webhook struct {
		Passphrase string `yaml:"passphrase"`
	} `yaml:"webhook"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	Notifications struct {
		Enabled bool `yaml:"enabled"`
		Discord struct {
			WebhookURL string `yaml:"webhook_url"`
		} `yaml:"discord"`
		Telegram struct {
			Token    string `yaml:"token"`
			ChatID   int64  `yaml:"chat_id"`
			Endpoint string `yaml:"endpoint"`
		} `yaml:"telegram"`
	} `yaml:"notifications"`
	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
	Trading Trading `yaml:"trading"`
}

// Trading holds the values used when a signal omits them.
type Trading struct {
	StopLossPct     float64 `yaml:"stop_loss_pct"`
	StopLimitGapPct float64 `yaml:"stop_limit_gap_pct"`
	EquityPct       float64 `yaml:"equity_pct"`
}

// Load reads the YAML file at path, applies .env and environment overrides,
// fills defaults and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Exchange.APIKey, "BINANCE_API_KEY")
	setString(&c.Exchange.APISecret, "BINANCE_API_SECRET")
	setString(&c.Webhook.Passphrase, "WEBHOOK_PASSPHRASE")
	setString(&c.Notifications.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")
	setString(&c.Notifications.Telegram.Token, "TELEGRAM_BOT_TOKEN")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Notifications.Telegram.ChatID = id
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageSQLite
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == StorageBolt {
			c.Storage.Path = "signal_trader.bolt"
		} else {
			c.Storage.Path = "signal_trader.db"
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Exchange.TimeoutMs == 0 {
		c.Exchange.TimeoutMs = 10000
	}
	if c.Trading.EquityPct == 0 {
		c.Trading.EquityPct = 100
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Webhook.Passphrase == "" {
		errs = append(errs, errors.New("webhook.passphrase is required"))
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		errs = append(errs, errors.New("exchange api_key and api_secret are required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Storage.Driver != StorageSQLite && c.Storage.Driver != StorageBolt {
		errs = append(errs, fmt.Errorf("storage.driver %q must be %s or %s", c.Storage.Driver, StorageSQLite, StorageBolt))
	}
	if c.Trading.StopLossPct < 0 || c.Trading.StopLossPct >= 100 {
		errs = append(errs, fmt.Errorf("trading.stop_loss_pct %v must be in [0, 100)", c.Trading.StopLossPct))
	}
	if c.Trading.StopLimitGapPct < 0 || c.Trading.StopLimitGapPct >= 100 {
		errs = append(errs, fmt.Errorf("trading.stop_limit_gap_pct %v must be in [0, 100)", c.Trading.StopLimitGapPct))
	}
	if c.Trading.EquityPct <= 0 || c.Trading.EquityPct > 100 {
		errs = append(errs, fmt.Errorf("trading.equity_pct %v must be in (0, 100]", c.Trading.EquityPct))
	}
	if c.Notifications.Telegram.Token != "" && c.Notifications.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("notifications.telegram.chat_id is required with a token"))
	}
	return errors.Join(errs...)
}

func (c *Config) ExchangeTimeout() time.Duration {
	return time.Duration(c.Exchange.TimeoutMs) * time.Millisecond
}
