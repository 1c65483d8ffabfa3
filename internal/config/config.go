package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Events    EventsConfig    `mapstructure:"events"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	APIKey        string `mapstructure:"api_key"`
	AdminKey      string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	EventsListKey         string `mapstructure:"events_list_key"`
	EventsListMax         int    `mapstructure:"events_list_max"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// OracleConfig describes the trusted report sources. Each asset maps to
// exactly one source feed; a report for one asset can never be replayed
// against another because the expected source is looked up by asset.
type OracleConfig struct {
	MaxStalenessSeconds int            `mapstructure:"max_staleness_seconds"`
	Sources             []SourceConfig `mapstructure:"sources"`
}

type SourceConfig struct {
	Asset     string   `mapstructure:"asset"`
	SourceID  string   `mapstructure:"source_id"` // 0x-prefixed bytes32
	Signers   []string `mapstructure:"signers"`   // hex addresses
	Threshold int      `mapstructure:"threshold"` // min distinct valid signatures
}

// RiskConfig holds the immutable-per-deployment policy thresholds and the
// fee table mapping effective rating to basis points.
type RiskConfig struct {
	ElevatedThreshold int            `mapstructure:"elevated_threshold"`
	FrozenThreshold   int            `mapstructure:"frozen_threshold"`
	CircuitBreaker    bool           `mapstructure:"circuit_breaker"`
	FeeBps            map[string]int `mapstructure:"fee_bps"`
}

type EventsConfig struct {
	LogDir     string `mapstructure:"log_dir"`
	BufferSize int    `mapstructure:"buffer_size"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. RISKGATE_DATABASE_DSN
	viper.SetEnvPrefix("riskgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("ratelimit.rps", 50)
	viper.SetDefault("ratelimit.burst", 100)
	viper.SetDefault("redis.events_list_key", "risk_events")
	viper.SetDefault("redis.events_list_max", 10000)
	viper.SetDefault("redis.idempotency_ttl_seconds", 86400)
	viper.SetDefault("oracle.max_staleness_seconds", 3600)
	viper.SetDefault("risk.elevated_threshold", 3)
	viper.SetDefault("risk.frozen_threshold", 5)
	viper.SetDefault("risk.circuit_breaker", true)
	viper.SetDefault("risk.fee_bps", map[string]int{
		"1": 70, "2": 85, "3": 100, "4": 150, "5": 300,
	})
	viper.SetDefault("events.log_dir", "./logs")
	viper.SetDefault("events.buffer_size", 1000)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the policy engine cannot run safely on.
func (c *Config) Validate() error {
	if _, err := c.Risk.FeeTable(); err != nil {
		return err
	}
	if c.Risk.ElevatedThreshold < model.MinRating || c.Risk.ElevatedThreshold > model.MaxRating {
		return fmt.Errorf("risk.elevated_threshold %d outside [%d,%d]",
			c.Risk.ElevatedThreshold, model.MinRating, model.MaxRating)
	}
	if c.Risk.FrozenThreshold < model.MinRating || c.Risk.FrozenThreshold > model.MaxRating {
		return fmt.Errorf("risk.frozen_threshold %d outside [%d,%d]",
			c.Risk.FrozenThreshold, model.MinRating, model.MaxRating)
	}
	if c.Risk.FrozenThreshold < c.Risk.ElevatedThreshold {
		return fmt.Errorf("risk.frozen_threshold %d below elevated_threshold %d",
			c.Risk.FrozenThreshold, c.Risk.ElevatedThreshold)
	}
	for _, src := range c.Oracle.Sources {
		if src.Asset == "" || src.SourceID == "" {
			return fmt.Errorf("oracle source missing asset or source_id")
		}
		if len(src.Signers) == 0 {
			return fmt.Errorf("oracle source %s has no signers", src.Asset)
		}
		if src.Threshold <= 0 || src.Threshold > len(src.Signers) {
			return fmt.Errorf("oracle source %s threshold %d invalid for %d signers",
				src.Asset, src.Threshold, len(src.Signers))
		}
	}
	return nil
}

// FeeTable resolves the configured fee map into a total mapping over every
// valid rating. Every integer in [1,5] must map to exactly one tier.
func (r *RiskConfig) FeeTable() (map[int]int, error) {
	table := make(map[int]int, model.MaxRating)
	for k, bps := range r.FeeBps {
		rating, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("risk.fee_bps key %q is not an integer rating", k)
		}
		if rating < model.MinRating || rating > model.MaxRating {
			return nil, fmt.Errorf("risk.fee_bps rating %d outside [%d,%d]",
				rating, model.MinRating, model.MaxRating)
		}
		if bps < 0 {
			return nil, fmt.Errorf("risk.fee_bps[%d] is negative", rating)
		}
		table[rating] = bps
	}
	for rating := model.MinRating; rating <= model.MaxRating; rating++ {
		if _, ok := table[rating]; !ok {
			return nil, fmt.Errorf("risk.fee_bps has no tier for rating %d", rating)
		}
	}
	return table, nil
}

// MaxStaleness returns the staleness bound as a duration.
func (o *OracleConfig) MaxStaleness() time.Duration {
	return time.Duration(o.MaxStalenessSeconds) * time.Second
}
