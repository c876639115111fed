// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/geovintage/boundary-cli/internal/db"
	"github.com/geovintage/boundary-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Match   MatchConfig   `yaml:"match" mapstructure:"match"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the PostGIS backend.
type StoreConfig struct {
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// CatalogConfig configures the product catalog and local load ledger.
type CatalogConfig struct {
	LedgerPath string `yaml:"ledger_path" mapstructure:"ledger_path"`
	TempDir    string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// FetchConfig configures archive downloads.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// MatchConfig configures the similarity scorer and matcher.
type MatchConfig struct {
	IdenticalMin   float64 `yaml:"identical_min" mapstructure:"identical_min"`
	LikelyMatchMin float64 `yaml:"likely_match_min" mapstructure:"likely_match_min"`
	SuspectMin     float64 `yaml:"suspect_min" mapstructure:"suspect_min"`
	IoUWeight      float64 `yaml:"iou_weight" mapstructure:"iou_weight"`
	DistanceWeight float64 `yaml:"distance_weight" mapstructure:"distance_weight"`
	Buffer         float64 `yaml:"buffer" mapstructure:"buffer"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`
}

// Thresholds returns the configured similarity thresholds.
func (m MatchConfig) Thresholds() model.SimilarityThresholds {
	return model.SimilarityThresholds{
		IdenticalMin:   m.IdenticalMin,
		LikelyMatchMin: m.LikelyMatchMin,
		SuspectMin:     m.SuspectMin,
	}
}

// Weights returns the configured combined-score weights.
func (m MatchConfig) Weights() model.ScoreWeights {
	return model.ScoreWeights{IoU: m.IoUWeight, Distance: m.DistanceWeight}
}

// ExportConfig configures review workbook output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the review API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BOUNDARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.ledger_path", "boundary.db")
	v.SetDefault("catalog.temp_dir", "/tmp/boundary")
	v.SetDefault("fetch.user_agent", "boundary-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 600)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 2)
	v.SetDefault("match.identical_min", 0.95)
	v.SetDefault("match.likely_match_min", 0.80)
	v.SetDefault("match.suspect_min", 0.50)
	v.SetDefault("match.iou_weight", 0.70)
	v.SetDefault("match.distance_weight", 0.30)
	v.SetDefault("match.buffer", 0.01)
	v.SetDefault("match.workers", 4)
	v.SetDefault("export.dir", ".")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
