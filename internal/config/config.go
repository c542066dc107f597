package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Impact  ImpactConfig  `yaml:"impact" mapstructure:"impact"`
	Spatial SpatialConfig `yaml:"spatial" mapstructure:"spatial"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
}

// StoreConfig configures the Postgres connection pool.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`

	StatementTimeout time.Duration `yaml:"statement_timeout" mapstructure:"statement_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ImpactConfig holds the tunables of the calculator and the impact table.
// They are read once at startup and passed down explicitly.
type ImpactConfig struct {
	GrowthRate         float64 `yaml:"growth_rate" mapstructure:"growth_rate"`
	BulkChunkSize      int     `yaml:"bulk_chunk_size" mapstructure:"bulk_chunk_size"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRankingEntities int     `yaml:"max_ranking_entities" mapstructure:"max_ranking_entities"`
	PageSize           int     `yaml:"page_size" mapstructure:"page_size"`
}

// LayerConfig names one H3 table column.
type LayerConfig struct {
	Table  string `yaml:"table" mapstructure:"table"`
	Column string `yaml:"column" mapstructure:"column"`
}

// SpatialConfig configures the H3 aggregation gateway.
type SpatialConfig struct {
	Cropland             LayerConfig   `yaml:"cropland" mapstructure:"cropland"`
	Deforestation        LayerConfig   `yaml:"deforestation" mapstructure:"deforestation"`
	Carbon               LayerConfig   `yaml:"carbon" mapstructure:"carbon"`
	WaterStress          LayerConfig   `yaml:"water_stress" mapstructure:"water_stress"`
	WaterStressThreshold float64       `yaml:"water_stress_threshold" mapstructure:"water_stress_threshold"`
	Breaker              BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the gateway.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// GeocodeConfig configures location resolution for new intervention locations.
type GeocodeConfig struct {
	GoogleAPIKey string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RadiusKM     float64 `yaml:"radius_km" mapstructure:"radius_km"`
	CacheTTLDays int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// Load reads configuration from file and environment. An empty path looks
// for config.yaml in the working directory and tolerates its absence; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("IMPACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.statement_timeout", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("impact.growth_rate", 1.5)
	v.SetDefault("impact.bulk_chunk_size", 1000)
	v.SetDefault("impact.concurrency", 8)
	v.SetDefault("impact.max_ranking_entities", 5)
	v.SetDefault("impact.page_size", 25)
	v.SetDefault("spatial.cropland.table", "h3_grid_spam2010v2r0_global_ha")
	v.SetDefault("spatial.cropland.column", "spam2010V2R0GlobalHAcofA")
	v.SetDefault("spatial.deforestation.table", "h3_grid_deforestation_global")
	v.SetDefault("spatial.deforestation.column", "hansenLoss2020HaBuffered")
	v.SetDefault("spatial.carbon.table", "h3_grid_ghg_global")
	v.SetDefault("spatial.carbon.column", "forestGhg2020Buffered")
	v.SetDefault("spatial.water_stress.table", "h3_grid_aqueduct_global")
	v.SetDefault("spatial.water_stress.column", "bwsCat")
	v.SetDefault("spatial.water_stress_threshold", 3)
	v.SetDefault("spatial.breaker.failure_threshold", 5)
	v.SetDefault("spatial.breaker.reset_timeout", 30*time.Second)
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.rate_limit", 10)
	v.SetDefault("geocode.radius_km", 50)
	v.SetDefault("geocode.cache_ttl_days", 90)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it touches any
// collaborator. mode is one of "calculate", "table", "intervention", "migrate".
func (c *Config) Validate(mode string) error {
	var missing []string

	if c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url is required")
	}

	switch mode {
	case "calculate":
		if c.Impact.BulkChunkSize <= 0 {
			missing = append(missing, "impact.bulk_chunk_size must be positive")
		}
		if c.Impact.Concurrency <= 0 {
			missing = append(missing, "impact.concurrency must be positive")
		}
	case "table":
		if c.Impact.GrowthRate < 0 {
			missing = append(missing, "impact.growth_rate must not be negative")
		}
	case "intervention":
		if c.Geocode.RadiusKM <= 0 {
			missing = append(missing, "geocode.radius_km must be positive")
		}
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
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
