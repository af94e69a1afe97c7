package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Mesh    MeshConfig    `yaml:"mesh" mapstructure:"mesh"`
	Cluster ClusterConfig `yaml:"cluster" mapstructure:"cluster"`
	Insight InsightConfig `yaml:"insight" mapstructure:"insight"`
	Chat    ChatConfig    `yaml:"chat" mapstructure:"chat"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// DataConfig locates the inputs. When DatabaseURL is set, facilities come
// from Postgres instead of FacilitiesPath.
type DataConfig struct {
	FacilitiesPath string `yaml:"facilities_path" mapstructure:"facilities_path"`
	AnalysisPath   string `yaml:"analysis_path" mapstructure:"analysis_path"`
	RegionsPath    string `yaml:"regions_path" mapstructure:"regions_path"`
	DatabaseURL    string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns       int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// MeshConfig configures the hex mesh builder.
type MeshConfig struct {
	Resolution       int     `yaml:"resolution" mapstructure:"resolution"`
	SampleSpacingDeg float64 `yaml:"sample_spacing_deg" mapstructure:"sample_spacing_deg"`
	Rings            int     `yaml:"rings" mapstructure:"rings"`
}

// ClusterConfig configures marker clustering.
type ClusterConfig struct {
	Radius          float64 `yaml:"radius" mapstructure:"radius"`
	HighlightRadius float64 `yaml:"highlight_radius" mapstructure:"highlight_radius"`
	MaxZoom         int     `yaml:"max_zoom" mapstructure:"max_zoom"`
	MinPoints       int     `yaml:"min_points" mapstructure:"min_points"`
	Extent          float64 `yaml:"extent" mapstructure:"extent"`
	FitPadding      float64 `yaml:"fit_padding" mapstructure:"fit_padding"`
}

// InsightConfig configures insight scoring.
type InsightConfig struct {
	MaxRegionInsights   int `yaml:"max_region_insights" mapstructure:"max_region_insights"`
	MaxPanelInsights    int `yaml:"max_panel_insights" mapstructure:"max_panel_insights"`
	MinScore            int `yaml:"min_score" mapstructure:"min_score"`
	MaxScore            int `yaml:"max_score" mapstructure:"max_score"`
	CountThreshold      int `yaml:"count_threshold" mapstructure:"count_threshold"`
	PopulationThreshold int `yaml:"population_threshold" mapstructure:"population_threshold"`
}

// ChatConfig configures the chat backend client.
type ChatConfig struct {
	BaseURL          string        `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit        float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	BreakerThreshold int           `yaml:"breaker_threshold" mapstructure:"breaker_threshold"` // 0 disables
	BreakerReset     time.Duration `yaml:"breaker_reset" mapstructure:"breaker_reset"`
}

// CacheConfig configures the API result cache.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HEALTHMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("data.facilities_path", "data/facilities.json")
	v.SetDefault("data.analysis_path", "data/analysis.json")
	v.SetDefault("data.regions_path", "")
	v.SetDefault("data.database_url", "")
	v.SetDefault("data.max_conns", 4)
	v.SetDefault("mesh.resolution", 5)
	v.SetDefault("mesh.sample_spacing_deg", 0.25)
	v.SetDefault("mesh.rings", 0)
	v.SetDefault("cluster.radius", 60)
	v.SetDefault("cluster.highlight_radius", 40)
	v.SetDefault("cluster.max_zoom", 16)
	v.SetDefault("cluster.min_points", 2)
	v.SetDefault("cluster.extent", 512)
	v.SetDefault("cluster.fit_padding", 0.3)
	v.SetDefault("insight.max_region_insights", 30)
	v.SetDefault("insight.max_panel_insights", 6)
	v.SetDefault("insight.min_score", 40)
	v.SetDefault("insight.max_score", 95)
	v.SetDefault("insight.count_threshold", 15)
	v.SetDefault("insight.population_threshold", 200000)
	v.SetDefault("chat.base_url", "")
	v.SetDefault("chat.timeout_secs", 60)
	v.SetDefault("chat.rate_limit", 2)
	v.SetDefault("chat.breaker_threshold", 5)
	v.SetDefault("chat.breaker_reset", "30s")
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.ttl", "10m")

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

// Validate checks the settings a command depends on. mode is the command
// name: serve, mesh, insights or highlight.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Cache.MaxEntries < 0 {
			errs = append(errs, "cache.max_entries must be >= 0")
		}
	case "mesh", "insights":
	case "highlight":
		if c.Chat.RateLimit < 0 {
			errs = append(errs, "chat.rate_limit must be >= 0")
		}
		if c.Chat.BreakerThreshold < 0 {
			errs = append(errs, "chat.breaker_threshold must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Data.DatabaseURL == "" && c.Data.FacilitiesPath == "" {
		errs = append(errs, "data.facilities_path or data.database_url is required")
	}
	if c.Mesh.Resolution < 0 || c.Mesh.Resolution > 15 {
		errs = append(errs, fmt.Sprintf("mesh.resolution must be between 0 and 15, got %d", c.Mesh.Resolution))
	}
	if c.Mesh.Rings < 0 {
		errs = append(errs, "mesh.rings must be >= 0")
	}
	if c.Mesh.SampleSpacingDeg < 0 {
		errs = append(errs, "mesh.sample_spacing_deg must be >= 0")
	}
	if c.Cluster.MaxZoom < 0 || c.Cluster.MaxZoom > 24 {
		errs = append(errs, "cluster.max_zoom must be between 0 and 24")
	}
	if c.Cluster.FitPadding < 0 {
		errs = append(errs, "cluster.fit_padding must be >= 0")
	}
	if c.Insight.MinScore > c.Insight.MaxScore || c.Insight.MaxScore > 100 {
		errs = append(errs, "insight.min_score must be <= insight.max_score <= 100")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
