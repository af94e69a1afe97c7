package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// No config.yaml in the temp dir.
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "data/facilities.json", cfg.Data.FacilitiesPath)
	assert.Equal(t, "data/analysis.json", cfg.Data.AnalysisPath)
	assert.Empty(t, cfg.Data.DatabaseURL)
	assert.Equal(t, 5, cfg.Mesh.Resolution)
	assert.InDelta(t, 0.25, cfg.Mesh.SampleSpacingDeg, 1e-9)
	assert.Zero(t, cfg.Mesh.Rings)
	assert.InDelta(t, 60, cfg.Cluster.Radius, 1e-9)
	assert.InDelta(t, 40, cfg.Cluster.HighlightRadius, 1e-9)
	assert.Equal(t, 16, cfg.Cluster.MaxZoom)
	assert.Equal(t, 2, cfg.Cluster.MinPoints)
	assert.InDelta(t, 0.3, cfg.Cluster.FitPadding, 1e-9)
	assert.Equal(t, 30, cfg.Insight.MaxRegionInsights)
	assert.Equal(t, 6, cfg.Insight.MaxPanelInsights)
	assert.Equal(t, 40, cfg.Insight.MinScore)
	assert.Equal(t, 95, cfg.Insight.MaxScore)
	assert.Equal(t, 15, cfg.Insight.CountThreshold)
	assert.Equal(t, 200000, cfg.Insight.PopulationThreshold)
	assert.Equal(t, 60, cfg.Chat.TimeoutSecs)
	assert.InDelta(t, 2, cfg.Chat.RateLimit, 1e-9)
	assert.Equal(t, 5, cfg.Chat.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Chat.BreakerReset)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins: ["http://localhost:3000"]
data:
  database_url: postgres://localhost/healthmap
mesh:
  resolution: 6
  rings: 3
cache:
  ttl: 30s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres://localhost/healthmap", cfg.Data.DatabaseURL)
	assert.Equal(t, 6, cfg.Mesh.Resolution)
	assert.Equal(t, 3, cfg.Mesh.Rings)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	// Defaults still apply for unset values
	assert.Equal(t, 16, cfg.Cluster.MaxZoom)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
mesh:
  resolution: 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HEALTHMAP_LOG_LEVEL", "warn")
	t.Setenv("HEALTHMAP_MESH_RESOLUTION", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Mesh.Resolution)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("HEALTHMAP_SERVER_PORT", "3000")
	t.Setenv("HEALTHMAP_CHAT_BASE_URL", "http://chat.internal:8000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "http://chat.internal:8000", cfg.Chat.BaseURL)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [\n"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Data.FacilitiesPath = "data/facilities.json"
	cfg.Mesh.Resolution = 5
	cfg.Cluster.MaxZoom = 16
	cfg.Cluster.FitPadding = 0.3
	cfg.Insight.MinScore = 40
	cfg.Insight.MaxScore = 95
	cfg.Cache.MaxEntries = 256
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	for _, mode := range []string{"serve", "mesh", "insights", "highlight"} {
		t.Run(mode, func(t *testing.T) {
			assert.NoError(t, validDefaults().Validate(mode))
		})
	}
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	assert.NoError(t, cfg.Validate("mesh"), "port only matters when serving")
}

func TestValidate_NoFacilitySource(t *testing.T) {
	cfg := validDefaults()
	cfg.Data.FacilitiesPath = ""

	err := cfg.Validate("insights")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data.facilities_path or data.database_url is required")

	cfg.Data.DatabaseURL = "postgres://localhost/healthmap"
	assert.NoError(t, cfg.Validate("insights"))
}

func TestValidate_Ranges(t *testing.T) {
	cfg := validDefaults()
	cfg.Mesh.Resolution = 16
	cfg.Mesh.Rings = -1
	cfg.Insight.MinScore = 96

	err := cfg.Validate("mesh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mesh.resolution must be between 0 and 15, got 16")
	assert.Contains(t, err.Error(), "mesh.rings must be >= 0")
	assert.Contains(t, err.Error(), "insight.min_score")
}

func TestValidateHighlight_NegativeRate(t *testing.T) {
	cfg := validDefaults()
	cfg.Chat.RateLimit = -1

	err := cfg.Validate("highlight")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chat.rate_limit")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
