package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stci-io/stci/internal/config"
	"github.com/stci-io/stci/internal/domain"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		// Clear environment
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify defaults
		require.Equal(t, 8080, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 30, cfg.Server.WriteTimeout)
		require.Equal(t, "local", cfg.Storage.Backend)
		require.Equal(t, "data", cfg.Storage.DataDir)
		require.Equal(t, "https://openrouter.ai/api/v1/models", cfg.Collector.OpenRouterURL)
		require.InDelta(t, 0.05, cfg.Collector.DriftThreshold, 1e-9)
		require.Equal(t, 60, cfg.Redis.CacheTTLSecs)
		require.Empty(t, cfg.Redis.URL)
		require.Equal(t, "data/fixtures/methodology.yaml", cfg.Methodology.Path)
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("STORAGE_BACKEND", "s3")
		t.Setenv("S3_BUCKET", "stci-data")
		t.Setenv("S3_REGION", "eu-west-1")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("DRIFT_THRESHOLD", "0.1")
		t.Setenv("METHODOLOGY_PATH", "/etc/stci/methodology.yaml")

		cfg := config.Load()

		require.NotNil(t, cfg)
		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, "s3", cfg.Storage.Backend)
		require.Equal(t, "stci-data", cfg.Storage.S3Bucket)
		require.Equal(t, "eu-west-1", cfg.Storage.S3Region)
		require.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
		require.InDelta(t, 0.1, cfg.Collector.DriftThreshold, 1e-9)
		require.Equal(t, "/etc/stci/methodology.yaml", cfg.Methodology.Path)
	})
}

const sampleMethodologyYAML = `methodology_version: "1.0.0"
output_ratio: 3.0
carry_forward_max_days: 7
min_basket_coverage: 0.5
decimal_places:
  rates: 6
  weights: 8
  output: 2
weighting:
  type: equal
indices:
  STCI-ALL:
    description: All models with eligible data
  STCI-FRONTIER:
    description: Frontier models
    models:
      - openai/gpt-4o
      - anthropic/claude-sonnet-4
`

func TestLoadMethodology(t *testing.T) {
	writeTemp := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "methodology.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("loads and validates a full document", func(t *testing.T) {
		m, err := config.LoadMethodology(writeTemp(t, sampleMethodologyYAML))
		require.NoError(t, err)
		require.Equal(t, "1.0.0", m.Version)
		require.InDelta(t, 3.0, m.OutputRatio, 1e-9)
		require.Len(t, m.Baskets["STCI-FRONTIER"].Models, 2)
	})

	t.Run("applies defaults for omitted fields", func(t *testing.T) {
		m, err := config.LoadMethodology(writeTemp(t, "methodology_version: \"2.0.0\"\n"))
		require.NoError(t, err)
		require.InDelta(t, domain.DefaultOutputRatio, m.OutputRatio, 1e-9)
		require.Equal(t, domain.DefaultCarryForwardMaxDays, m.CarryForwardMaxDays)
		require.Equal(t, domain.WeightingEqual, m.Weighting.Type)
	})

	t.Run("rejects a contradictory document", func(t *testing.T) {
		bad := "methodology_version: \"1.0.0\"\noutput_ratio: -2\n"
		_, err := config.LoadMethodology(writeTemp(t, bad))
		require.Error(t, err)

		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadMethodology(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
