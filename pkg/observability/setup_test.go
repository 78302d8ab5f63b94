package observability

import (
	"testing"

	"github.com/raywall/broadband-plan-service/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMetrics(t *testing.T) {
	t.Run("Disabled returns Noop", func(t *testing.T) {
		provider, err := SetupMetrics(config.MetricsConf{}, "broadband-plan-service")
		require.NoError(t, err)

		assert.IsType(t, &NoopProvider{}, provider)
		assert.NoError(t, provider.Count("x", 1, nil))
	})

	t.Run("Enabled returns Datadog", func(t *testing.T) {
		cfg := config.MetricsConf{
			Datadog: config.DatadogConf{
				Enabled:   true,
				Addr:      "localhost:8125",
				Namespace: "svc.",
				Tags:      []string{"env:test"},
			},
		}

		provider, err := SetupMetrics(cfg, "broadband-plan-service")
		require.NoError(t, err)

		dd, ok := provider.(*DatadogProvider)
		require.True(t, ok, "esperado DatadogProvider, recebido %T", provider)
		assert.NoError(t, dd.Count("broadband.cache.hit", 1, []string{"op:list_plans"}))
		assert.NoError(t, dd.Close())
	})
}
