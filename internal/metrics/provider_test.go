package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	for _, namespace := range []string{"workforce", ""} {
		provider, err := NewProvider(namespace)

		require.NoError(t, err)
		assert.NotNil(t, provider.MeterProvider())
		assert.NotNil(t, provider.Handler())
		assert.NoError(t, provider.Shutdown(context.Background()))
	}
}

func TestProvider_Scrape(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	counter, err := provider.MeterProvider().Meter("test").Int64Counter("events_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	output := scrape(t, provider)

	assert.Contains(t, output, `service_name="test_app"`)
	assert.Contains(t, output, "events_total")
	assert.Contains(t, output, "go_goroutines")
}

func TestProvider_ShutdownWithoutMeterProvider(t *testing.T) {
	assert.NoError(t, (&Provider{}).Shutdown(context.Background()))
}
