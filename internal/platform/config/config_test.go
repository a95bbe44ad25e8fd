package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("billing-service-test")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8083, cfg.BillingServiceHTTPPort)
	assert.Equal(t, "postgres", cfg.StorageBackend)
	assert.Equal(t, "xof", cfg.Stripe.StripeCurrency)
	assert.Equal(t, "EUR", cfg.MTN.MTNCurrency)
	assert.Equal(t, "tenants/", cfg.S3.S3TenantPrefix)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("APP_BILLING_SERVICE_HTTP_PORT", "9999")
	t.Setenv("APP_WAVE_API_KEY", "wave-secret")
	t.Setenv("APP_MTN_TARGET_ENVIRONMENT", "mtnivorycoast")

	cfg, err := Load("billing-service-test")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9999, cfg.BillingServiceHTTPPort)
	assert.Equal(t, "wave-secret", cfg.Wave.WaveAPIKey)
	assert.Equal(t, "mtnivorycoast", cfg.MTN.MTNTargetEnvironment)
}
