package compileservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfuse/fusegen/pkg/config"
	"github.com/tensorfuse/fusegen/pkg/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		Pass: config.PassConfig{Version: "test-version", MaxWorkers: 1},
		Database: config.DatabaseConfig{
			Type: "postgres",
			Host: "localhost",
		},
		Storage: config.StorageConfig{
			Type:      "local",
			LocalPath: "./test_storage",
		},
		HTTP: config.HTTPConfig{Addr: ":0"},
	}
}

func TestService_New(t *testing.T) {
	cfg := testConfig()

	t.Run("WithLogger", func(t *testing.T) {
		logger := utils.NewDefaultLogger(utils.LevelInfo, nil)
		svc, err := New(cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, svc)
		assert.False(t, svc.IsRunning())
	})

	t.Run("WithoutLogger", func(t *testing.T) {
		svc, err := New(cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, svc)
	})
}

func TestService_HealthCheck_NoComponents(t *testing.T) {
	svc, err := New(testConfig(), nil)
	require.NoError(t, err)

	err = svc.HealthCheck(context.Background())
	assert.NoError(t, err)
}
