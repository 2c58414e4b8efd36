package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/backend"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/config"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/storage"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Primary.BaseURL, cfg.Fallback.BaseURL, cfg.Embedder.BaseURL, cfg.Market.RedisAddr = "", "", "", ""
	cfg.Cache.SnapshotDir = t.TempDir()
	cfg.Knowledge.Backend = "sqlite"
	cfg.Knowledge.DataDir = t.TempDir()
	return cfg
}

func TestBuildSelectsKnowledgeBackend(t *testing.T) {
	cfg := testConfig(t)
	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, ok := app.Knowledge.(*storage.Store)
	assert.True(t, ok)
	assert.Nil(t, app.Embedder)
	require.NoError(t, app.Close())

	cfg.Knowledge.Backend = "http"
	cfg.Knowledge.BaseURL = "http://backend.invalid"
	app, err = Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, ok = app.Knowledge.(*backend.Client)
	assert.True(t, ok)
	require.NoError(t, app.Close())
}

func TestBuildRejectsBadKnowledgeConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Knowledge.Backend = "http"
	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg.Knowledge.Backend = "postgres"
	_, err = Build(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown knowledge backend")
}

func TestBuildFallsBackWhenRedisIsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Market.RedisAddr = "127.0.0.1:1"
	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()
	assert.NotNil(t, app.Market)
	assert.Len(t, app.closers, 1, "only the knowledge store needs closing")
}

func TestNewRegistersTools(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer app.Close()
	assert.NotNil(t, New(app.Deps))
}
