package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/httpclient"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/normalize"
)

func testClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{MaxRetries: 0, Timeout: time.Second})
}

func TestHTTPSourceAcceptsArrayAndEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/star_systems", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","data":[{"id":68,"name":"Stanton"}]}`))
	})
	mux.HandleFunc("/planets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Hurston","id_star_system":68}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewHTTPSource("provider", srv.URL+"/", ProviderPaths, testClient())
	ctx := context.Background()

	systems, err := src.List(ctx, KindStarSystems)
	require.NoError(t, err)
	require.Len(t, systems, 1)
	assert.Equal(t, "Stanton", systems[0]["name"])

	planets, err := src.List(ctx, KindPlanets)
	require.NoError(t, err)
	got, skipped := normalize.Planets(planets)
	assert.Zero(t, skipped)
	require.Len(t, got, 1)
	assert.Equal(t, 68, got[0].StarSystemID)
}

func TestHTTPSourceUnmappedKindIsEmpty(t *testing.T) {
	src := NewHTTPSource("provider", "http://127.0.0.1:1", ProviderPaths, testClient())
	rows, err := src.List(context.Background(), KindTerminalItems)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHTTPSourceFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/planets" {
			_, _ = w.Write([]byte(`{"status":"error","data":[]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource("primary", srv.URL, PrimaryPaths, testClient())
	_, err := src.List(context.Background(), KindStarSystems)
	assert.Error(t, err)
	_, err = src.List(context.Background(), KindPlanets)
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	src := NewSnapshotSource(dir)

	rows, err := src.List(context.Background(), KindCities)
	require.NoError(t, err)
	assert.Empty(t, rows, "missing file is an empty collection")

	cities := []models.City{{ID: 3, Name: "Lorville", StarSystemID: 68, PlanetID: 1}}
	require.NoError(t, WriteSnapshot(dir, KindCities, cities))

	rows, err = src.List(context.Background(), KindCities)
	require.NoError(t, err)
	got, _ := normalize.Cities(rows)
	assert.Equal(t, cities, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSnapshotMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "moons.json"), []byte("{not json"), 0o644))
	_, err := NewSnapshotSource(dir).List(context.Background(), KindMoons)
	assert.Error(t, err)
}
