package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/httpclient"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/normalize"
)

// PrimaryPaths maps kinds to the backend persistence API routes.
var PrimaryPaths = map[Kind]string{
	KindStarSystems:         "/api/star-systems",
	KindPlanets:             "/api/planets",
	KindMoons:               "/api/moons",
	KindSpaceStations:       "/api/space-stations",
	KindOutposts:            "/api/outposts",
	KindCities:              "/api/cities",
	KindTerminals:           "/api/terminals",
	KindCommodityPrices:     "/api/commodity-prices",
	KindItemPrices:          "/api/item-prices",
	KindTerminalCommodities: "/api/terminal-commodities",
	KindTerminalItems:       "/api/terminal-items",
	KindPriceSnapshots:      "/api/terminal-prices",
	KindCommodities:         "/api/commodities",
	KindItems:               "/api/items",
}

// ProviderPaths maps kinds to the external data provider's routes.
var ProviderPaths = map[Kind]string{
	KindStarSystems:     "/star_systems",
	KindPlanets:         "/planets",
	KindMoons:           "/moons",
	KindSpaceStations:   "/space_stations",
	KindOutposts:        "/outposts",
	KindCities:          "/cities",
	KindTerminals:       "/terminals",
	KindCommodityPrices: "/commodities_prices_all",
	KindItemPrices:      "/items_prices_all",
	KindPriceSnapshots:  "/commodities_averages",
	KindCommodities:     "/commodities",
	KindItems:           "/items",
}

// HTTPSource lists rows from a JSON HTTP API.
type HTTPSource struct {
	name    string
	baseURL string
	paths   map[Kind]string
	client  *httpclient.Client
}

// NewHTTPSource creates a source rooted at baseURL. Kinds missing from paths
// list as empty.
func NewHTTPSource(name, baseURL string, paths map[Kind]string, client *httpclient.Client) *HTTPSource {
	return &HTTPSource{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   paths,
		client:  client,
	}
}

func (s *HTTPSource) Name() string { return s.name }

// List fetches one kind. Both a bare JSON array and a {"data": [...]}
// envelope are accepted.
func (s *HTTPSource) List(ctx context.Context, kind Kind) ([]normalize.Row, error) {
	path, ok := s.paths[kind]
	if !ok {
		return nil, nil
	}
	var raw json.RawMessage
	if err := s.client.DoJSON(ctx, http.MethodGet, s.baseURL+path, nil, &raw); err != nil {
		return nil, fmt.Errorf("%s list %s: %w", s.name, kind, err)
	}
	return decodeRows(raw)
}

func decodeRows(raw json.RawMessage) ([]normalize.Row, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var rows []normalize.Row
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return rows, nil
	}
	var env struct {
		Status string          `json:"status"`
		Data   []normalize.Row `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Status != "" && !strings.EqualFold(env.Status, "ok") {
		return nil, fmt.Errorf("upstream status %q", env.Status)
	}
	return env.Data, nil
}
