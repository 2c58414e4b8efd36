package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/worldcache"
)

// WorldTools answers location and availability questions from the world cache.
type WorldTools struct {
	Cache *worldcache.Cache
}

// --- Input types ---

type FindItemInput struct {
	Name string `json:"name" jsonschema:"Commodity or item name, partial names allowed"`
}

type WhereAvailableInput struct {
	Name string `json:"name" jsonschema:"Commodity or item name, partial names allowed"`
}

type ListLocationsInput struct {
	Kind string `json:"kind" jsonschema:"Location kind: system, planet, moon, station, outpost, city or terminal"`
}

// --- Handlers ---

func (t *WorldTools) FindItem(ctx context.Context, _ *mcp.CallToolRequest, input FindItemInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Name) == "" {
		return toolError("Name is required"), nil, nil
	}
	m := t.Cache.Snapshot(ctx).FindItemOrCommodity(input.Name)
	if m == nil {
		return toolJSON([]worldcache.Match{})
	}
	return toolJSON([]worldcache.Match{*m})
}

func (t *WorldTools) WhereAvailable(ctx context.Context, _ *mcp.CallToolRequest, input WhereAvailableInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Name) == "" {
		return toolError("Name is required"), nil, nil
	}
	rows := t.Cache.Snapshot(ctx).WhereAvailable(input.Name)
	if rows == nil {
		rows = []models.Availability{}
	}
	return toolJSON(rows)
}

func (t *WorldTools) ListLocations(ctx context.Context, _ *mcp.CallToolRequest, input ListLocationsInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Kind) == "" {
		return toolError("Kind is required"), nil, nil
	}
	return toolJSON(t.Cache.Snapshot(ctx).ListByKind(input.Kind))
}

func (t *WorldTools) RefreshCache(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	t.Cache.LoadOnce(ctx)
	_, err := t.Cache.Refresh(ctx)
	if errors.Is(err, worldcache.ErrNoData) {
		return toolError("Refresh returned no data; keeping the previous snapshot"), nil, nil
	}
	if err != nil {
		return toolError("Refresh failed: %v", err), nil, nil
	}
	return toolJSON(t.Cache.Status())
}

func (t *WorldTools) CacheStatus(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Cache.Status())
}
