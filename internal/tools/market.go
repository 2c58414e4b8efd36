package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/market"
)

// MarketTools exposes the market optimizer.
type MarketTools struct {
	Market *market.Service
}

// --- Input types ---

type PriceInput struct {
	Name     string `json:"name" jsonschema:"Commodity or item name, partial names allowed"`
	Top      int    `json:"top,omitempty" jsonschema:"How many rows to return (default 5)"`
	Location string `json:"location,omitempty" jsonschema:"Optional place name to restrict results to, e.g. a system or station"`
}

type MostActiveInput struct {
	Scope    string `json:"scope" jsonschema:"Group by commodity or terminal"`
	Top      int    `json:"top,omitempty" jsonschema:"How many groups to return (default 5)"`
	Location string `json:"location,omitempty" jsonschema:"Optional place name to restrict results to"`
}

func (in PriceInput) query() market.Query {
	return market.Query{Name: in.Name, Top: in.Top, Location: in.Location}
}

// --- Handlers ---

func (t *MarketTools) BestBuy(ctx context.Context, _ *mcp.CallToolRequest, input PriceInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Name) == "" {
		return toolError("Name is required"), nil, nil
	}
	return toolJSON(t.Market.BestBuy(ctx, input.query()))
}

func (t *MarketTools) BestSell(ctx context.Context, _ *mcp.CallToolRequest, input PriceInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Name) == "" {
		return toolError("Name is required"), nil, nil
	}
	return toolJSON(t.Market.BestSell(ctx, input.query()))
}

func (t *MarketTools) SpotPrices(ctx context.Context, _ *mcp.CallToolRequest, input PriceInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Name) == "" {
		return toolError("Name is required"), nil, nil
	}
	return toolJSON(t.Market.SpotPrices(ctx, input.query()))
}

func (t *MarketTools) ProfitRoutes(ctx context.Context, _ *mcp.CallToolRequest, input PriceInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Name) == "" {
		return toolError("Name is required"), nil, nil
	}
	return toolJSON(t.Market.ProfitRoutes(ctx, input.query()))
}

func (t *MarketTools) MostActive(ctx context.Context, _ *mcp.CallToolRequest, input MostActiveInput) (*mcp.CallToolResult, any, error) {
	scope := strings.ToLower(strings.TrimSpace(input.Scope))
	if scope == "" {
		scope = market.ScopeCommodity
	}
	if scope != market.ScopeCommodity && scope != market.ScopeTerminal {
		return toolError("Unknown scope %q (use commodity or terminal)", input.Scope), nil, nil
	}
	return toolJSON(t.Market.MostActive(ctx, scope, input.Top, input.Location))
}
