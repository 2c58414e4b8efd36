package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/convlog"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/market"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/retrieval"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/tools"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/worldcache"
)

// Deps are the services the tools run against.
type Deps struct {
	World         *worldcache.Cache
	Market        *market.Service
	Retrieval     *retrieval.Engine
	Conversations *convlog.Log
	Knowledge     tools.KnowledgeStore
	Embedder      tools.Embedder
}

// New creates a fully configured MCP server with all tools registered.
func New(d Deps) *mcp.Server {
	wt := &tools.WorldTools{Cache: d.World}
	mt := &tools.MarketTools{Market: d.Market}
	rt := &tools.RetrievalTools{Engine: d.Retrieval, Log: d.Conversations}
	kt := &tools.KnowledgeTools{Store: d.Knowledge, Embedder: d.Embedder}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "verse-mcp",
		Version: "0.1.0",
	}, nil)

	// World tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "find_item",
		Description: "Resolve a commodity or item name (exact, then partial, then catalog match)",
	}, wt.FindItem)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "where_available",
		Description: "List the terminals where a commodity or item can be bought or sold, with location",
	}, wt.WhereAvailable)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_locations",
		Description: "List systems, planets, moons, stations, outposts, cities or terminals",
	}, wt.ListLocations)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "refresh_cache",
		Description: "Reload world and market data from upstream (keeps the current data on failure)",
	}, wt.RefreshCache)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "cache_status",
		Description: "Show where the cached world data came from, when, and row counts per collection",
	}, wt.CacheStatus)

	// Market tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "best_buy",
		Description: "Cheapest terminals to buy a commodity or item, optionally within a location",
	}, mt.BestBuy)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "best_sell",
		Description: "Highest-paying terminals to sell a commodity or item, optionally within a location",
	}, mt.BestSell)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "spot_prices",
		Description: "Current buy and sell prices of a commodity or item per terminal",
	}, mt.SpotPrices)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "most_active",
		Description: "Commodities or terminals with the most submitted price reports (not trade volume)",
	}, mt.MostActive)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "profit_routes",
		Description: "Most profitable buy-here, sell-there routes for a commodity or item",
	}, mt.ProfitRoutes)

	// Retrieval tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "retrieve_context",
		Description: "Ranked, deduplicated context snippets from recent conversation and curated knowledge",
	}, rt.RetrieveContext)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "record_messages",
		Description: "Buffer chat messages in memory for conversation retrieval",
	}, rt.RecordMessages)

	// Knowledge tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_document",
		Description: "Create or replace a curated document (keyed by source, url, version and section)",
	}, kt.CreateDocument)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_document",
		Description: "Update fields of a curated document",
	}, kt.UpdateDocument)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_document",
		Description: "Soft-delete a curated document",
	}, kt.DeleteDocument)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_documents",
		Description: "List curated documents, newest first, with optional filters",
	}, kt.ListDocuments)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_embedding",
		Description: "Replace the embedding vector of a curated document",
	}, kt.UpdateEmbedding)

	return srv
}
