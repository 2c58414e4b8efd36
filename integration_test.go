package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/config"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/market"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/retrieval"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/server"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/worldcache"
)

func price(f float64) *float64 { return &f }
func count(n int) *int         { return &n }

func worldFixture() *worldcache.Data {
	return &worldcache.Data{
		StarSystems: []models.StarSystem{{ID: 68, Name: "Stanton"}},
		Planets:     []models.Planet{{ID: 1, Name: "Hurston", StarSystemID: 68}},
		SpaceStations: []models.SpaceStation{
			{ID: 20, Name: "Everus Harbor", StarSystemID: 68, PlanetID: 1},
		},
		Cities: []models.City{{ID: 40, Name: "Lorville", StarSystemID: 68, PlanetID: 1}},
		Terminals: []models.Terminal{
			{ID: 100, Name: "TDD Everus", SpaceStationID: 20},
			{ID: 102, Name: "Lorville CBD", CityID: 40},
		},
		CommodityListings: []models.CommodityListing{
			{TerminalID: 100, CommodityName: "Laranite", PriceBuy: price(28), BuyReportCount: count(4)},
			{TerminalID: 102, CommodityName: "Laranite", PriceSell: price(31), SellReportCount: count(2)},
		},
	}
}

// setupIntegration wires the real services over a disk snapshot and a temp
// knowledge store, and returns a connected client session.
func setupIntegration(t *testing.T) (*mcp.ClientSession, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "verse-mcp-integration-*")
	if err != nil {
		t.Fatal(err)
	}
	snapDir := filepath.Join(dir, "snapshot")
	if err := worldcache.WriteSnapshot(snapDir, worldFixture()); err != nil {
		os.RemoveAll(dir)
		t.Fatalf("write snapshot: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	cfg.Primary.BaseURL, cfg.Fallback.BaseURL, cfg.Embedder.BaseURL, cfg.Market.RedisAddr = "", "", "", ""
	cfg.Cache.SnapshotDir = snapDir
	cfg.Knowledge.Backend = "sqlite"
	cfg.Knowledge.DataDir = filepath.Join(dir, "data")
	cfg.Knowledge.Dimension = 3

	ctx := context.Background()
	app, err := server.Build(ctx, cfg, nil)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("build: %v", err)
	}
	srv := server.New(app.Deps)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	_, err = srv.Connect(ctx, serverTransport, nil)
	if err != nil {
		app.Close()
		os.RemoveAll(dir)
		t.Fatalf("server connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		app.Close()
		os.RemoveAll(dir)
		t.Fatalf("client connect: %v", err)
	}

	cleanup := func() {
		session.Close()
		app.World.Wait()
		app.Close()
		os.RemoveAll(dir)
	}
	return session, cleanup
}

// callTool is a helper that calls a tool and returns the text content.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) returned error: %s", name, tc.Text)
	}
	return tc.Text
}

// callToolExpectError calls a tool and expects an error response (IsError=true).
func callToolExpectError(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): protocol error: %v", name, err)
	}
	if !result.IsError {
		tc := result.Content[0].(*mcp.TextContent)
		t.Fatalf("CallTool(%s): expected error but got success: %s", name, tc.Text)
	}
	tc := result.Content[0].(*mcp.TextContent)
	return tc.Text
}

func TestIntegration_ListTools(t *testing.T) {
	session, cleanup := setupIntegration(t)
	defer cleanup()

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	expectedTools := []string{
		"find_item", "where_available", "list_locations", "refresh_cache", "cache_status",
		"best_buy", "best_sell", "spot_prices", "most_active", "profit_routes",
		"retrieve_context", "record_messages",
		"create_document", "update_document", "delete_document", "list_documents", "update_embedding",
	}

	toolNames := make(map[string]bool)
	for _, tool := range result.Tools {
		toolNames[tool.Name] = true
	}

	for _, name := range expectedTools {
		if !toolNames[name] {
			t.Errorf("Missing tool: %s", name)
		}
	}

	if len(result.Tools) != len(expectedTools) {
		t.Errorf("Expected %d tools, got %d", len(expectedTools), len(result.Tools))
	}
}

func TestIntegration_WorldAndMarket(t *testing.T) {
	session, cleanup := setupIntegration(t)
	defer cleanup()

	// Step 1: find_item loads the disk snapshot on first use
	text := callTool(t, session, "find_item", map[string]any{"name": "lara"})
	var matches []worldcache.Match
	if err := json.Unmarshal([]byte(text), &matches); err != nil {
		t.Fatalf("parse find_item: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "Laranite" || matches[0].Kind != worldcache.KindCommodity {
		t.Fatalf("find_item(lara) = %+v", matches)
	}

	text = callTool(t, session, "cache_status", nil)
	var status worldcache.Status
	if err := json.Unmarshal([]byte(text), &status); err != nil {
		t.Fatalf("parse cache_status: %v", err)
	}
	if status.Origin != "snapshot" {
		t.Errorf("origin = %q, want snapshot", status.Origin)
	}
	if status.Counts["terminals"] != 2 {
		t.Errorf("terminal count = %d, want 2", status.Counts["terminals"])
	}

	// Step 2: where_available
	text = callTool(t, session, "where_available", map[string]any{"name": "Laranite"})
	var avail []models.Availability
	if err := json.Unmarshal([]byte(text), &avail); err != nil {
		t.Fatalf("parse where_available: %v", err)
	}
	if len(avail) != 2 {
		t.Fatalf("expected 2 terminals, got %d", len(avail))
	}
	if avail[0].Location != "Lorville, Hurston, Stanton" {
		t.Errorf("location = %q", avail[0].Location)
	}

	text = callTool(t, session, "list_locations", map[string]any{"kind": "stations"})
	if !strings.Contains(text, "Everus Harbor") {
		t.Errorf("list_locations(stations) missing Everus Harbor: %s", text)
	}

	// Step 3: best_buy and profit_routes
	text = callTool(t, session, "best_buy", map[string]any{"name": "laranite"})
	var answers []market.Answer
	if err := json.Unmarshal([]byte(text), &answers); err != nil {
		t.Fatalf("parse best_buy: %v", err)
	}
	if len(answers) != 1 || len(answers[0].Listings) != 1 || answers[0].Listings[0].TerminalName != "TDD Everus" {
		t.Fatalf("best_buy = %s", text)
	}

	text = callTool(t, session, "profit_routes", map[string]any{"name": "laranite", "location": "Stanton"})
	var routes []market.RouteAnswer
	if err := json.Unmarshal([]byte(text), &routes); err != nil {
		t.Fatalf("parse profit_routes: %v", err)
	}
	if len(routes) != 1 || len(routes[0].Routes) != 1 || routes[0].Routes[0].Spread != 3 {
		t.Fatalf("profit_routes = %s", text)
	}

	text = callTool(t, session, "best_sell", map[string]any{"name": "unobtainium"})
	if strings.TrimSpace(text) != "[]" {
		t.Errorf("unknown name should give [], got %s", text)
	}

	text = callTool(t, session, "most_active", map[string]any{"scope": "terminal"})
	var activity []market.Activity
	if err := json.Unmarshal([]byte(text), &activity); err != nil {
		t.Fatalf("parse most_active: %v", err)
	}
	if len(activity) != 2 || activity[0].Key != "TDD Everus" || activity[0].Reports != 4 {
		t.Errorf("most_active = %s", text)
	}
	callToolExpectError(t, session, "most_active", map[string]any{"scope": "galaxy"})

	// Step 4: no upstream is configured, so a refresh keeps the snapshot
	callToolExpectError(t, session, "refresh_cache", nil)
	text = callTool(t, session, "cache_status", nil)
	if !strings.Contains(text, `"origin": "snapshot"`) {
		t.Errorf("snapshot should survive a failed refresh: %s", text)
	}
}

func TestIntegration_KnowledgeAndRetrieval(t *testing.T) {
	session, cleanup := setupIntegration(t)
	defer cleanup()

	doc := map[string]any{
		"source":   "wiki",
		"category": "mining",
		"url":      "https://wiki.example/quantanium",
		"title":    "Quantanium",
		"content":  "Quantanium is volatile and decays after mining.",
	}

	// Step 1: create the same document twice; the second call wins
	callTool(t, session, "create_document", doc)
	doc["content"] = "Quantanium is volatile ore that explodes if not refined in time."
	text := callTool(t, session, "create_document", doc)
	var created models.KnowledgeDocument
	if err := json.Unmarshal([]byte(text), &created); err != nil {
		t.Fatalf("parse create_document: %v", err)
	}

	text = callTool(t, session, "list_documents", map[string]any{"category": "mining"})
	var docs []models.KnowledgeDocument
	if err := json.Unmarshal([]byte(text), &docs); err != nil {
		t.Fatalf("parse list_documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document after upsert, got %d", len(docs))
	}
	if !strings.Contains(docs[0].Content, "explodes") {
		t.Errorf("second create should win, got %q", docs[0].Content)
	}

	// Step 2: embeddings of the wrong length are rejected
	errText := callToolExpectError(t, session, "update_embedding", map[string]any{
		"id":        created.ID,
		"embedding": []any{1, 2},
	})
	if !strings.Contains(errText, "dimension") {
		t.Errorf("unexpected error text: %s", errText)
	}
	callTool(t, session, "update_embedding", map[string]any{"id": created.ID, "embedding": []any{1, 0, 0}})

	// Step 3: buffer chat and retrieve from both corpora
	callTool(t, session, "record_messages", map[string]any{
		"messages": []any{
			map[string]any{"author": "miner42", "channel": "trade", "content": "anyone selling quantanium near Hurston?"},
			map[string]any{"author": "racer", "channel": "trade", "content": "race at 8"},
		},
	})

	text = callTool(t, session, "retrieve_context", map[string]any{"query": "quantanium", "k": 5})
	var snippets []retrieval.Snippet
	if err := json.Unmarshal([]byte(text), &snippets); err != nil {
		t.Fatalf("parse retrieve_context: %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("expected 2 snippets, got %d: %s", len(snippets), text)
	}
	if snippets[0].Source != retrieval.SourceKnowledge || snippets[1].Source != retrieval.SourceConversation {
		t.Errorf("knowledge should rank ahead of conversation: %s", text)
	}

	text = callTool(t, session, "retrieve_context", map[string]any{"query": "quantanium", "corpus": "nowhere"})
	if strings.TrimSpace(text) != "[]" {
		t.Errorf("unknown corpus should give [], got %s", text)
	}

	// Step 4: delete
	callTool(t, session, "delete_document", map[string]any{"id": created.ID})
	callToolExpectError(t, session, "delete_document", map[string]any{"id": created.ID})
	text = callTool(t, session, "list_documents", nil)
	if strings.TrimSpace(text) != "[]" {
		t.Errorf("expected no documents after delete, got %s", text)
	}
}
