package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/worldcache"
)

type staticWorld struct{ snap *worldcache.Snapshot }

func (w staticWorld) Snapshot(context.Context) *worldcache.Snapshot { return w.snap }

type countingCache struct {
	mu    sync.Mutex
	inner ListingCache
	hits  int
	sets  int
}

func (c *countingCache) Get(ctx context.Context, key string) ([]Listing, bool) {
	ls, ok := c.inner.Get(ctx, key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.hits++
	}
	return ls, ok
}

func (c *countingCache) Set(ctx context.Context, key string, ls []Listing) {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	c.inner.Set(ctx, key, ls)
}

func intp(n int) *int { return &n }

func world() *worldcache.Snapshot {
	d := &worldcache.Data{
		StarSystems: []models.StarSystem{{ID: 68, Name: "Stanton"}},
		Planets: []models.Planet{
			{ID: 1, Name: "Hurston", StarSystemID: 68},
			{ID: 2, Name: "ArcCorp", StarSystemID: 68},
		},
		SpaceStations: []models.SpaceStation{{ID: 20, Name: "Everus Harbor", StarSystemID: 68, PlanetID: 1}},
		Cities:        []models.City{{ID: 40, Name: "Area18", StarSystemID: 68, PlanetID: 2}},
		Terminals: []models.Terminal{
			{ID: 100, Name: "TDD Everus", SpaceStationID: 20},
			{ID: 101, Name: "TDD Area18", CityID: 40},
		},
		CommodityListings: []models.CommodityListing{
			{TerminalID: 100, CommodityName: "Gold", PriceBuy: p(10), BuyReportCount: intp(2)},
			{TerminalID: 101, CommodityName: "Gold", PriceSell: p(15), SellReportCount: intp(7)},
			{TerminalID: 100, CommodityName: "Gold", PriceSell: p(20)},
			{TerminalID: 101, CommodityName: "Golden Medmon", PriceBuy: p(3)},
		},
		ItemListings: []models.ItemListing{
			{TerminalID: 101, ItemName: "Gold Armor", PriceBuy: p(900)},
		},
		PriceSnapshots: []models.TerminalPriceSnapshot{
			{TerminalID: 100, CommodityName: "Gold", PriceBuyAvg: p(11), PriceSellAvg: p(19)},
		},
	}
	return worldcache.NewSnapshot(d, "test", 7)
}

func TestBestBuyResolvesCommodityAndItem(t *testing.T) {
	svc := NewService(staticWorld{world()}, nil, nil)

	got := svc.BestBuy(context.Background(), Query{Name: "gold"})
	require.Len(t, got, 2)
	assert.Equal(t, worldcache.KindCommodity, got[0].Kind)
	assert.Equal(t, "Gold", got[0].Name)
	require.Len(t, got[0].Listings, 1)
	assert.Equal(t, "TDD Everus", got[0].Listings[0].TerminalName)
	assert.Equal(t, "Everus Harbor, Hurston, Stanton", got[0].Listings[0].Location)

	assert.Equal(t, worldcache.KindItem, got[1].Kind)
	assert.Equal(t, "Gold Armor", got[1].Name)
	require.Len(t, got[1].Listings, 1)
}

func TestBestSellWithLocationFilter(t *testing.T) {
	svc := NewService(staticWorld{world()}, nil, nil)

	got := svc.BestSell(context.Background(), Query{Name: "Gold", Location: "arccorp"})
	require.NotEmpty(t, got)
	require.Len(t, got[0].Listings, 1)
	assert.Equal(t, 15.0, *got[0].Listings[0].PriceSell)

	assert.Empty(t, svc.BestSell(context.Background(), Query{Name: "unknown"}))
}

func TestSpotPricesPreferAverages(t *testing.T) {
	svc := NewService(staticWorld{world()}, nil, nil)

	got := svc.SpotPrices(context.Background(), Query{Name: "Gold", Top: 3})
	require.NotEmpty(t, got)
	require.Len(t, got[0].Listings, 1)
	assert.Equal(t, 11.0, *got[0].Listings[0].PriceBuy)
}

func TestProfitRoutesThroughService(t *testing.T) {
	svc := NewService(staticWorld{world()}, nil, nil)

	got := svc.ProfitRoutes(context.Background(), Query{Name: "gold"})
	require.NotEmpty(t, got)
	require.Len(t, got[0].Routes, 1)
	r := got[0].Routes[0]
	assert.Equal(t, 100, r.Buy.TerminalID)
	assert.Equal(t, 101, r.Sell.TerminalID)
	assert.Equal(t, 5.0, r.Spread)
}

func TestMostActive(t *testing.T) {
	svc := NewService(staticWorld{world()}, nil, nil)

	byTerminal := svc.MostActive(context.Background(), "Terminal", 0, "")
	require.Len(t, byTerminal, 2)
	assert.Equal(t, "TDD Area18", byTerminal[0].Key)
	assert.Equal(t, 7, byTerminal[0].Reports)

	byName := svc.MostActive(context.Background(), ScopeCommodity, 5, "hurston")
	require.Len(t, byName, 1)
	assert.Equal(t, Activity{Key: "Gold", Reports: 2, BuyReports: 2, Listings: 2}, byName[0])
}

func TestListingsReadThroughCache(t *testing.T) {
	cache := &countingCache{inner: NewLRUCache(16, time.Minute)}
	svc := NewService(staticWorld{world()}, cache, nil)

	svc.BestBuy(context.Background(), Query{Name: "Gold"})
	svc.BestBuy(context.Background(), Query{Name: "Gold"})
	svc.BestSell(context.Background(), Query{Name: "Gold"})

	assert.Equal(t, 2, cache.sets, "one set per resolved name")
	assert.Equal(t, 4, cache.hits)
}

func TestSharedCacheKeepsSnapshotsApart(t *testing.T) {
	a := world()
	d := *a.Data
	d.CommodityListings = []models.CommodityListing{
		{TerminalID: 100, CommodityName: "Gold", PriceBuy: p(99)},
	}
	// Same generation, as two processes that each just booted would have.
	b := worldcache.NewSnapshot(&d, "test", a.Generation)
	require.NotEqual(t, a.ID, b.ID)

	shared := NewLRUCache(16, time.Minute)
	svcA := NewService(staticWorld{a}, shared, nil)
	svcB := NewService(staticWorld{b}, shared, nil)

	gotA := svcA.BestBuy(context.Background(), Query{Name: "Gold"})
	require.NotEmpty(t, gotA)
	require.NotEmpty(t, gotA[0].Listings)
	assert.Equal(t, 10.0, *gotA[0].Listings[0].PriceBuy)

	gotB := svcB.BestBuy(context.Background(), Query{Name: "Gold"})
	require.NotEmpty(t, gotB)
	require.NotEmpty(t, gotB[0].Listings)
	assert.Equal(t, 99.0, *gotB[0].Listings[0].PriceBuy)
}

func TestLRUCacheExpires(t *testing.T) {
	c := NewLRUCache(4, 20*time.Millisecond)
	c.Set(context.Background(), "k", []Listing{{Name: "Gold"}})
	ls, ok := c.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, "Gold", ls[0].Name)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestRedisCacheRequiresReachableServer(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "", "", 0, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = NewRedisCache(ctx, "127.0.0.1:1", "", 0, nil)
	assert.Error(t, err)
}
