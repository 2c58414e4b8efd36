package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/logger"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/match"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/worldcache"
)

// DefaultTop is used when a query does not ask for a result count.
const DefaultTop = 5

// Snapshotter hands out the current world snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) *worldcache.Snapshot
}

// Query names a commodity or item, how many rows to return and an optional
// location filter.
type Query struct {
	Name     string
	Top      int
	Location string
}

func (q Query) top() int {
	if q.Top <= 0 {
		return DefaultTop
	}
	return q.Top
}

// Answer is the ranked rows for one resolved name.
type Answer struct {
	Kind     string    `json:"kind"`
	Name     string    `json:"name"`
	Listings []Listing `json:"listings"`
}

// RouteAnswer is the ranked routes for one resolved name.
type RouteAnswer struct {
	Kind   string  `json:"kind"`
	Name   string  `json:"name"`
	Routes []Route `json:"routes"`
}

// Service runs market queries against the world cache.
type Service struct {
	world Snapshotter
	cache ListingCache
	log   *logger.Logger
}

// NewService wires a Service. A nil cache disables read-through caching.
func NewService(world Snapshotter, cache ListingCache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{world: world, cache: cache, log: log.With("service", "Market")}
}

// BestBuy ranks where each resolved name is cheapest to buy.
func (s *Service) BestBuy(ctx context.Context, q Query) []Answer {
	return s.rank(ctx, q, "price", RankBuy)
}

// BestSell ranks where each resolved name sells for the most.
func (s *Service) BestSell(ctx context.Context, q Query) []Answer {
	return s.rank(ctx, q, "price", RankSell)
}

// SpotPrices gives a cheapest-round-trip overview using averaged prices when
// the snapshot has them.
func (s *Service) SpotPrices(ctx context.Context, q Query) []Answer {
	return s.rank(ctx, q, "spot", RankSpot)
}

// ProfitRoutes enumerates buy/sell terminal pairs for each resolved name.
func (s *Service) ProfitRoutes(ctx context.Context, q Query) []RouteAnswer {
	snap := s.world.Snapshot(ctx)
	out := []RouteAnswer{}
	for _, m := range resolve(snap, q.Name) {
		ls := Filter(s.listings(ctx, snap, m, "price"), q.Location)
		out = append(out, RouteAnswer{Kind: m.Kind, Name: m.Name, Routes: Routes(ls, q.top())})
	}
	return out
}

// MostActive ranks commodities or terminals by submitted price reports. This
// measures reporting activity, not trade volume.
func (s *Service) MostActive(ctx context.Context, scope string, top int, location string) []Activity {
	if top <= 0 {
		top = DefaultTop
	}
	snap := s.world.Snapshot(ctx)
	all := s.listings(ctx, snap, worldcache.Match{Kind: worldcache.KindCommodity}, "all")
	return ActivityOf(Filter(all, location), strings.ToLower(strings.TrimSpace(scope)), top)
}

func (s *Service) rank(ctx context.Context, q Query, set string, fn func([]Listing, int) []Listing) []Answer {
	snap := s.world.Snapshot(ctx)
	out := []Answer{}
	for _, m := range resolve(snap, q.Name) {
		ls := Filter(s.listings(ctx, snap, m, set), q.Location)
		out = append(out, Answer{Kind: m.Kind, Name: m.Name, Listings: fn(ls, q.top())})
	}
	return out
}

// resolve matches name against commodity and item names independently, so
// one input can yield both.
func resolve(snap *worldcache.Snapshot, name string) []worldcache.Match {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	var out []worldcache.Match
	if n, ok := match.Best(names(snap.Rel.Commodities), name); ok {
		out = append(out, worldcache.Match{Kind: worldcache.KindCommodity, Name: n})
	}
	if n, ok := match.Best(names(snap.Rel.Items), name); ok {
		out = append(out, worldcache.Match{Kind: worldcache.KindItem, Name: n})
	}
	return out
}

func names(m map[string]worldcache.NameRef) []string {
	out := make([]string, 0, len(m))
	for _, ref := range m {
		out = append(out, ref.Name)
	}
	return out
}

// listings reads through the listing cache. Keys carry the snapshot ID so a
// refresh is visible immediately and a shared cache never crosses processes.
func (s *Service) listings(ctx context.Context, snap *worldcache.Snapshot, m worldcache.Match, set string) []Listing {
	key := fmt.Sprintf("%s|%s|%s|%s", snap.ID, set, m.Kind, strings.ToLower(m.Name))
	if s.cache != nil {
		if ls, ok := s.cache.Get(ctx, key); ok {
			return ls
		}
		s.log.Debug("listing cache miss", "key", key)
	}
	var ls []Listing
	switch set {
	case "all":
		ls = commodityListings(snap, "")
	case "spot":
		ls = spotListings(snap, m)
	default:
		if m.Kind == worldcache.KindItem {
			ls = itemListings(snap, m.Name)
		} else {
			ls = commodityListings(snap, m.Name)
		}
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, ls)
	}
	return ls
}

func commodityListings(snap *worldcache.Snapshot, name string) []Listing {
	var out []Listing
	for _, l := range snap.Data.CommodityListings {
		if name != "" && !match.Equal(l.CommodityName, name) {
			continue
		}
		out = append(out, Listing{
			Kind:         worldcache.KindCommodity,
			Name:         l.CommodityName,
			TerminalID:   l.TerminalID,
			TerminalName: terminalName(snap, l.TerminalID, l.TerminalName),
			Location:     snap.Rel.Location(l.TerminalID),
			PriceBuy:     l.PriceBuy,
			PriceSell:    l.PriceSell,
			BuyReports:   deref(l.BuyReportCount),
			SellReports:  deref(l.SellReportCount),
			Names:        placeNames(snap, l.TerminalID, l.LocationNames),
		})
	}
	return out
}

func itemListings(snap *worldcache.Snapshot, name string) []Listing {
	var out []Listing
	for _, l := range snap.Data.ItemListings {
		if !match.Equal(l.ItemName, name) {
			continue
		}
		out = append(out, Listing{
			Kind:         worldcache.KindItem,
			Name:         l.ItemName,
			TerminalID:   l.TerminalID,
			TerminalName: terminalName(snap, l.TerminalID, l.TerminalName),
			Location:     snap.Rel.Location(l.TerminalID),
			PriceBuy:     l.PriceBuy,
			PriceSell:    l.PriceSell,
			Names:        placeNames(snap, l.TerminalID, l.LocationNames),
		})
	}
	return out
}

// spotListings prefers the averaged price snapshots and falls back to the
// live listings when a commodity has none.
func spotListings(snap *worldcache.Snapshot, m worldcache.Match) []Listing {
	if m.Kind == worldcache.KindItem {
		return itemListings(snap, m.Name)
	}
	var out []Listing
	for _, p := range snap.Data.PriceSnapshots {
		if !match.Equal(p.CommodityName, m.Name) {
			continue
		}
		out = append(out, Listing{
			Kind:         worldcache.KindCommodity,
			Name:         p.CommodityName,
			TerminalID:   p.TerminalID,
			TerminalName: terminalName(snap, p.TerminalID, p.TerminalName),
			Location:     snap.Rel.Location(p.TerminalID),
			PriceBuy:     p.PriceBuyAvg,
			PriceSell:    p.PriceSellAvg,
			Names:        placeNames(snap, p.TerminalID, p.LocationNames),
		})
	}
	if len(out) == 0 {
		return commodityListings(snap, m.Name)
	}
	return out
}

func terminalName(snap *worldcache.Snapshot, id int, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if t, ok := snap.Rel.Terminals[id]; ok {
		return t.Name
	}
	return ""
}

// placeNames fills the row's own place names from the graph where missing.
func placeNames(snap *worldcache.Snapshot, terminalID int, row models.LocationNames) models.LocationNames {
	g := snap.Rel.LocationNames(terminalID)
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return models.LocationNames{
		StarSystemName:   pick(row.StarSystemName, g.StarSystemName),
		PlanetName:       pick(row.PlanetName, g.PlanetName),
		MoonName:         pick(row.MoonName, g.MoonName),
		SpaceStationName: pick(row.SpaceStationName, g.SpaceStationName),
		OutpostName:      pick(row.OutpostName, g.OutpostName),
		CityName:         pick(row.CityName, g.CityName),
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
