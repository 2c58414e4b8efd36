// Package source lists flat rows per entity kind from an upstream: the
// primary backend API, the fallback provider API or a disk snapshot.
package source

import (
	"context"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/normalize"
)

// Kind names one upstream collection.
type Kind string

const (
	KindStarSystems         Kind = "star_systems"
	KindPlanets             Kind = "planets"
	KindMoons               Kind = "moons"
	KindSpaceStations       Kind = "space_stations"
	KindOutposts            Kind = "outposts"
	KindCities              Kind = "cities"
	KindTerminals           Kind = "terminals"
	KindCommodityPrices     Kind = "commodity_prices"
	KindItemPrices          Kind = "item_prices"
	KindTerminalCommodities Kind = "terminal_commodities"
	KindTerminalItems       Kind = "terminal_items"
	KindPriceSnapshots      Kind = "price_snapshots"
	KindCommodities         Kind = "commodities"
	KindItems               Kind = "items"
)

// AllKinds is every collection the world cache fetches.
var AllKinds = []Kind{
	KindStarSystems, KindPlanets, KindMoons, KindSpaceStations, KindOutposts,
	KindCities, KindTerminals, KindCommodityPrices, KindItemPrices,
	KindTerminalCommodities, KindTerminalItems, KindPriceSnapshots,
	KindCommodities, KindItems,
}

// Source lists the rows of one kind. An error means "zero rows from this
// source" to callers; it is never fatal.
type Source interface {
	Name() string
	List(ctx context.Context, kind Kind) ([]normalize.Row, error)
}
