// Package worldcache keeps the world topology and market listings in memory
// as an immutable snapshot that is rebuilt and swapped whole on refresh.
package worldcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/logger"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/normalize"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/source"
)

// ErrNoData is returned by Refresh when no source produced core entities.
// The previously published snapshot stays in place.
var ErrNoData = errors.New("no source returned core entities")

// Options configures a Cache. Every source is optional.
type Options struct {
	Primary   source.Source
	Secondary source.Source
	// Snapshot is read by LoadOnce; SnapshotDir also receives the write-back
	// after a successful upstream refresh when WriteBack is set.
	Snapshot    *source.SnapshotSource
	SnapshotDir string
	WriteBack   bool

	FetchTimeout    time.Duration
	RefreshTimeout  time.Duration
	RefreshInterval time.Duration
	Logger          *logger.Logger
}

// Cache owns the current snapshot.
type Cache struct {
	opts Options
	log  *logger.Logger

	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
	loadOnce   sync.Once
	kickOnce   sync.Once
	group      singleflight.Group
	background sync.WaitGroup
}

// New returns a cache holding an empty snapshot.
func New(opts Options) *Cache {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 20 * time.Second
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 2 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	c := &Cache{opts: opts, log: opts.Logger}
	c.current.Store(NewSnapshot(nil, "empty", 0))
	return c
}

// Current returns the published snapshot without triggering any load.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// Snapshot returns the published snapshot. The first call bootstraps from
// disk and kicks off a background upstream refresh.
func (c *Cache) Snapshot(ctx context.Context) *Snapshot {
	c.LoadOnce(ctx)
	if c.opts.Primary != nil || c.opts.Secondary != nil {
		c.kickOnce.Do(c.TriggerRefresh)
	}
	return c.current.Load()
}

// LoadOnce reads the disk snapshot the first time it is called. Failures are
// logged and leave the cache empty.
func (c *Cache) LoadOnce(ctx context.Context) {
	c.loadOnce.Do(func() {
		if c.opts.Snapshot == nil {
			return
		}
		data := c.fetch(ctx, c.opts.Snapshot)
		if data.CoreCount() == 0 && len(data.CommodityListings) == 0 && len(data.ItemListings) == 0 {
			c.log.Info("disk snapshot empty", "dir", c.opts.Snapshot.Dir())
			return
		}
		c.publish(data, c.opts.Snapshot.Name())
	})
}

// Refresh fetches from the primary source, falling back to the secondary one
// when the primary yields no core entities. Concurrent calls share one
// in-flight refresh. On failure the previous snapshot is kept.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	v, err, shared := c.group.Do("refresh", func() (any, error) {
		return c.refresh(ctx)
	})
	if shared {
		c.log.Debug("refresh joined in-flight call")
	}
	snap, _ := v.(*Snapshot)
	if snap == nil {
		snap = c.current.Load()
	}
	return snap, err
}

// TriggerRefresh starts a refresh in the background and returns immediately.
func (c *Cache) TriggerRefresh() {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.RefreshTimeout)
		defer cancel()
		if _, err := c.Refresh(ctx); err != nil {
			c.log.Warn("background refresh failed", "error", err)
		}
	}()
}

// Wait blocks until background refreshes started by TriggerRefresh finish.
func (c *Cache) Wait() {
	c.background.Wait()
}

// Run refreshes on RefreshInterval until ctx is done. A non-positive interval
// disables periodic refresh.
func (c *Cache) Run(ctx context.Context) {
	if c.opts.RefreshInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.opts.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rctx, cancel := context.WithTimeout(ctx, c.opts.RefreshTimeout)
			if _, err := c.Refresh(rctx); err != nil {
				c.log.Warn("periodic refresh failed", "error", err)
			}
			cancel()
		}
	}
}

func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	prev := c.current.Load()

	var primary *Data
	if c.opts.Primary != nil {
		primary = c.fetch(ctx, c.opts.Primary)
		if primary.CoreCount() > 0 {
			snap := c.publish(primary, c.opts.Primary.Name())
			c.writeBack(snap.Data)
			return snap, nil
		}
		c.log.Warn("primary source yielded no core entities", "source", c.opts.Primary.Name())
	}

	if c.opts.Secondary != nil {
		secondary := c.fetch(ctx, c.opts.Secondary)
		if secondary.CoreCount() > 0 {
			keepMarket(secondary, primary, prev.Data)
			snap := c.publish(secondary, c.opts.Secondary.Name())
			c.writeBack(snap.Data)
			return snap, nil
		}
		c.log.Warn("secondary source yielded no core entities", "source", c.opts.Secondary.Name())
	}
	return prev, ErrNoData
}

// keepMarket leaves already-loaded market rows untouched on the fallback
// path: each collection comes from the primary fetch if it had rows, else from
// the previous snapshot, and only then from the secondary source.
func keepMarket(dst, primary, prev *Data) {
	if primary == nil {
		primary = &Data{}
	}
	dst.CommodityListings = firstNonEmpty(primary.CommodityListings, prev.CommodityListings, dst.CommodityListings)
	dst.ItemListings = firstNonEmpty(primary.ItemListings, prev.ItemListings, dst.ItemListings)
	dst.TerminalCommodities = firstNonEmpty(primary.TerminalCommodities, prev.TerminalCommodities, dst.TerminalCommodities)
	dst.TerminalItems = firstNonEmpty(primary.TerminalItems, prev.TerminalItems, dst.TerminalItems)
	dst.PriceSnapshots = firstNonEmpty(primary.PriceSnapshots, prev.PriceSnapshots, dst.PriceSnapshots)
}

func firstNonEmpty[T any](candidates ...[]T) []T {
	for _, c := range candidates {
		if len(c) > 0 {
			return c
		}
	}
	return nil
}

func (c *Cache) publish(d *Data, origin string) *Snapshot {
	snap := NewSnapshot(d, origin, c.generation.Add(1))
	c.current.Store(snap)
	c.log.Info("world cache published",
		"origin", origin,
		"generation", snap.Generation,
		"snapshot_id", snap.ID,
		"systems", len(d.StarSystems),
		"planets", len(d.Planets),
		"stations", len(d.SpaceStations),
		"outposts", len(d.Outposts),
		"terminals", len(d.Terminals),
		"commodity_listings", len(d.CommodityListings),
		"item_listings", len(d.ItemListings),
	)
	return snap
}

// fetch lists every kind from src in parallel. A failed kind is logged and
// contributes zero rows.
func (c *Cache) fetch(ctx context.Context, src source.Source) *Data {
	d := &Data{}
	g, gctx := errgroup.WithContext(ctx)
	list := func(kind source.Kind, apply func([]normalize.Row) int) {
		g.Go(func() error {
			kctx, cancel := context.WithTimeout(gctx, c.opts.FetchTimeout)
			defer cancel()
			rows, err := src.List(kctx, kind)
			if err != nil {
				c.log.Warn("source fetch failed", "source", src.Name(), "kind", string(kind), "error", err)
				return nil
			}
			if skipped := apply(rows); skipped > 0 {
				c.log.Debug("rows skipped", "source", src.Name(), "kind", string(kind), "skipped", skipped)
			}
			return nil
		})
	}

	list(source.KindStarSystems, func(rows []normalize.Row) (n int) { d.StarSystems, n = normalize.StarSystems(rows); return })
	list(source.KindPlanets, func(rows []normalize.Row) (n int) { d.Planets, n = normalize.Planets(rows); return })
	list(source.KindMoons, func(rows []normalize.Row) (n int) { d.Moons, n = normalize.Moons(rows); return })
	list(source.KindSpaceStations, func(rows []normalize.Row) (n int) { d.SpaceStations, n = normalize.SpaceStations(rows); return })
	list(source.KindOutposts, func(rows []normalize.Row) (n int) { d.Outposts, n = normalize.Outposts(rows); return })
	list(source.KindCities, func(rows []normalize.Row) (n int) { d.Cities, n = normalize.Cities(rows); return })
	list(source.KindTerminals, func(rows []normalize.Row) (n int) { d.Terminals, n = normalize.Terminals(rows); return })
	list(source.KindCommodityPrices, func(rows []normalize.Row) (n int) {
		d.CommodityListings, n = normalize.CommodityListings(rows)
		return
	})
	list(source.KindItemPrices, func(rows []normalize.Row) (n int) { d.ItemListings, n = normalize.ItemListings(rows); return })
	list(source.KindTerminalCommodities, func(rows []normalize.Row) (n int) {
		d.TerminalCommodities, n = normalize.TerminalCommodities(rows)
		return
	})
	list(source.KindTerminalItems, func(rows []normalize.Row) (n int) {
		d.TerminalItems, n = normalize.TerminalItems(rows)
		return
	})
	list(source.KindPriceSnapshots, func(rows []normalize.Row) (n int) {
		d.PriceSnapshots, n = normalize.PriceSnapshots(rows)
		return
	})
	list(source.KindCommodities, func(rows []normalize.Row) (n int) {
		d.Commodities, n = normalize.CommoditySummaries(rows)
		return
	})
	list(source.KindItems, func(rows []normalize.Row) (n int) { d.Items, n = normalize.ItemSummaries(rows); return })

	_ = g.Wait()
	return d
}

// writeBack persists d as one JSON array per kind so the next process boots
// warm. Errors are logged only.
func (c *Cache) writeBack(d *Data) {
	if !c.opts.WriteBack || c.opts.SnapshotDir == "" {
		return
	}
	if err := WriteSnapshot(c.opts.SnapshotDir, d); err != nil {
		c.log.Warn("snapshot write-back failed", "dir", c.opts.SnapshotDir, "error", err)
	}
}

// WriteSnapshot writes every collection of d under dir.
func WriteSnapshot(dir string, d *Data) error {
	files := map[source.Kind]any{
		source.KindStarSystems:         d.StarSystems,
		source.KindPlanets:             d.Planets,
		source.KindMoons:               d.Moons,
		source.KindSpaceStations:       d.SpaceStations,
		source.KindOutposts:            d.Outposts,
		source.KindCities:              d.Cities,
		source.KindTerminals:           d.Terminals,
		source.KindCommodityPrices:     d.CommodityListings,
		source.KindItemPrices:          d.ItemListings,
		source.KindTerminalCommodities: d.TerminalCommodities,
		source.KindTerminalItems:       d.TerminalItems,
		source.KindPriceSnapshots:      d.PriceSnapshots,
		source.KindCommodities:         d.Commodities,
		source.KindItems:               d.Items,
	}
	for _, kind := range source.AllKinds {
		if err := source.WriteSnapshot(dir, kind, files[kind]); err != nil {
			return fmt.Errorf("write %s: %w", kind, err)
		}
	}
	return nil
}

// Status summarizes the published snapshot.
type Status struct {
	Origin     string         `json:"origin"`
	LoadedAt   time.Time      `json:"loaded_at"`
	Generation uint64         `json:"generation"`
	SnapshotID string         `json:"snapshot_id"`
	Counts     map[string]int `json:"counts"`
}

// Status reports on the current snapshot without loading anything.
func (c *Cache) Status() Status {
	s := c.current.Load()
	d := s.Data
	return Status{
		Origin:     s.Origin,
		LoadedAt:   s.LoadedAt,
		Generation: s.Generation,
		SnapshotID: s.ID,
		Counts: map[string]int{
			string(source.KindStarSystems):         len(d.StarSystems),
			string(source.KindPlanets):             len(d.Planets),
			string(source.KindMoons):               len(d.Moons),
			string(source.KindSpaceStations):       len(d.SpaceStations),
			string(source.KindOutposts):            len(d.Outposts),
			string(source.KindCities):              len(d.Cities),
			string(source.KindTerminals):           len(d.Terminals),
			string(source.KindCommodityPrices):     len(d.CommodityListings),
			string(source.KindItemPrices):          len(d.ItemListings),
			string(source.KindTerminalCommodities): len(d.TerminalCommodities),
			string(source.KindTerminalItems):       len(d.TerminalItems),
			string(source.KindPriceSnapshots):      len(d.PriceSnapshots),
			string(source.KindCommodities):         len(d.Commodities),
			string(source.KindItems):               len(d.Items),
		},
	}
}
