package worldcache

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/match"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

const (
	KindCommodity = "commodity"
	KindItem      = "item"
)

// Snapshot is one immutable published state: the flat data and the graph
// built from it. Readers hold a *Snapshot for as long as they need it.
type Snapshot struct {
	Data       *Data
	Rel        *Relations
	LoadedAt   time.Time
	Origin     string
	Generation uint64
	// ID is unique across processes; Generation only orders snapshots
	// within one process.
	ID string
}

// NewSnapshot builds the relations for d and wraps both.
func NewSnapshot(d *Data, origin string, generation uint64) *Snapshot {
	if d == nil {
		d = &Data{}
	}
	return &Snapshot{
		Data:       d,
		Rel:        BuildRelations(d),
		LoadedAt:   time.Now().UTC(),
		Origin:     origin,
		Generation: generation,
		ID:         uuid.NewString(),
	}
}

// Match is a resolved item or commodity name.
type Match struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	ID   int    `json:"id,omitempty"`
	// Tier is the strategy that produced the match: exact, substring or summary.
	Tier string `json:"tier"`
}

type matcher struct {
	tier string
	fn   func(r *Relations, q string) *Match
}

// matchers run in order; the first hit wins.
var matchers = []matcher{
	{"exact", matchExact},
	{"substring", matchSubstring},
	{"summary", matchSummary},
}

func matchExact(r *Relations, q string) *Match {
	k := key(q)
	if ref, ok := r.Commodities[k]; ok {
		return &Match{Kind: KindCommodity, Name: ref.Name, ID: ref.ID}
	}
	if ref, ok := r.Items[k]; ok {
		return &Match{Kind: KindItem, Name: ref.Name, ID: ref.ID}
	}
	return nil
}

func matchSubstring(r *Relations, q string) *Match {
	return bestOf(r.Commodities, r.Items, q)
}

func matchSummary(r *Relations, q string) *Match {
	return bestOf(r.CommodityCatalog, r.ItemCatalog, q)
}

// bestOf runs match.Best over both name sets and keeps the tighter hit,
// preferring commodities on equal length.
func bestOf(commodities, items map[string]NameRef, q string) *Match {
	cName, cOK := match.Best(refNames(commodities), q)
	iName, iOK := match.Best(refNames(items), q)
	switch {
	case cOK && (!iOK || len(cName) <= len(iName)):
		ref := commodities[key(cName)]
		return &Match{Kind: KindCommodity, Name: ref.Name, ID: ref.ID}
	case iOK:
		ref := items[key(iName)]
		return &Match{Kind: KindItem, Name: ref.Name, ID: ref.ID}
	}
	return nil
}

func refNames(m map[string]NameRef) []string {
	out := make([]string, 0, len(m))
	for _, ref := range m {
		out = append(out, ref.Name)
	}
	return out
}

// FindItemOrCommodity resolves name through the exact, substring and summary
// tiers in that order. Nil means no tier matched.
func (s *Snapshot) FindItemOrCommodity(name string) *Match {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	for _, m := range matchers {
		if hit := m.fn(s.Rel, name); hit != nil {
			hit.Tier = m.tier
			return hit
		}
	}
	return nil
}

// WhereAvailable lists the terminals trading name. Price rows are preferred;
// without any, rows are synthesized from the terminal relation tables and
// carry no prices.
func (s *Snapshot) WhereAvailable(name string) []models.Availability {
	m := s.FindItemOrCommodity(name)
	if m == nil {
		return []models.Availability{}
	}
	var out []models.Availability
	switch m.Kind {
	case KindCommodity:
		for _, l := range s.Data.CommodityListings {
			if match.Equal(l.CommodityName, m.Name) {
				out = append(out, s.availability(m, l.TerminalID, l.TerminalName, l.PriceBuy, l.PriceSell, l.LocationNames))
			}
		}
		if len(out) == 0 {
			for _, tc := range s.Data.TerminalCommodities {
				if match.Equal(tc.CommodityName, m.Name) {
					a := s.availability(m, tc.TerminalID, "", nil, nil, models.LocationNames{})
					a.Synthesized = true
					out = append(out, a)
				}
			}
		}
	case KindItem:
		for _, l := range s.Data.ItemListings {
			if match.Equal(l.ItemName, m.Name) {
				out = append(out, s.availability(m, l.TerminalID, l.TerminalName, l.PriceBuy, l.PriceSell, l.LocationNames))
			}
		}
		if len(out) == 0 {
			for _, ti := range s.Data.TerminalItems {
				if match.Equal(ti.ItemName, m.Name) {
					a := s.availability(m, ti.TerminalID, "", nil, nil, models.LocationNames{})
					a.Synthesized = true
					out = append(out, a)
				}
			}
		}
	}
	if out == nil {
		return []models.Availability{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TerminalName != out[j].TerminalName {
			return out[i].TerminalName < out[j].TerminalName
		}
		return out[i].TerminalID < out[j].TerminalID
	})
	return out
}

func (s *Snapshot) availability(m *Match, terminalID int, terminalName string, buy, sell *float64, names models.LocationNames) models.Availability {
	if t, ok := s.Rel.Terminals[terminalID]; ok && terminalName == "" {
		terminalName = t.Name
	}
	loc := s.Rel.Location(terminalID)
	if loc == "" {
		loc = strings.Join(names.Fields(), ", ")
	}
	return models.Availability{
		Kind:         m.Kind,
		Name:         m.Name,
		TerminalID:   terminalID,
		TerminalName: terminalName,
		PriceBuy:     buy,
		PriceSell:    sell,
		Location:     loc,
	}
}

// ListByKind projects one location collection. Unknown kinds yield an empty
// list.
func (s *Snapshot) ListByKind(kind string) []models.Place {
	r := s.Rel
	out := []models.Place{}
	switch normalizeKind(kind) {
	case "system":
		for _, v := range s.Data.StarSystems {
			out = append(out, models.Place{Kind: "system", ID: v.ID, Name: v.Name, Code: v.Code})
		}
	case "planet":
		for _, v := range s.Data.Planets {
			out = append(out, models.Place{Kind: "planet", ID: v.ID, Name: v.Name, Code: v.Code, Location: r.systemName(v.StarSystemID)})
		}
	case "moon":
		for _, v := range s.Data.Moons {
			out = append(out, models.Place{Kind: "moon", ID: v.ID, Name: v.Name, Code: v.Code, Location: r.join(r.planetName(v.PlanetID), r.systemName(v.StarSystemID))})
		}
	case "station":
		for _, v := range s.Data.SpaceStations {
			out = append(out, models.Place{Kind: "station", ID: v.ID, Name: v.Name, Location: r.join(r.planetName(v.PlanetID), r.systemName(v.StarSystemID))})
		}
	case "outpost":
		for _, v := range s.Data.Outposts {
			out = append(out, models.Place{Kind: "outpost", ID: v.ID, Name: v.Name, Location: r.join(r.planetName(v.PlanetID), r.systemName(v.StarSystemID))})
		}
	case "city":
		for _, v := range s.Data.Cities {
			out = append(out, models.Place{Kind: "city", ID: v.ID, Name: v.Name, Location: r.join(r.planetName(v.PlanetID), r.systemName(v.StarSystemID))})
		}
	case "terminal":
		for _, v := range s.Data.Terminals {
			out = append(out, models.Place{Kind: "terminal", ID: v.ID, Name: v.Name, Code: v.Code, Location: r.Location(v.ID)})
		}
	}
	return out
}

func normalizeKind(kind string) string {
	k := strings.TrimSuffix(key(kind), "s")
	switch k {
	case "system", "star_system", "starsystem", "star system":
		return "system"
	case "station", "space_station", "spacestation", "space station":
		return "station"
	case "citie":
		return "city"
	}
	return k
}

func (r *Relations) systemName(id int) string {
	if v, ok := r.Systems[id]; ok {
		return v.Name
	}
	return ""
}

func (r *Relations) planetName(id int) string {
	if v, ok := r.Planets[id]; ok {
		return v.Name
	}
	return ""
}

func (r *Relations) join(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
