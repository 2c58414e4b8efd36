package worldcache

import (
	"sort"
	"strings"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

// Data holds the canonical flat collections of one snapshot.
type Data struct {
	StarSystems         []models.StarSystem            `json:"star_systems"`
	Planets             []models.Planet                `json:"planets"`
	Moons               []models.Moon                  `json:"moons"`
	SpaceStations       []models.SpaceStation          `json:"space_stations"`
	Outposts            []models.Outpost               `json:"outposts"`
	Cities              []models.City                  `json:"cities"`
	Terminals           []models.Terminal              `json:"terminals"`
	CommodityListings   []models.CommodityListing      `json:"commodity_prices"`
	ItemListings        []models.ItemListing           `json:"item_prices"`
	TerminalCommodities []models.TerminalCommodity     `json:"terminal_commodities"`
	TerminalItems       []models.TerminalItem          `json:"terminal_items"`
	PriceSnapshots      []models.TerminalPriceSnapshot `json:"price_snapshots"`
	Commodities         []models.CommoditySummary      `json:"commodities"`
	Items               []models.ItemSummary           `json:"items"`
}

// CoreCount is systems + planets + stations + outposts, the measure used to
// decide whether a source produced anything usable.
func (d *Data) CoreCount() int {
	if d == nil {
		return 0
	}
	return len(d.StarSystems) + len(d.Planets) + len(d.SpaceStations) + len(d.Outposts)
}

// NameRef is a canonical display name with its upstream id, 0 when unknown.
type NameRef struct {
	Name string
	ID   int
}

// Relations is the graph derived from Data. Name maps are keyed by the
// lowercased name; the first entity seen with a given name wins.
type Relations struct {
	Systems   map[int]*models.StarSystem
	Planets   map[int]*models.Planet
	Moons     map[int]*models.Moon
	Stations  map[int]*models.SpaceStation
	Outposts  map[int]*models.Outpost
	Cities    map[int]*models.City
	Terminals map[int]*models.Terminal

	SystemPlanets   map[int][]int
	SystemStations  map[int][]int
	SystemOutposts  map[int][]int
	SystemCities    map[int][]int
	SystemTerminals map[int][]int
	PlanetMoons     map[int][]int
	PlanetStations  map[int][]int
	PlanetOutposts  map[int][]int
	PlanetCities    map[int][]int
	PlanetTerminals map[int][]int
	StationTerms    map[int][]int
	OutpostTerms    map[int][]int
	CityTerms       map[int][]int

	SystemByName   map[string]int
	PlanetByName   map[string]int
	MoonByName     map[string]int
	StationByName  map[string]int
	OutpostByName  map[string]int
	CityByName     map[string]int
	TerminalByName map[string]int

	// Traded names seen in listings and relation tables.
	Commodities map[string]NameRef
	Items       map[string]NameRef
	// Catalog names from the summary datasets.
	CommodityCatalog map[string]NameRef
	ItemCatalog      map[string]NameRef
}

// Anchor is where a terminal sits after resolving its parent chain. Zero
// fields are absent tiers.
type Anchor struct {
	StationID int
	OutpostID int
	CityID    int
	MoonID    int
	PlanetID  int
	SystemID  int
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func putName(m map[string]int, name string, id int) {
	k := key(name)
	if k == "" {
		return
	}
	if _, ok := m[k]; !ok {
		m[k] = id
	}
}

func putRef(m map[string]NameRef, name string, id int) {
	k := key(name)
	if k == "" {
		return
	}
	if cur, ok := m[k]; ok {
		if cur.ID == 0 && id != 0 {
			cur.ID = id
			m[k] = cur
		}
		return
	}
	m[k] = NameRef{Name: strings.TrimSpace(name), ID: id}
}

// BuildRelations derives the graph from d. It is pure: d is not modified and
// parent references that do not resolve are left out of the adjacency lists.
func BuildRelations(d *Data) *Relations {
	if d == nil {
		d = &Data{}
	}
	r := &Relations{
		Systems:   make(map[int]*models.StarSystem, len(d.StarSystems)),
		Planets:   make(map[int]*models.Planet, len(d.Planets)),
		Moons:     make(map[int]*models.Moon, len(d.Moons)),
		Stations:  make(map[int]*models.SpaceStation, len(d.SpaceStations)),
		Outposts:  make(map[int]*models.Outpost, len(d.Outposts)),
		Cities:    make(map[int]*models.City, len(d.Cities)),
		Terminals: make(map[int]*models.Terminal, len(d.Terminals)),

		SystemPlanets:   map[int][]int{},
		SystemStations:  map[int][]int{},
		SystemOutposts:  map[int][]int{},
		SystemCities:    map[int][]int{},
		SystemTerminals: map[int][]int{},
		PlanetMoons:     map[int][]int{},
		PlanetStations:  map[int][]int{},
		PlanetOutposts:  map[int][]int{},
		PlanetCities:    map[int][]int{},
		PlanetTerminals: map[int][]int{},
		StationTerms:    map[int][]int{},
		OutpostTerms:    map[int][]int{},
		CityTerms:       map[int][]int{},

		SystemByName:   map[string]int{},
		PlanetByName:   map[string]int{},
		MoonByName:     map[string]int{},
		StationByName:  map[string]int{},
		OutpostByName:  map[string]int{},
		CityByName:     map[string]int{},
		TerminalByName: map[string]int{},

		Commodities:      map[string]NameRef{},
		Items:            map[string]NameRef{},
		CommodityCatalog: map[string]NameRef{},
		ItemCatalog:      map[string]NameRef{},
	}

	// Index pass. Duplicate ids keep the first row.
	for i := range d.StarSystems {
		s := &d.StarSystems[i]
		if _, dup := r.Systems[s.ID]; !dup {
			r.Systems[s.ID] = s
			putName(r.SystemByName, s.Name, s.ID)
		}
	}
	for i := range d.Planets {
		p := &d.Planets[i]
		if _, dup := r.Planets[p.ID]; !dup {
			r.Planets[p.ID] = p
			putName(r.PlanetByName, p.Name, p.ID)
		}
	}
	for i := range d.Moons {
		m := &d.Moons[i]
		if _, dup := r.Moons[m.ID]; !dup {
			r.Moons[m.ID] = m
			putName(r.MoonByName, m.Name, m.ID)
		}
	}
	for i := range d.SpaceStations {
		s := &d.SpaceStations[i]
		if _, dup := r.Stations[s.ID]; !dup {
			r.Stations[s.ID] = s
			putName(r.StationByName, s.Name, s.ID)
		}
	}
	for i := range d.Outposts {
		o := &d.Outposts[i]
		if _, dup := r.Outposts[o.ID]; !dup {
			r.Outposts[o.ID] = o
			putName(r.OutpostByName, o.Name, o.ID)
		}
	}
	for i := range d.Cities {
		c := &d.Cities[i]
		if _, dup := r.Cities[c.ID]; !dup {
			r.Cities[c.ID] = c
			putName(r.CityByName, c.Name, c.ID)
		}
	}
	for i := range d.Terminals {
		t := &d.Terminals[i]
		if _, dup := r.Terminals[t.ID]; !dup {
			r.Terminals[t.ID] = t
			putName(r.TerminalByName, t.Name, t.ID)
		}
	}

	// Adjacency pass, one loop per child kind.
	for id, p := range r.Planets {
		if r.hasSystem(p.StarSystemID) {
			r.SystemPlanets[p.StarSystemID] = append(r.SystemPlanets[p.StarSystemID], id)
		}
	}
	for id, m := range r.Moons {
		if r.hasPlanet(m.PlanetID) {
			r.PlanetMoons[m.PlanetID] = append(r.PlanetMoons[m.PlanetID], id)
		}
	}
	for id, s := range r.Stations {
		if r.hasSystem(s.StarSystemID) {
			r.SystemStations[s.StarSystemID] = append(r.SystemStations[s.StarSystemID], id)
		}
		if r.hasPlanet(s.PlanetID) {
			r.PlanetStations[s.PlanetID] = append(r.PlanetStations[s.PlanetID], id)
		}
	}
	for id, o := range r.Outposts {
		if r.hasSystem(o.StarSystemID) {
			r.SystemOutposts[o.StarSystemID] = append(r.SystemOutposts[o.StarSystemID], id)
		}
		if r.hasPlanet(o.PlanetID) {
			r.PlanetOutposts[o.PlanetID] = append(r.PlanetOutposts[o.PlanetID], id)
		}
	}
	for id, c := range r.Cities {
		if r.hasSystem(c.StarSystemID) {
			r.SystemCities[c.StarSystemID] = append(r.SystemCities[c.StarSystemID], id)
		}
		if r.hasPlanet(c.PlanetID) {
			r.PlanetCities[c.PlanetID] = append(r.PlanetCities[c.PlanetID], id)
		}
	}
	for id := range r.Terminals {
		a := r.Anchor(id)
		if a.StationID != 0 {
			r.StationTerms[a.StationID] = append(r.StationTerms[a.StationID], id)
		}
		if a.OutpostID != 0 {
			r.OutpostTerms[a.OutpostID] = append(r.OutpostTerms[a.OutpostID], id)
		}
		if a.CityID != 0 {
			r.CityTerms[a.CityID] = append(r.CityTerms[a.CityID], id)
		}
		if a.PlanetID != 0 {
			r.PlanetTerminals[a.PlanetID] = append(r.PlanetTerminals[a.PlanetID], id)
		}
		if a.SystemID != 0 {
			r.SystemTerminals[a.SystemID] = append(r.SystemTerminals[a.SystemID], id)
		}
	}
	for _, adj := range []map[int][]int{
		r.SystemPlanets, r.SystemStations, r.SystemOutposts, r.SystemCities, r.SystemTerminals,
		r.PlanetMoons, r.PlanetStations, r.PlanetOutposts, r.PlanetCities, r.PlanetTerminals,
		r.StationTerms, r.OutpostTerms, r.CityTerms,
	} {
		for _, ids := range adj {
			sort.Ints(ids)
		}
	}

	// Traded and catalog names.
	for _, l := range d.CommodityListings {
		putRef(r.Commodities, l.CommodityName, l.CommodityID)
	}
	for _, tc := range d.TerminalCommodities {
		putRef(r.Commodities, tc.CommodityName, tc.CommodityID)
	}
	for _, s := range d.PriceSnapshots {
		putRef(r.Commodities, s.CommodityName, 0)
	}
	for _, l := range d.ItemListings {
		putRef(r.Items, l.ItemName, l.ItemID)
	}
	for _, ti := range d.TerminalItems {
		putRef(r.Items, ti.ItemName, ti.ItemID)
	}
	for _, c := range d.Commodities {
		putRef(r.CommodityCatalog, c.Name, c.ID)
	}
	for _, it := range d.Items {
		putRef(r.ItemCatalog, it.Name, it.ID)
	}
	return r
}

func (r *Relations) hasSystem(id int) bool {
	_, ok := r.Systems[id]
	return id != 0 && ok
}

func (r *Relations) hasPlanet(id int) bool {
	_, ok := r.Planets[id]
	return id != 0 && ok
}

// Anchor resolves a terminal's parents. A terminal's own references win;
// missing moon, planet and system tiers are inherited from its station,
// outpost or city, then from the moon and the planet. A reference that does
// not resolve is skipped in favour of the next candidate.
func (r *Relations) Anchor(terminalID int) Anchor {
	t, ok := r.Terminals[terminalID]
	if !ok {
		return Anchor{}
	}
	var a Anchor
	moons := []int{t.MoonID}
	planets := []int{t.PlanetID}
	systems := []int{t.StarSystemID}
	if s, ok := r.Stations[t.SpaceStationID]; ok {
		a.StationID = s.ID
		moons = append(moons, s.MoonID)
		planets = append(planets, s.PlanetID)
		systems = append(systems, s.StarSystemID)
	}
	if o, ok := r.Outposts[t.OutpostID]; ok {
		a.OutpostID = o.ID
		moons = append(moons, o.MoonID)
		planets = append(planets, o.PlanetID)
		systems = append(systems, o.StarSystemID)
	}
	if c, ok := r.Cities[t.CityID]; ok {
		a.CityID = c.ID
		planets = append(planets, c.PlanetID)
		systems = append(systems, c.StarSystemID)
	}
	if m, ok := r.Moons[firstIn(r.Moons, moons...)]; ok {
		a.MoonID = m.ID
		planets = append(planets, m.PlanetID)
		systems = append(systems, m.StarSystemID)
	}
	if p, ok := r.Planets[firstIn(r.Planets, planets...)]; ok {
		a.PlanetID = p.ID
		systems = append(systems, p.StarSystemID)
	}
	a.SystemID = firstIn(r.Systems, systems...)
	return a
}

// Location renders a terminal's place as "station, moon, planet, system",
// omitting absent tiers. The empty string means the terminal is unknown.
func (r *Relations) Location(terminalID int) string {
	a := r.Anchor(terminalID)
	parts := make([]string, 0, 4)
	switch {
	case a.StationID != 0:
		parts = append(parts, r.Stations[a.StationID].Name)
	case a.OutpostID != 0:
		parts = append(parts, r.Outposts[a.OutpostID].Name)
	case a.CityID != 0:
		parts = append(parts, r.Cities[a.CityID].Name)
	}
	if a.MoonID != 0 {
		parts = append(parts, r.Moons[a.MoonID].Name)
	}
	if a.PlanetID != 0 {
		parts = append(parts, r.Planets[a.PlanetID].Name)
	}
	if a.SystemID != 0 {
		parts = append(parts, r.Systems[a.SystemID].Name)
	}
	return strings.Join(parts, ", ")
}

// LocationNames returns the graph-derived place names of a terminal.
func (r *Relations) LocationNames(terminalID int) models.LocationNames {
	a := r.Anchor(terminalID)
	var n models.LocationNames
	if a.StationID != 0 {
		n.SpaceStationName = r.Stations[a.StationID].Name
	}
	if a.OutpostID != 0 {
		n.OutpostName = r.Outposts[a.OutpostID].Name
	}
	if a.CityID != 0 {
		n.CityName = r.Cities[a.CityID].Name
	}
	if a.MoonID != 0 {
		n.MoonName = r.Moons[a.MoonID].Name
	}
	if a.PlanetID != 0 {
		n.PlanetName = r.Planets[a.PlanetID].Name
	}
	if a.SystemID != 0 {
		n.StarSystemName = r.Systems[a.SystemID].Name
	}
	return n
}

// firstIn returns the first non-zero id present in m, or 0.
func firstIn[V any](m map[int]V, ids ...int) int {
	for _, id := range ids {
		if _, ok := m[id]; ok && id != 0 {
			return id
		}
	}
	return 0
}
