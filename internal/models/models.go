package models

import "time"

// Parent references use 0 for "no parent". Upstream ids are always positive.

// StarSystem is the root of the world topology.
type StarSystem struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Code         string   `json:"code,omitempty"`
	IsLive       bool     `json:"is_live"`
	IsDefault    bool     `json:"is_default"`
	IsVisible    bool     `json:"is_visible"`
	Factions     []string `json:"factions,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
}

// Planet orbits a star system.
type Planet struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Code         string   `json:"code,omitempty"`
	StarSystemID int      `json:"star_system_id"`
	IsLive       bool     `json:"is_live"`
	IsDefault    bool     `json:"is_default"`
	IsVisible    bool     `json:"is_visible"`
	Factions     []string `json:"factions,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
}

// Moon orbits a planet.
type Moon struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code,omitempty"`
	StarSystemID int    `json:"star_system_id"`
	PlanetID     int    `json:"planet_id,omitempty"`
}

// SpaceStation is an orbital station, optionally bound to a planet, moon or city.
type SpaceStation struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	StarSystemID int      `json:"star_system_id"`
	PlanetID     int      `json:"planet_id,omitempty"`
	MoonID       int      `json:"moon_id,omitempty"`
	OrbitName    string   `json:"orbit_name,omitempty"`
	CityID       int      `json:"city_id,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// Outpost is a surface settlement.
type Outpost struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	StarSystemID int      `json:"star_system_id"`
	PlanetID     int      `json:"planet_id,omitempty"`
	MoonID       int      `json:"moon_id,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// City is a planetary landing zone.
type City struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	StarSystemID int    `json:"star_system_id"`
	PlanetID     int    `json:"planet_id,omitempty"`
}

// ServiceFlags lists what a terminal's location offers.
type ServiceFlags struct {
	IsRefinery         bool `json:"is_refinery,omitempty"`
	IsCargoCenter      bool `json:"is_cargo_center,omitempty"`
	IsMedical          bool `json:"is_medical,omitempty"`
	IsFood             bool `json:"is_food,omitempty"`
	IsShopFPS          bool `json:"is_shop_fps,omitempty"`
	IsShopVehicle      bool `json:"is_shop_vehicle,omitempty"`
	IsRefuel           bool `json:"is_refuel,omitempty"`
	IsRepair           bool `json:"is_repair,omitempty"`
	HasLoadingDock     bool `json:"has_loading_dock,omitempty"`
	HasDockingPort     bool `json:"has_docking_port,omitempty"`
	HasFreightElevator bool `json:"has_freight_elevator,omitempty"`
	IsHabitation       bool `json:"is_habitation,omitempty"`
}

// Terminal is a tradeable location node attached to a station, outpost or city.
type Terminal struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	Code           string       `json:"code,omitempty"`
	Type           string       `json:"type,omitempty"`
	StarSystemID   int          `json:"star_system_id,omitempty"`
	PlanetID       int          `json:"planet_id,omitempty"`
	MoonID         int          `json:"moon_id,omitempty"`
	SpaceStationID int          `json:"space_station_id,omitempty"`
	OutpostID      int          `json:"outpost_id,omitempty"`
	CityID         int          `json:"city_id,omitempty"`
	Services       ServiceFlags `json:"services"`
}

// LocationNames are the denormalized place names a listing row carries
// alongside its terminal.
type LocationNames struct {
	StarSystemName   string `json:"star_system_name,omitempty"`
	PlanetName       string `json:"planet_name,omitempty"`
	MoonName         string `json:"moon_name,omitempty"`
	SpaceStationName string `json:"space_station_name,omitempty"`
	OutpostName      string `json:"outpost_name,omitempty"`
	CityName         string `json:"city_name,omitempty"`
}

// Fields returns the non-empty location names, most specific first.
func (l LocationNames) Fields() []string {
	out := make([]string, 0, 6)
	for _, s := range []string{l.SpaceStationName, l.OutpostName, l.CityName, l.MoonName, l.PlanetName, l.StarSystemName} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CommodityListing is a commodity price record at one terminal.
// Nil prices and counts mean "no data".
type CommodityListing struct {
	ID              int      `json:"id,omitempty"`
	CommodityID     int      `json:"commodity_id,omitempty"`
	TerminalID      int      `json:"terminal_id"`
	CommodityName   string   `json:"commodity_name"`
	TerminalName    string   `json:"terminal_name,omitempty"`
	PriceBuy        *float64 `json:"price_buy,omitempty"`
	PriceSell       *float64 `json:"price_sell,omitempty"`
	BuyReportCount  *int     `json:"buy_report_count,omitempty"`
	SellReportCount *int     `json:"sell_report_count,omitempty"`
	LocationNames
}

// ItemListing is an item price record at one terminal.
type ItemListing struct {
	ID           int      `json:"id,omitempty"`
	ItemID       int      `json:"item_id,omitempty"`
	TerminalID   int      `json:"terminal_id"`
	ItemName     string   `json:"item_name"`
	TerminalName string   `json:"terminal_name,omitempty"`
	PriceBuy     *float64 `json:"price_buy,omitempty"`
	PriceSell    *float64 `json:"price_sell,omitempty"`
	LocationNames
}

// TerminalCommodity says a terminal trades a commodity, without prices.
type TerminalCommodity struct {
	TerminalID    int    `json:"terminal_id"`
	CommodityID   int    `json:"commodity_id,omitempty"`
	CommodityName string `json:"commodity_name"`
}

// TerminalItem says a terminal sells an item, without prices.
type TerminalItem struct {
	TerminalID int    `json:"terminal_id"`
	ItemID     int    `json:"item_id,omitempty"`
	ItemName   string `json:"item_name"`
}

// TerminalPriceSnapshot holds averaged prices for a commodity at a terminal.
type TerminalPriceSnapshot struct {
	TerminalID    int      `json:"terminal_id"`
	TerminalName  string   `json:"terminal_name,omitempty"`
	CommodityName string   `json:"commodity_name"`
	PriceBuyAvg   *float64 `json:"price_buy_avg,omitempty"`
	PriceSellAvg  *float64 `json:"price_sell_avg,omitempty"`
	LocationNames
}

// CommoditySummary is the catalog entry for a commodity.
type CommoditySummary struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Code      string   `json:"code,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	PriceBuy  *float64 `json:"price_buy,omitempty"`
	PriceSell *float64 `json:"price_sell,omitempty"`
}

// ItemSummary is the catalog entry for an item.
type ItemSummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Company  string `json:"company,omitempty"`
}

// Availability is one answer to "where can I get X".
type Availability struct {
	Kind         string   `json:"kind"`
	Name         string   `json:"name"`
	TerminalID   int      `json:"terminal_id"`
	TerminalName string   `json:"terminal_name"`
	PriceBuy     *float64 `json:"price_buy,omitempty"`
	PriceSell    *float64 `json:"price_sell,omitempty"`
	Location     string   `json:"location,omitempty"`
	Synthesized  bool     `json:"synthesized,omitempty"`
}

// Place is a uniform projection of a location entity.
type Place struct {
	Kind     string `json:"kind"`
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code,omitempty"`
	Location string `json:"location,omitempty"`
}

// KnowledgeDocument is a curated long-lived document.
// (Source, URL, Version, Section) identifies a document for upserts.
type KnowledgeDocument struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Category  string    `json:"category"`
	Section   string    `json:"section,omitempty"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	URL       string    `json:"url"`
	Version   string    `json:"version,omitempty"`
	GuildID   string    `json:"guild_id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	Embedding []float32 `json:"embedding,omitempty"`
	Score     float64   `json:"score,omitempty"`
}

// ConversationMessage is an ephemeral chat line. It is never persisted here.
type ConversationMessage struct {
	Author    string    `json:"author"`
	Channel   string    `json:"channel"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// KnowledgeFilter scopes document reads. Empty fields match everything.
type KnowledgeFilter struct {
	Source    string `json:"source,omitempty"`
	Category  string `json:"category,omitempty"`
	GuildID   string `json:"guild_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// KnowledgePatch is a partial document update. Nil fields are left as is.
type KnowledgePatch struct {
	Category *string   `json:"category,omitempty"`
	Section  *string   `json:"section,omitempty"`
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Version  *string   `json:"version,omitempty"`
}

// VectorQuery asks for the nearest documents to Embedding within Filter.
type VectorQuery struct {
	Embedding []float32       `json:"query_embedding"`
	Limit     int             `json:"limit"`
	Filter    KnowledgeFilter `json:"filters"`
}
