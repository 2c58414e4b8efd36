// Package normalize turns loosely-typed upstream rows into canonical
// entities. Three origins feed it: the primary backend (camelCase keys), the
// fallback provider API (snake_case with id_ prefixes) and the disk snapshot
// (canonical snake_case). Every field is read through an alias list covering
// all three, so callers never need to know where a row came from.
package normalize

import (
	"strings"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

// k returns the canonical snake key, its camelCase twin and any extra aliases.
func k(snake string, extra ...string) []string {
	return append([]string{snake, camel(snake)}, extra...)
}

// ref returns the alias keys of a parent reference named base ("planet"
// covers planet_id, planetId and id_planet).
func ref(base string) []string {
	return k(base+"_id", "id_"+base)
}

func camel(snake string) string {
	parts := strings.Split(snake, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		if parts[i] == "id" {
			parts[i] = "Id"
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

func locationNames(r Row) models.LocationNames {
	return models.LocationNames{
		StarSystemName:   r.str(k("star_system_name")...),
		PlanetName:       r.str(k("planet_name")...),
		MoonName:         r.str(k("moon_name")...),
		SpaceStationName: r.str(k("space_station_name")...),
		OutpostName:      r.str(k("outpost_name")...),
		CityName:         r.str(k("city_name")...),
	}
}

func liveFlag(r Row) bool {
	return r.bool(k("is_live", "is_available_live", "is_available")...)
}

// StarSystems normalizes star system rows. Rows without id or name are skipped.
func StarSystems(rows []Row) ([]models.StarSystem, int) {
	out := make([]models.StarSystem, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		id, name := r.int("id"), r.str("name")
		if id <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.StarSystem{
			ID:           id,
			Name:         name,
			Code:         r.str("code"),
			IsLive:       liveFlag(r),
			IsDefault:    r.bool(k("is_default")...),
			IsVisible:    r.bool(k("is_visible")...),
			Factions:     r.list(k("factions", "faction_name")...),
			Jurisdiction: r.str(k("jurisdiction", "jurisdiction_name")...),
		})
	}
	return out, skipped
}

// Planets normalizes planet rows.
func Planets(rows []Row) ([]models.Planet, int) {
	out := make([]models.Planet, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		id, name := r.int("id"), r.str("name")
		if id <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.Planet{
			ID:           id,
			Name:         name,
			Code:         r.str("code"),
			StarSystemID: r.int(ref("star_system")...),
			IsLive:       liveFlag(r),
			IsDefault:    r.bool(k("is_default")...),
			IsVisible:    r.bool(k("is_visible")...),
			Factions:     r.list(k("factions", "faction_name")...),
			Jurisdiction: r.str(k("jurisdiction", "jurisdiction_name")...),
		})
	}
	return out, skipped
}

// Moons normalizes moon rows.
func Moons(rows []Row) ([]models.Moon, int) {
	out := make([]models.Moon, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		id, name := r.int("id"), r.str("name")
		if id <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.Moon{
			ID:           id,
			Name:         name,
			Code:         r.str("code"),
			StarSystemID: r.int(ref("star_system")...),
			PlanetID:     r.int(ref("planet")...),
		})
	}
	return out, skipped
}

// SpaceStations normalizes space station rows.
func SpaceStations(rows []Row) ([]models.SpaceStation, int) {
	out := make([]models.SpaceStation, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		id, name := r.int("id"), r.str("name")
		if id <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.SpaceStation{
			ID:           id,
			Name:         name,
			StarSystemID: r.int(ref("star_system")...),
			PlanetID:     r.int(ref("planet")...),
			MoonID:       r.int(ref("moon")...),
			OrbitName:    r.str(k("orbit_name")...),
			CityID:       r.int(ref("city")...),
			Features:     r.list("features"),
		})
	}
	return out, skipped
}

// Outposts normalizes outpost rows.
func Outposts(rows []Row) ([]models.Outpost, int) {
	out := make([]models.Outpost, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		id, name := r.int("id"), r.str("name")
		if id <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.Outpost{
			ID:           id,
			Name:         name,
			StarSystemID: r.int(ref("star_system")...),
			PlanetID:     r.int(ref("planet")...),
			MoonID:       r.int(ref("moon")...),
			Features:     r.list("features"),
		})
	}
	return out, skipped
}

// Cities normalizes city rows.
func Cities(rows []Row) ([]models.City, int) {
	out := make([]models.City, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		id, name := r.int("id"), r.str("name")
		if id <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.City{
			ID:           id,
			Name:         name,
			StarSystemID: r.int(ref("star_system")...),
			PlanetID:     r.int(ref("planet")...),
		})
	}
	return out, skipped
}

// Terminals normalizes terminal rows, including the service flag columns.
func Terminals(rows []Row) ([]models.Terminal, int) {
	out := make([]models.Terminal, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		id, name := r.int("id"), r.str(k("name", "terminal_name")...)
		if id <= 0 || name == "" {
			skipped++
			continue
		}
		t := models.Terminal{
			ID:             id,
			Name:           name,
			Code:           r.str("code"),
			Type:           r.str("type"),
			StarSystemID:   r.int(ref("star_system")...),
			PlanetID:       r.int(ref("planet")...),
			MoonID:         r.int(ref("moon")...),
			SpaceStationID: r.int(ref("space_station")...),
			OutpostID:      r.int(ref("outpost")...),
			CityID:         r.int(ref("city")...),
		}
		// snapshots nest the flags, upstreams keep them flat
		flags := r
		if nested, ok := r["services"].(map[string]any); ok {
			flags = Row(nested)
		}
		t.Services = models.ServiceFlags{
			IsRefinery:         flags.bool(k("is_refinery")...),
			IsCargoCenter:      flags.bool(k("is_cargo_center")...),
			IsMedical:          flags.bool(k("is_medical")...),
			IsFood:             flags.bool(k("is_food")...),
			IsShopFPS:          flags.bool(k("is_shop_fps")...),
			IsShopVehicle:      flags.bool(k("is_shop_vehicle")...),
			IsRefuel:           flags.bool(k("is_refuel")...),
			IsRepair:           flags.bool(k("is_repair")...),
			HasLoadingDock:     flags.bool(k("has_loading_dock")...),
			HasDockingPort:     flags.bool(k("has_docking_port")...),
			HasFreightElevator: flags.bool(k("has_freight_elevator")...),
			IsHabitation:       flags.bool(k("is_habitation")...),
		}
		out = append(out, t)
	}
	return out, skipped
}

// CommodityListings normalizes commodity price rows. A row needs a terminal
// id and a commodity name.
func CommodityListings(rows []Row) ([]models.CommodityListing, int) {
	out := make([]models.CommodityListing, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		tid, name := r.int(ref("terminal")...), r.str(k("commodity_name")...)
		if tid <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.CommodityListing{
			ID:              r.int("id"),
			CommodityID:     r.int(ref("commodity")...),
			TerminalID:      tid,
			CommodityName:   name,
			TerminalName:    r.str(k("terminal_name")...),
			PriceBuy:        r.price(k("price_buy")...),
			PriceSell:       r.price(k("price_sell")...),
			BuyReportCount:  r.intPtr(k("buy_report_count", "price_buy_users_rows")...),
			SellReportCount: r.intPtr(k("sell_report_count", "price_sell_users_rows")...),
			LocationNames:   locationNames(r),
		})
	}
	return out, skipped
}

// ItemListings normalizes item price rows.
func ItemListings(rows []Row) ([]models.ItemListing, int) {
	out := make([]models.ItemListing, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		tid, name := r.int(ref("terminal")...), r.str(k("item_name")...)
		if tid <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.ItemListing{
			ID:            r.int("id"),
			ItemID:        r.int(ref("item")...),
			TerminalID:    tid,
			ItemName:      name,
			TerminalName:  r.str(k("terminal_name")...),
			PriceBuy:      r.price(k("price_buy")...),
			PriceSell:     r.price(k("price_sell")...),
			LocationNames: locationNames(r),
		})
	}
	return out, skipped
}

// TerminalCommodities normalizes terminal/commodity relation rows.
func TerminalCommodities(rows []Row) ([]models.TerminalCommodity, int) {
	out := make([]models.TerminalCommodity, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		tid, name := r.int(ref("terminal")...), r.str(k("commodity_name")...)
		if tid <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.TerminalCommodity{
			TerminalID:    tid,
			CommodityID:   r.int(ref("commodity")...),
			CommodityName: name,
		})
	}
	return out, skipped
}

// TerminalItems normalizes terminal/item relation rows.
func TerminalItems(rows []Row) ([]models.TerminalItem, int) {
	out := make([]models.TerminalItem, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		tid, name := r.int(ref("terminal")...), r.str(k("item_name")...)
		if tid <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.TerminalItem{
			TerminalID: tid,
			ItemID:     r.int(ref("item")...),
			ItemName:   name,
		})
	}
	return out, skipped
}

// PriceSnapshots normalizes averaged terminal price rows.
func PriceSnapshots(rows []Row) ([]models.TerminalPriceSnapshot, int) {
	out := make([]models.TerminalPriceSnapshot, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		tid, name := r.int(ref("terminal")...), r.str(k("commodity_name")...)
		if tid <= 0 || name == "" {
			skipped++
			continue
		}
		out = append(out, models.TerminalPriceSnapshot{
			TerminalID:    tid,
			TerminalName:  r.str(k("terminal_name")...),
			CommodityName: name,
			PriceBuyAvg:   r.price(k("price_buy_avg")...),
			PriceSellAvg:  r.price(k("price_sell_avg")...),
			LocationNames: locationNames(r),
		})
	}
	return out, skipped
}

// CommoditySummaries normalizes the commodity catalog.
func CommoditySummaries(rows []Row) ([]models.CommoditySummary, int) {
	out := make([]models.CommoditySummary, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		name := r.str(k("name", "commodity_name")...)
		if name == "" {
			skipped++
			continue
		}
		out = append(out, models.CommoditySummary{
			ID:        r.int("id"),
			Name:      name,
			Code:      r.str("code"),
			Kind:      r.str("kind"),
			PriceBuy:  r.price(k("price_buy")...),
			PriceSell: r.price(k("price_sell")...),
		})
	}
	return out, skipped
}

// ItemSummaries normalizes the item catalog.
func ItemSummaries(rows []Row) ([]models.ItemSummary, int) {
	out := make([]models.ItemSummary, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		name := r.str(k("name", "item_name")...)
		if name == "" {
			skipped++
			continue
		}
		out = append(out, models.ItemSummary{
			ID:       r.int("id"),
			Name:     name,
			Category: r.str(k("category")...),
			Company:  r.str(k("company_name", "company")...),
		})
	}
	return out, skipped
}
