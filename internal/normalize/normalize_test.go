package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRows(t *testing.T, raw string) []Row {
	t.Helper()
	var rows []Row
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	return rows
}

func TestPlanetsAcceptAllOrigins(t *testing.T) {
	rows := decodeRows(t, `[
		{"id": 1, "name": "Hurston", "starSystemId": 68, "isLive": true},
		{"id": 2, "name": "Crusader", "id_star_system": 68, "is_available_live": 1, "faction_name": "UEE, Crusader Industries"},
		{"id": "3", "name": "ArcCorp", "star_system_id": "68", "is_live": "true", "is_visible": "1"}
	]`)

	planets, skipped := Planets(rows)
	require.Equal(t, 0, skipped)
	require.Len(t, planets, 3)

	for _, p := range planets {
		assert.Equal(t, 68, p.StarSystemID, p.Name)
		assert.True(t, p.IsLive, p.Name)
	}
	assert.Equal(t, []string{"UEE", "Crusader Industries"}, planets[1].Factions)
	assert.Equal(t, 3, planets[2].ID)
	assert.True(t, planets[2].IsVisible)
}

func TestRowsMissingRequiredKeysAreSkipped(t *testing.T) {
	rows := decodeRows(t, `[
		{"id": 1, "name": "Stanton"},
		{"name": "No Id"},
		{"id": 3},
		{"id": 4, "name": "   "}
	]`)

	systems, skipped := StarSystems(rows)
	assert.Len(t, systems, 1)
	assert.Equal(t, 3, skipped)
}

func TestCommodityListingPrices(t *testing.T) {
	rows := decodeRows(t, `[
		{"id_terminal": 10, "commodity_name": "Laranite", "price_buy": 0, "price_sell": 31.5,
		 "price_sell_users_rows": 7, "planet_name": "Hurston", "star_system_name": "Stanton"},
		{"terminalId": 11, "commodityName": "Laranite", "priceBuy": "27.25", "priceSell": null, "buyReportCount": 2},
		{"id_terminal": 12, "commodity_name": ""}
	]`)

	listings, skipped := CommodityListings(rows)
	require.Len(t, listings, 2)
	assert.Equal(t, 1, skipped)

	first := listings[0]
	assert.Nil(t, first.PriceBuy, "zero price means no data")
	require.NotNil(t, first.PriceSell)
	assert.Equal(t, 31.5, *first.PriceSell)
	require.NotNil(t, first.SellReportCount)
	assert.Equal(t, 7, *first.SellReportCount)
	assert.Nil(t, first.BuyReportCount)
	assert.Equal(t, []string{"Hurston", "Stanton"}, first.Fields())

	second := listings[1]
	require.NotNil(t, second.PriceBuy)
	assert.Equal(t, 27.25, *second.PriceBuy)
	assert.Nil(t, second.PriceSell)
}

func TestTerminalServiceFlags(t *testing.T) {
	rows := decodeRows(t, `[
		{"id": 5, "name": "TDD Area 18", "id_city": 3, "is_refinery": 0, "is_cargo_center": 1, "has_loading_dock": "yes"},
		{"id": 6, "name": "Admin - Everus", "space_station_id": 9, "services": {"is_refuel": true, "is_repair": true}}
	]`)

	terms, skipped := Terminals(rows)
	require.Equal(t, 0, skipped)
	require.Len(t, terms, 2)

	assert.Equal(t, 3, terms[0].CityID)
	assert.True(t, terms[0].Services.IsCargoCenter)
	assert.True(t, terms[0].Services.HasLoadingDock)
	assert.False(t, terms[0].Services.IsRefinery)

	assert.Equal(t, 9, terms[1].SpaceStationID)
	assert.True(t, terms[1].Services.IsRefuel)
	assert.True(t, terms[1].Services.IsRepair)
}

func TestCamel(t *testing.T) {
	assert.Equal(t, "starSystemId", camel("star_system_id"))
	assert.Equal(t, "priceBuyAvg", camel("price_buy_avg"))
	assert.Equal(t, "name", camel("name"))
}
