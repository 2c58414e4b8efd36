// Package market answers buy, sell, spot, activity and route questions over
// the world cache's listings.
package market

import (
	"sort"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/match"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

// Listing is one commodity or item price row as the optimizer sees it. Nil
// prices mean "no data" and never take part in a comparison.
type Listing struct {
	Kind         string               `json:"kind"`
	Name         string               `json:"name"`
	TerminalID   int                  `json:"terminal_id"`
	TerminalName string               `json:"terminal_name"`
	Location     string               `json:"location,omitempty"`
	PriceBuy     *float64             `json:"price_buy,omitempty"`
	PriceSell    *float64             `json:"price_sell,omitempty"`
	BuyReports   int                  `json:"buy_reports,omitempty"`
	SellReports  int                  `json:"sell_reports,omitempty"`
	Names        models.LocationNames `json:"names"`
}

// Reports is the number of user price submissions behind the row. It counts
// reports, not traded units.
func (l Listing) Reports() int {
	return l.BuyReports + l.SellReports
}

// InLocation reports whether filter matches any place name attached to the
// listing's terminal. An empty filter matches everything.
func (l Listing) InLocation(filter string) bool {
	return match.ContainsFold(filter, append(l.Names.Fields(), l.TerminalName, l.Location)...)
}

// Route is a buy-here, sell-there candidate.
type Route struct {
	Name   string  `json:"name"`
	Buy    Listing `json:"buy"`
	Sell   Listing `json:"sell"`
	Spread float64 `json:"spread"`
}

// Activity aggregates report counts for one commodity, item or terminal.
type Activity struct {
	Key         string `json:"key"`
	Reports     int    `json:"reports"`
	BuyReports  int    `json:"buy_reports"`
	SellReports int    `json:"sell_reports"`
	Listings    int    `json:"listings"`
}

// Scopes accepted by Activity.
const (
	ScopeCommodity = "commodity"
	ScopeTerminal  = "terminal"
)

// Filter keeps the listings located in filter.
func Filter(ls []Listing, filter string) []Listing {
	out := make([]Listing, 0, len(ls))
	for _, l := range ls {
		if l.InLocation(filter) {
			out = append(out, l)
		}
	}
	return out
}

// stable orders two listings whose primary key tied: more reports first,
// then terminal name, then terminal id.
func stable(a, b Listing) bool {
	if a.Reports() != b.Reports() {
		return a.Reports() > b.Reports()
	}
	if a.TerminalName != b.TerminalName {
		return a.TerminalName < b.TerminalName
	}
	return a.TerminalID < b.TerminalID
}

func head[T any](xs []T, top int) []T {
	if top > 0 && len(xs) > top {
		return xs[:top]
	}
	return xs
}

// RankBuy returns the rows with a buy price, cheapest first.
func RankBuy(ls []Listing, top int) []Listing {
	out := make([]Listing, 0, len(ls))
	for _, l := range ls {
		if l.PriceBuy != nil {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].PriceBuy != *out[j].PriceBuy {
			return *out[i].PriceBuy < *out[j].PriceBuy
		}
		return stable(out[i], out[j])
	})
	return head(out, top)
}

// RankSell returns the rows with a sell price, best paying first.
func RankSell(ls []Listing, top int) []Listing {
	out := make([]Listing, 0, len(ls))
	for _, l := range ls {
		if l.PriceSell != nil {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].PriceSell != *out[j].PriceSell {
			return *out[i].PriceSell > *out[j].PriceSell
		}
		return stable(out[i], out[j])
	})
	return head(out, top)
}

// RankSpot orders rows by round-trip cost, buy + sell ascending. Rows quoting
// both directions come first; one-sided rows follow, ordered by the price
// they have. Rows with no price are dropped.
func RankSpot(ls []Listing, top int) []Listing {
	out := make([]Listing, 0, len(ls))
	for _, l := range ls {
		if l.PriceBuy != nil || l.PriceSell != nil {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, bi := out[i].PriceBuy != nil && out[i].PriceSell != nil, out[j].PriceBuy != nil && out[j].PriceSell != nil
		if ai != bi {
			return ai
		}
		ci, cj := spotCost(out[i]), spotCost(out[j])
		if ci != cj {
			return ci < cj
		}
		return stable(out[i], out[j])
	})
	return head(out, top)
}

func spotCost(l Listing) float64 {
	var sum float64
	if l.PriceBuy != nil {
		sum += *l.PriceBuy
	}
	if l.PriceSell != nil {
		sum += *l.PriceSell
	}
	return sum
}

// Routes pairs every buy-capable row with every sell-capable row at another
// terminal and keeps the positive spreads, widest first.
func Routes(ls []Listing, top int) []Route {
	var buys, sells []Listing
	for _, l := range ls {
		if l.PriceBuy != nil {
			buys = append(buys, l)
		}
		if l.PriceSell != nil {
			sells = append(sells, l)
		}
	}
	var out []Route
	for _, b := range buys {
		for _, s := range sells {
			if b.TerminalID == s.TerminalID {
				continue
			}
			spread := *s.PriceSell - *b.PriceBuy
			if spread <= 0 {
				continue
			}
			out = append(out, Route{Name: b.Name, Buy: b, Sell: s, Spread: spread})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Spread != out[j].Spread {
			return out[i].Spread > out[j].Spread
		}
		if out[i].Buy.TerminalID != out[j].Buy.TerminalID {
			return out[i].Buy.TerminalID < out[j].Buy.TerminalID
		}
		return out[i].Sell.TerminalID < out[j].Sell.TerminalID
	})
	if out == nil {
		return []Route{}
	}
	return head(out, top)
}

// ActivityOf sums report counts grouped by name (ScopeCommodity) or by
// terminal (ScopeTerminal), busiest first. Groups without reports are left
// out; an unknown scope yields nothing.
func ActivityOf(ls []Listing, scope string, top int) []Activity {
	keyOf := func(l Listing) string { return l.Name }
	switch scope {
	case ScopeCommodity:
	case ScopeTerminal:
		keyOf = func(l Listing) string { return l.TerminalName }
	default:
		return []Activity{}
	}
	byKey := map[string]*Activity{}
	for _, l := range ls {
		k := keyOf(l)
		if k == "" {
			continue
		}
		a, ok := byKey[k]
		if !ok {
			a = &Activity{Key: k}
			byKey[k] = a
		}
		a.BuyReports += l.BuyReports
		a.SellReports += l.SellReports
		a.Reports += l.Reports()
		a.Listings++
	}
	out := make([]Activity, 0, len(byKey))
	for _, a := range byKey {
		if a.Reports > 0 {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reports != out[j].Reports {
			return out[i].Reports > out[j].Reports
		}
		return out[i].Key < out[j].Key
	})
	return head(out, top)
}
