package usecase

import (
	"context"
	"fmt"

	"github.com/vitos/signal_trader/internal/domain"
)

// routeLeg names the four assets involved when capital moves between pairs.
type routeLeg struct {
	OldAsset string
	OldBase  string
	NewAsset string
	NewBase  string
}

// routeCandidate builds one symbol from two legs. spend is the asset given up
// by trading Side on that symbol.
type routeCandidate struct {
	left  func(routeLeg) string
	right func(routeLeg) string
	side  domain.Side
	spend func(routeLeg) string
}

func oldAsset(l routeLeg) string { return l.OldAsset }
func oldBase(l routeLeg) string  { return l.OldBase }
func newAsset(l routeLeg) string { return l.NewAsset }
func newBase(l routeLeg) string  { return l.NewBase }

// routeCandidates is evaluated in order; the first symbol the exchange lists wins.
var routeCandidates = []routeCandidate{
	{left: oldAsset, right: newBase, side: domain.SideSell, spend: oldAsset},
	{left: newAsset, right: oldBase, side: domain.SideBuy, spend: oldBase},
	{left: oldBase, right: newBase, side: domain.SideSell, spend: oldBase},
	{left: oldAsset, right: newAsset, side: domain.SideSell, spend: oldAsset},
	{left: newBase, right: oldBase, side: domain.SideBuy, spend: oldBase},
	{left: newAsset, right: oldAsset, side: domain.SideBuy, spend: oldAsset},
}

// Route is a listed symbol linking the old pair to the new one.
type Route struct {
	Symbol     string
	Side       domain.Side
	SpendAsset string
	Info       domain.SymbolInfo
}

// resolveRoute returns found=false when no candidate symbol is listed. A
// lookup error aborts the search.
func resolveRoute(ctx context.Context, gateway domain.ExchangeGateway, leg routeLeg) (Route, bool, error) {
	for _, c := range routeCandidates {
		left, right := c.left(leg), c.right(leg)
		if left == "" || right == "" || left == right {
			continue
		}
		symbol := left + right
		info, found, err := gateway.LookupSymbol(ctx, symbol)
		if err != nil {
			return Route{}, false, fmt.Errorf("lookup %s: %w", symbol, err)
		}
		if found {
			return Route{Symbol: symbol, Side: c.side, SpendAsset: c.spend(leg), Info: info}, true, nil
		}
	}
	return Route{}, false, nil
}
