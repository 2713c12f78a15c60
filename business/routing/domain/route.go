// Package domain contains the core domain types for the routing context.
package domain

import (
	"strings"

	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
)

// Hop is one swap step between two tokens.
type Hop struct {
	In  *asset.Asset
	Out *asset.Asset
}

// Route is an ordered token path from a start token back through the
// market to an end token. A direct route has two tokens (one hop);
// every intermediary adds a hop.
type Route struct {
	tokens []*asset.Asset
}

// NewRoute builds a Route from an ordered token list.
// Panics on fewer than two tokens or duplicate tokens in the path.
func NewRoute(tokens ...*asset.Asset) Route {
	if len(tokens) < 2 {
		panic("route: need at least two tokens")
	}
	seen := make(map[asset.AssetID]bool, len(tokens))
	for _, t := range tokens {
		if t == nil {
			panic("route: nil token")
		}
		if seen[t.ID()] {
			panic("route: duplicate token " + t.Symbol())
		}
		seen[t.ID()] = true
	}

	cp := make([]*asset.Asset, len(tokens))
	copy(cp, tokens)
	return Route{tokens: cp}
}

// Tokens returns the ordered token path.
func (r Route) Tokens() []*asset.Asset {
	cp := make([]*asset.Asset, len(r.tokens))
	copy(cp, r.tokens)
	return cp
}

// Start returns the first token of the path.
func (r Route) Start() *asset.Asset {
	return r.tokens[0]
}

// End returns the last token of the path.
func (r Route) End() *asset.Asset {
	return r.tokens[len(r.tokens)-1]
}

// NumHops returns the number of swaps in the route.
func (r Route) NumHops() int {
	return len(r.tokens) - 1
}

// Hops returns the swap steps in order.
func (r Route) Hops() []Hop {
	hops := make([]Hop, 0, r.NumHops())
	for i := 0; i < len(r.tokens)-1; i++ {
		hops = append(hops, Hop{In: r.tokens[i], Out: r.tokens[i+1]})
	}
	return hops
}

// IsDirect reports whether the route has no intermediaries.
func (r Route) IsDirect() bool {
	return len(r.tokens) == 2
}

// Intermediaries returns the tokens between start and end.
func (r Route) Intermediaries() []*asset.Asset {
	if r.IsDirect() {
		return nil
	}
	mid := make([]*asset.Asset, len(r.tokens)-2)
	copy(mid, r.tokens[1:len(r.tokens)-1])
	return mid
}

// Contains reports whether the route passes through the given asset.
func (r Route) Contains(a *asset.Asset) bool {
	for _, t := range r.tokens {
		if t.Equals(a) {
			return true
		}
	}
	return false
}

// String returns the path as "WETH>USDC>WETH" style notation.
func (r Route) String() string {
	parts := make([]string, len(r.tokens))
	for i, t := range r.tokens {
		parts[i] = t.Symbol()
	}
	return strings.Join(parts, ">")
}
