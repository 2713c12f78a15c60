package app_test

import (
	"context"
	"io"
	"testing"

	"github.com/replitcryptobots-blip/Sonicarbi/business/routing/app"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelInfo, "test", nil)
}

func TestCatalog_DirectAndThreeToken(t *testing.T) {
	cfg := app.DefaultCatalogConfig()
	cfg.MaxHops = 2

	mids := []*asset.Asset{asset.USDT, asset.WBTC, asset.WstETH}
	catalog, err := app.NewCatalog(cfg, mids, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	routes := catalog.Routes(context.Background(), asset.WETH, asset.USDC)

	// 1 direct + 3 three-token; no four-token routes at maxHops=2
	if len(routes) != 4 {
		t.Fatalf("expected 4 routes, got %d", len(routes))
	}

	if !routes[0].IsDirect() {
		t.Error("first route must be the direct route")
	}
	for _, r := range routes[1:] {
		if r.NumHops() != 2 {
			t.Errorf("route %s: expected 2 hops, got %d", r, r.NumHops())
		}
	}
}

func TestCatalog_EndpointExcludedAsIntermediary(t *testing.T) {
	cfg := app.DefaultCatalogConfig()
	cfg.MaxHops = 2

	// USDC appears in the intermediary universe but is a route endpoint.
	mids := []*asset.Asset{asset.USDC, asset.USDT}
	catalog, err := app.NewCatalog(cfg, mids, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	routes := catalog.Routes(context.Background(), asset.WETH, asset.USDC)

	// 1 direct + 1 via USDT; USDC skipped
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	for _, r := range routes {
		for _, mid := range r.Intermediaries() {
			if mid.Equals(asset.USDC) {
				t.Errorf("route %s uses an endpoint as intermediary", r)
			}
		}
	}
}

func TestCatalog_FourTokenRoutes(t *testing.T) {
	cfg := app.DefaultCatalogConfig()
	cfg.MaxHops = 3
	cfg.TopSecondaryTokens = 3

	mids := []*asset.Asset{asset.USDT, asset.WBTC, asset.WstETH}
	catalog, err := app.NewCatalog(cfg, mids, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	routes := catalog.Routes(context.Background(), asset.WETH, asset.USDC)

	// 1 direct + 3 three-token + 3*2 ordered pairs
	if len(routes) != 10 {
		t.Fatalf("expected 10 routes, got %d", len(routes))
	}

	// Ordered pairs are distinct: X,Y and Y,X both present, X,X never.
	seen := make(map[string]bool)
	for _, r := range routes {
		if r.NumHops() != 3 {
			continue
		}
		mids := r.Intermediaries()
		if mids[0].Equals(mids[1]) {
			t.Errorf("route %s repeats an intermediary", r)
		}
		seen[mids[0].Symbol()+">"+mids[1].Symbol()] = true
	}
	if !seen["USDT>WBTC"] || !seen["WBTC>USDT"] {
		t.Error("expected both orderings of each intermediary pair")
	}
}

func TestCatalog_IntermediaryLimit(t *testing.T) {
	cfg := app.DefaultCatalogConfig()
	cfg.MaxIntermediaries = 2

	mids := []*asset.Asset{asset.USDT, asset.WBTC, asset.WstETH}
	_, err := app.NewCatalog(cfg, mids, testLogger())
	if err == nil {
		t.Fatal("expected error for oversized intermediary universe")
	}
	if apperror.GetCode(err) != apperror.CodeIntermediaryLimit {
		t.Errorf("expected %s, got %s", apperror.CodeIntermediaryLimit, apperror.GetCode(err))
	}
}

func TestCatalog_MaxPathsTruncation(t *testing.T) {
	cfg := app.DefaultCatalogConfig()
	cfg.MaxPaths = 3

	mids := []*asset.Asset{asset.USDT, asset.WBTC, asset.WstETH}
	catalog, err := app.NewCatalog(cfg, mids, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	routes := catalog.Routes(context.Background(), asset.WETH, asset.USDC)
	if len(routes) != 3 {
		t.Fatalf("expected truncation to 3 routes, got %d", len(routes))
	}
	if !routes[0].IsDirect() {
		t.Error("truncation must keep the direct route first")
	}
}

func TestCatalog_MinHops(t *testing.T) {
	cfg := app.DefaultCatalogConfig()
	cfg.MaxHops = 1

	_, err := app.NewCatalog(cfg, nil, testLogger())
	if err == nil {
		t.Fatal("expected error for max_hops below 2")
	}
}
