// Package app contains application services for the routing context.
package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/replitcryptobots-blip/Sonicarbi/business/routing/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apperror"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
)

const meterName = "github.com/replitcryptobots-blip/Sonicarbi/business/routing/app"

// CatalogConfig bounds route generation.
type CatalogConfig struct {
	// MaxHops caps the number of swaps per route. Minimum 2: a value of
	// 2 enables three-token routes, 3 enables four-token routes.
	MaxHops int

	// MaxIntermediaries is a hard limit on the intermediary universe.
	// Exceeding it is a configuration error, not a truncation.
	MaxIntermediaries int

	// TopSecondaryTokens is how many of the highest-priority secondary
	// tokens participate in four-token routes.
	TopSecondaryTokens int

	// MaxPaths truncates the generated set; truncation is logged.
	MaxPaths int
}

// DefaultCatalogConfig returns the standard bounds.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		MaxHops:            3,
		MaxIntermediaries:  8,
		TopSecondaryTokens: 3,
		MaxPaths:           150,
	}
}

// Catalog generates the candidate route set between a token pair using a
// configured universe of intermediary tokens.
type Catalog struct {
	cfg            CatalogConfig
	log            logger.LoggerInterface
	intermediaries []*asset.Asset // priority order

	routesGenerated metric.Int64Counter
}

// NewCatalog validates the intermediary universe and builds a Catalog.
// The intermediaries slice is in priority order; its leading
// TopSecondaryTokens entries form the four-token subset.
func NewCatalog(cfg CatalogConfig, intermediaries []*asset.Asset, log logger.LoggerInterface) (*Catalog, error) {
	if cfg.MaxHops < 2 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("max hops %d below minimum 2", cfg.MaxHops)))
	}
	if len(intermediaries) > cfg.MaxIntermediaries {
		return nil, apperror.New(apperror.CodeIntermediaryLimit,
			apperror.WithContext(fmt.Sprintf("%d intermediaries exceeds limit %d",
				len(intermediaries), cfg.MaxIntermediaries)))
	}

	meter := otel.Meter(meterName)
	routesGenerated, err := meter.Int64Counter(
		"routes_generated_total",
		metric.WithDescription("Total candidate routes generated"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	cp := make([]*asset.Asset, len(intermediaries))
	copy(cp, intermediaries)

	return &Catalog{
		cfg:             cfg,
		log:             log,
		intermediaries:  cp,
		routesGenerated: routesGenerated,
	}, nil
}

// Routes returns every candidate route from tokenIn to tokenOut within
// the configured hop bound: the direct route, all three-token routes,
// and four-token routes through the top secondary subset. Routes never
// revisit a token. The set is truncated at MaxPaths.
func (c *Catalog) Routes(ctx context.Context, tokenIn, tokenOut *asset.Asset) []domain.Route {
	routes := make([]domain.Route, 0, 16)

	// Direct route is always first.
	routes = append(routes, domain.NewRoute(tokenIn, tokenOut))

	// Three-token routes through each eligible intermediary.
	if c.cfg.MaxHops >= 2 {
		for _, mid := range c.intermediaries {
			if mid.Equals(tokenIn) || mid.Equals(tokenOut) {
				continue
			}
			routes = append(routes, domain.NewRoute(tokenIn, mid, tokenOut))
		}
	}

	// Four-token routes through ordered distinct pairs from the top
	// secondary subset.
	if c.cfg.MaxHops >= 3 {
		subset := c.topSecondary(tokenIn, tokenOut)
		for _, first := range subset {
			for _, second := range subset {
				if first.Equals(second) {
					continue
				}
				routes = append(routes, domain.NewRoute(tokenIn, first, second, tokenOut))
			}
		}
	}

	if c.cfg.MaxPaths > 0 && len(routes) > c.cfg.MaxPaths {
		c.log.Warn(ctx, "route set truncated",
			"generated", len(routes),
			"limit", c.cfg.MaxPaths,
			"pair", tokenIn.Symbol()+">"+tokenOut.Symbol(),
		)
		routes = routes[:c.cfg.MaxPaths]
	}

	c.routesGenerated.Add(ctx, int64(len(routes)), metric.WithAttributes(
		attribute.String("token_in", tokenIn.Symbol()),
		attribute.String("token_out", tokenOut.Symbol()),
	))

	return routes
}

// topSecondary returns the leading secondary tokens excluding the
// route endpoints.
func (c *Catalog) topSecondary(tokenIn, tokenOut *asset.Asset) []*asset.Asset {
	subset := make([]*asset.Asset, 0, c.cfg.TopSecondaryTokens)
	for _, t := range c.intermediaries {
		if len(subset) == c.cfg.TopSecondaryTokens {
			break
		}
		if t.Equals(tokenIn) || t.Equals(tokenOut) {
			continue
		}
		subset = append(subset, t)
	}
	return subset
}
