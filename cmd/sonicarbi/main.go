// Package main is the entry point for the multi-DEX arbitrage scanner.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	arbitrageapp "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/app"
	arbitrageinfra "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/infra"
	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/infra/memory"
	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/infra/telegram"
	"github.com/replitcryptobots-blip/Sonicarbi/business/blockchain/infra/ethereum"
	executionapp "github.com/replitcryptobots-blip/Sonicarbi/business/execution/app"
	executiondomain "github.com/replitcryptobots-blip/Sonicarbi/business/execution/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/business/execution/infra/mempool"
	"github.com/replitcryptobots-blip/Sonicarbi/business/execution/infra/settlement"
	pricingapp "github.com/replitcryptobots-blip/Sonicarbi/business/pricing/app"
	"github.com/replitcryptobots-blip/Sonicarbi/business/pricing/infra/croc"
	"github.com/replitcryptobots-blip/Sonicarbi/business/pricing/infra/univ2"
	routingapp "github.com/replitcryptobots-blip/Sonicarbi/business/routing/app"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/apm"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/asset"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/config"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/health"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/metrics"

	"github.com/shopspring/decimal"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const historyCapacity = 256

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Force observe-only mode regardless of config")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sonicarbi %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dryRun {
		cfg.Execution.Enabled = false
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting arbitrage scanner",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Ethereum.ChainID,
	)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.CollectorProvider, log))
		log.Info(ctx, "tracing initialized", "endpoint", cfg.Telemetry.OTLPEndpoint)

		if _, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
		); err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}

		go func() {
			port := strconv.Itoa(cfg.Telemetry.PrometheusPort)
			if err := metrics.ServePrometheusMetrics(metrics.WithPort(port)); err != nil {
				log.Warn(ctx, "prometheus server stopped", "error", err.Error())
			}
		}()
		log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err.Error())
	}
	defer healthServer.Stop(ctx)

	client, err := ethereum.Dial(ctx, cfg.Ethereum.HTTPURL, cfg.Ethereum.ChainID, log)
	if err != nil {
		return err
	}
	defer client.Close()

	healthServer.RegisterCheck("rpc", func(ctx context.Context) (bool, string) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		block, err := client.BlockNumber(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("block %d", block)
	})

	gasOracle, err := ethereum.NewGasOracle(client, cfg.Oracle, cfg.Ethereum.MaxGasPriceGwei, log)
	if err != nil {
		return fmt.Errorf("create gas oracle: %w", err)
	}
	defer gasOracle.Close()

	refOracle, err := ethereum.NewReferenceOracle(client, cfg.Oracle, log)
	if err != nil {
		return fmt.Errorf("create reference oracle: %w", err)
	}
	defer refOracle.Close()

	// Background writers keep the published snapshots fresh so scan
	// workers read prices without blocking on RPC.
	go gasOracle.Run(ctx)
	go refOracle.Run(ctx)

	tokens := registerTokens(cfg)

	venues := make([]pricingapp.VenueAdapter, 0, len(cfg.Venues))
	venueNames := make([]string, 0, len(cfg.Venues))
	routers := make(map[string]common.Address, len(cfg.Venues))
	minLiquidity := decimal.NewFromFloat(cfg.Arbitrage.MinLiquidityUSD)

	for _, vc := range cfg.Venues {
		var adapter pricingapp.VenueAdapter
		switch vc.Kind {
		case "v2":
			adapter, err = univ2.NewProvider(client, vc, minLiquidity, refOracle, log)
		case "concentrated":
			adapter, err = croc.NewProvider(client, vc, log)
		default:
			return fmt.Errorf("unknown venue kind %q", vc.Kind)
		}
		if err != nil {
			return fmt.Errorf("create venue %s: %w", vc.Name, err)
		}

		venues = append(venues, adapter)
		venueNames = append(venueNames, vc.Name)
		routers[vc.Name] = vc.RouterHex()
	}

	pricer, err := pricingapp.NewPathPricer(venues, log)
	if err != nil {
		return fmt.Errorf("create pricer: %w", err)
	}

	catalog, err := routingapp.NewCatalog(routingapp.CatalogConfig{
		MaxHops:            cfg.Routing.MaxHops,
		MaxIntermediaries:  cfg.Routing.MaxIntermediaries,
		TopSecondaryTokens: cfg.Routing.TopSecondaryTokens,
		MaxPaths:           cfg.Routing.MaxPaths,
	}, tokens.intermediaries, log)
	if err != nil {
		return fmt.Errorf("create route catalog: %w", err)
	}

	evaluator, err := arbitrageapp.NewEvaluator(arbitrageapp.EvaluatorConfig{
		MinProfitUSD:    cfg.Arbitrage.MinProfitUSDDecimal(),
		MinProfitPct:    cfg.Arbitrage.MinProfitPctDecimal(),
		FinancingFeeBps: cfg.Arbitrage.FinancingFeeBps,
		MaxRouteSlippagePct: cfg.Arbitrage.SlippageToleranceDecimal().
			Mul(decimal.NewFromInt(100)),
	}, gasOracle, refOracle, log)
	if err != nil {
		return fmt.Errorf("create evaluator: %w", err)
	}

	reporter, err := buildReporter(cfg, log)
	if err != nil {
		return err
	}

	var executor arbitrageapp.Executor
	if cfg.Execution.Enabled {
		coordinator, breaker, err := buildExecutor(ctx, cfg, client, gasOracle, pricer, routers, log)
		if err != nil {
			return err
		}
		executor = coordinator

		healthServer.RegisterCheck("execution_breaker", func(context.Context) (bool, string) {
			if breaker.Tripped() {
				return false, "execution halted, cooling down"
			}
			return true, "closed"
		})

		log.Info(ctx, "execution enabled",
			"contract", cfg.Execution.SettlementContract)
	} else {
		log.Info(ctx, "running observe-only, execution disabled")
	}

	scanner, err := arbitrageapp.NewScanner(
		arbitrageapp.ScannerConfig{
			Pairs:        arbitrageapp.PairsFromTokens(tokens.stables, tokens.targets),
			TradeSizes:   cfg.Arbitrage.TradeSizesDecimal(),
			ScanInterval: cfg.Arbitrage.ScanInterval,
			Workers:      cfg.Arbitrage.ScanWorkers,
		},
		catalog,
		pricer,
		evaluator,
		reporter,
		memory.NewHistoryStore(historyCapacity),
		executor,
		venueNames,
		log,
	)
	if err != nil {
		return fmt.Errorf("create scanner: %w", err)
	}

	return scanner.Run(ctx)
}

// tokenSets partitions the configured tokens by role.
type tokenSets struct {
	stables        []*asset.Asset
	targets        []*asset.Asset
	intermediaries []*asset.Asset
}

// registerTokens resolves configured tokens against the registry,
// adding the ones it does not know.
func registerTokens(cfg *config.Config) tokenSets {
	registry := asset.DefaultRegistry()
	var sets tokenSets

	for _, tc := range cfg.Tokens {
		a, ok := registry.GetToken(cfg.Ethereum.ChainID, tc.AddressHex())
		if !ok {
			a = asset.MustNewToken(cfg.Ethereum.ChainID, tc.AddressHex(), tc.Symbol, tc.Symbol, tc.Decimals)
			registry.Register(a)
		}

		if tc.Stable {
			sets.stables = append(sets.stables, a)
		} else {
			sets.targets = append(sets.targets, a)
		}
		if tc.Secondary {
			sets.intermediaries = append(sets.intermediaries, a)
		}
	}

	return sets
}

func buildReporter(cfg *config.Config, log *logger.Logger) (arbitrageapp.Reporter, error) {
	console := arbitrageinfra.NewConsoleReporter()
	if !cfg.Telegram.Enabled {
		return console, nil
	}

	notifier, err := telegram.NewNotifier(cfg.Telegram, log)
	if err != nil {
		return nil, fmt.Errorf("create telegram notifier: %w", err)
	}
	return arbitrageinfra.NewMultiReporter(console, notifier), nil
}

func buildExecutor(
	ctx context.Context,
	cfg *config.Config,
	client *ethclient.Client,
	gasOracle *ethereum.GasOracle,
	pricer *pricingapp.PathPricer,
	routers map[string]common.Address,
	log *logger.Logger,
) (*executionapp.Coordinator, *executiondomain.Breaker, error) {
	contract, err := settlement.NewContract(
		client,
		cfg.Execution.SettlementContractHex(),
		cfg.Ethereum.PrivateKey,
		cfg.Ethereum.ChainID,
		routers,
		gasOracle.GasPrice,
		log,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create settlement contract: %w", err)
	}

	var channels []mempool.Channel

	if cfg.Execution.PrivateRelayURL != "" {
		signingKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Ethereum.PrivateKey, "0x"))
		if err != nil {
			return nil, nil, fmt.Errorf("parse relay signing key: %w", err)
		}
		relay, err := mempool.NewRelayChannel(cfg.Execution.PrivateRelayURL, signingKey)
		if err != nil {
			return nil, nil, fmt.Errorf("create relay channel: %w", err)
		}
		channels = append(channels, relay)
	}

	if cfg.Execution.PrivateRPCURL != "" {
		privClient, err := ethereum.Dial(ctx, cfg.Execution.PrivateRPCURL, cfg.Ethereum.ChainID, log)
		if err != nil {
			return nil, nil, fmt.Errorf("dial private RPC: %w", err)
		}
		channels = append(channels, mempool.NewRPCChannel("private-rpc", privClient))
	}

	channels = append(channels, mempool.NewRPCChannel("public-mempool", client))

	chain, err := mempool.NewChain(log, channels...)
	if err != nil {
		return nil, nil, fmt.Errorf("create transmission chain: %w", err)
	}

	breaker := executiondomain.NewBreaker(executiondomain.BreakerConfig{
		MaxFailures: cfg.Execution.BreakerMaxFailures,
		Window:      cfg.Execution.BreakerWindow,
		Cooldown:    cfg.Execution.BreakerCooldown,
	})

	coordinator, err := executionapp.NewCoordinator(
		executionapp.CoordinatorConfig{
			SimulationDeadline: cfg.Execution.SimulationDeadline,
			MinProfitRatio:     decimal.NewFromFloat(cfg.Execution.MinProfitRatio),
			SlippageTolerance:  cfg.Arbitrage.SlippageToleranceDecimal(),
			ReceiptTimeout:     cfg.Ethereum.ReceiptTimeout,
		},
		contract,
		chain,
		contract,
		pricer,
		breaker,
		log,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create execution coordinator: %w", err)
	}

	return coordinator, breaker, nil
}
