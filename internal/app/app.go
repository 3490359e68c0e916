package app

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stablevault/internal/adapters"
	"stablevault/internal/adapters/cache"
	"stablevault/internal/adapters/httpclient"
	"stablevault/internal/adapters/ledger"
	"stablevault/internal/adapters/postgres"
	"stablevault/internal/api"
	"stablevault/internal/config"
	"stablevault/internal/domain"
	"stablevault/internal/liquidation"
	liquidationhandler "stablevault/internal/liquidation/handler"
	"stablevault/internal/oracle"
	oraclehandler "stablevault/internal/oracle/handler"
	"stablevault/internal/platform/db"
	httpserver "stablevault/internal/platform/http"
	"stablevault/internal/platform/locks"
	"stablevault/internal/risk"
	"stablevault/internal/vault"
	vaulthandler "stablevault/internal/vault/handler"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultCoinGeckoURL = "https://api.coingecko.com"
	defaultBinanceURL   = "https://api.binance.com"
	defaultKrakenURL    = "https://api.kraken.com"
	defaultBinanceWSURL = "wss://stream.binance.com:9443"
)

// Run wires the application components, starts HTTP server and scanner
func Run() error {
	appCfg, err := config.Init()
	if err != nil {
		return err
	}
	setupLogging(appCfg.Logging)
	logrus.Info("✅ Config initialization successful")

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bounded context for startup operations (DB connect, initial reads)
	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// DB pool
	pool, err := db.CreatePoolAndPing(startupCtx, appCfg.DbServer)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to db")
		return err
	}
	defer pool.Close()
	logrus.Info("✅ Postgres connection successful")

	// Risk configuration per collateral asset
	assetParams, err := buildAssetParams(appCfg.Assets)
	if err != nil {
		logrus.WithError(err).Error("Invalid asset configuration")
		return err
	}
	assetList := make([]domain.CollateralAsset, 0, len(assetParams))
	for asset := range assetParams {
		assetList = append(assetList, asset)
	}
	logrus.Infof("✅ %d collateral assets configured", len(assetList))

	// Base HTTP client (configurable timeout)
	httpTimeout := time.Duration(appCfg.HTTPClient.TimeoutSeconds) * time.Second
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	baseHTTPClient := &http.Client{Timeout: httpTimeout}

	// Price sources
	sources := buildPriceSources(ctx, appCfg.Oracle, assetList, baseHTTPClient)
	if len(sources) < appCfg.Oracle.MinSources {
		return fmt.Errorf("only %d price sources configured, need at least %d", len(sources), appCfg.Oracle.MinSources)
	}

	// Oracle with memoizing cache in front of the risk engine
	priceOracle := oracle.NewService(sources, assetList, oracle.Options{
		MaxQuoteAge:      time.Duration(appCfg.Oracle.MaxQuoteAgeSeconds) * time.Second,
		MaxDeviation:     appCfg.Oracle.MaxDeviation,
		MinSources:       appCfg.Oracle.MinSources,
		PerSourceTimeout: time.Duration(appCfg.Oracle.PerSourceTimeoutSeconds) * time.Second,
	})
	priceCache, err := cache.NewPriceCache(64, time.Duration(appCfg.Oracle.CacheTTLSeconds)*time.Second)
	if err != nil {
		return err
	}
	defer priceCache.Close()
	cachedOracle := oracle.NewCachedService(priceOracle, priceCache)

	riskEngine := risk.NewEngine(cachedOracle, assetParams)

	// External ledger client
	if appCfg.Ledger.BaseURL == "" {
		return fmt.Errorf("ledger base url is required")
	}
	if appCfg.Ledger.ProtocolAccount == "" {
		return fmt.Errorf("ledger protocol account is required")
	}
	ledgerClient := ledger.NewClient(baseHTTPClient, strings.TrimSuffix(appCfg.Ledger.BaseURL, "/"))

	// Repositories
	positionRepo := postgres.NewPositionRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	settlementRepo := postgres.NewSettlementRepository(pool)

	// One lock table shared by the vault service and the liquidation engine,
	// so a deposit and a liquidation on the same position can never overlap.
	positionLocks := locks.New()

	vaultService := vault.NewService(positionRepo, ledgerClient, riskEngine, positionLocks)

	liquidationCfg, err := buildLiquidationConfig(appCfg.Liquidation)
	if err != nil {
		logrus.WithError(err).Error("Invalid liquidation configuration")
		return err
	}
	configStore := liquidation.NewConfigStore(liquidationCfg, appCfg.Admins)
	liquidationEngine := liquidation.NewEngine(
		configStore, positionRepo, eventRepo, settlementRepo,
		ledgerClient, riskEngine, positionLocks, appCfg.Ledger.ProtocolAccount,
	)

	// Scanner keeps the liquidatable-positions gauge fresh
	scanner := liquidation.NewScanner(liquidationEngine, time.Duration(appCfg.Liquidation.ScanIntervalSeconds)*time.Second)
	defer func() {
		if shutDownErr := scanner.Shutdown(); shutDownErr != nil {
			logrus.Errorf("Scanner shutdown error: %v", shutDownErr)
		}
	}()
	if startErr := scanner.Start(ctx); startErr != nil {
		logrus.WithError(startErr).Error("Failed to start liquidation scanner")
		return startErr
	}
	logrus.Info("✅ Liquidation scanner activation successful")

	// Handlers and router
	positionHandler := vaulthandler.NewPositionHandler(vaultService)
	liquidationHandler := liquidationhandler.NewLiquidationHandler(liquidationEngine)
	priceHandler := oraclehandler.NewPriceHandler(priceOracle)
	router := api.NewRouter(positionHandler, liquidationHandler, priceHandler)

	logrus.Info("Starting http server")
	// Block until context is canceled, then perform graceful shutdown.
	if serverErr := httpserver.Start(ctx, appCfg.HTTPServer, router); serverErr != nil {
		// Cancel the root context to stop the scanner and other in-flight work
		stop()
		logrus.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}

func setupLogging(cfg config.Logging) {
	out := io.Writer(os.Stdout)
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	logrus.SetOutput(out)

	if parsedLvl, parseErr := logrus.ParseLevel(cfg.Level); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(parsedLvl)
	}
}

func buildAssetParams(assets map[string]config.Asset) (map[domain.CollateralAsset]domain.AssetParams, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("no collateral assets configured")
	}

	params := make(map[domain.CollateralAsset]domain.AssetParams, len(assets))
	for code, a := range assets {
		asset := domain.CollateralAsset(strings.ToUpper(code))
		if !asset.Valid() {
			return nil, fmt.Errorf("unknown collateral asset %q", code)
		}
		minDeposit, ok := new(big.Int).SetString(a.MinDeposit, 10)
		if !ok || minDeposit.Sign() < 0 {
			return nil, fmt.Errorf("invalid min_deposit %q for asset %q", a.MinDeposit, code)
		}
		if a.LTVBps == 0 || a.LTVBps > 10_000 {
			return nil, fmt.Errorf("ltv_bps for asset %q must be in (0, 10000]", code)
		}
		params[asset] = domain.AssetParams{
			Decimals:   a.Decimals,
			MinDeposit: minDeposit,
			LTVBps:     a.LTVBps,
		}
	}
	return params, nil
}

func buildPriceSources(ctx context.Context, cfg config.Oracle, assets []domain.CollateralAsset, client *http.Client) []adapters.PriceSource {
	coingeckoURL := cfg.CoinGeckoURL
	if coingeckoURL == "" {
		coingeckoURL = defaultCoinGeckoURL
	}
	binanceURL := cfg.BinanceURL
	if binanceURL == "" {
		binanceURL = defaultBinanceURL
	}
	krakenURL := cfg.KrakenURL
	if krakenURL == "" {
		krakenURL = defaultKrakenURL
	}

	sources := []adapters.PriceSource{
		httpclient.NewCoinGeckoClient(client, strings.TrimSuffix(coingeckoURL, "/")),
		httpclient.NewBinanceClient(client, strings.TrimSuffix(binanceURL, "/")),
		httpclient.NewKrakenClient(client, strings.TrimSuffix(krakenURL, "/")),
	}

	if cfg.EnableStream {
		wsURL := cfg.BinanceWSURL
		if wsURL == "" {
			wsURL = defaultBinanceWSURL
		}
		symbols := make([]string, 0, len(assets))
		for _, a := range assets {
			symbols = append(symbols, a.Symbol())
		}
		stream := httpclient.NewBinanceStreamSource(strings.TrimSuffix(wsURL, "/"), symbols)
		go stream.Run(ctx)
		sources = append(sources, stream)
	}
	return sources
}

func buildLiquidationConfig(cfg config.Liquidation) (domain.LiquidationConfig, error) {
	minAmount, ok := new(big.Int).SetString(cfg.MinAmount, 10)
	if !ok || minAmount.Sign() < 0 {
		return domain.LiquidationConfig{}, fmt.Errorf("invalid liquidation min_amount %q", cfg.MinAmount)
	}
	maxAmount, ok := new(big.Int).SetString(cfg.MaxAmount, 10)
	if !ok || maxAmount.Cmp(minAmount) < 0 {
		return domain.LiquidationConfig{}, fmt.Errorf("invalid liquidation max_amount %q", cfg.MaxAmount)
	}
	if cfg.BonusBps > 10_000 {
		return domain.LiquidationConfig{}, fmt.Errorf("liquidation bonus_bps must not exceed 10000")
	}
	return domain.LiquidationConfig{
		BonusBps:    cfg.BonusBps,
		MinAmount:   minAmount,
		MaxAmount:   maxAmount,
		Liquidators: cfg.Liquidators,
	}, nil
}
