package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/kskby/dpd/internal/config"
	"github.com/kskby/dpd/internal/store"
	"github.com/kskby/dpd/internal/telemetry"
	"github.com/kskby/dpd/pkg/dpd/api"
	"github.com/kskby/dpd/pkg/dpd/calc"
	dpdsync "github.com/kskby/dpd/pkg/dpd/sync"
)

// app bundles the wired components shared by the commands.
type app struct {
	cfg          *config.Config
	logger       *otelzap.Logger
	store        *store.Store
	orchestrator *dpdsync.Orchestrator
	calculator   *calc.Calculator
	converter    calc.Converter
	normalizer   *dpdsync.Normalizer

	tracerShutdown func(context.Context) error
}

func initApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Version = version

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tracerShutdown := func(context.Context) error { return nil }
	if cfg.OTELEnabled {
		_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer", zap.Error(err))
		} else {
			tracerShutdown = shutdown
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	geography, calcClient := initClients(cfg)
	normalizer := initNormalizer(cfg)

	budget, err := initBudget(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	if err := seedCountries(ctx, st, dpdsync.SettingCountries, cfg.SyncCountries); err != nil {
		st.Close()
		return nil, err
	}
	if err := seedCountries(ctx, st, dpdsync.SettingTerminalCountries, cfg.TerminalCountries); err != nil {
		st.Close()
		return nil, err
	}

	feed := api.NewFeed(cfg.CitiesFeedURL, cfg.DataDir)
	orchestrator := dpdsync.NewOrchestrator(feed, geography, st, st, st, normalizer, budget, logger)

	converter := calc.RateTable(cfg.CurrencyRates)
	calculator := calc.NewCalculator(calcClient, converter, calc.Config{
		DisabledTariffs:        cfg.DisabledTariffs,
		DefaultTariff:          cfg.DefaultTariff,
		DefaultTariffThreshold: cfg.DefaultTariffThreshold,
		DefaultPrice:           cfg.DefaultPrice,
		CalculateByParcels:     cfg.CalculateByParcels,
		CommissionEnabled:      cfg.CommissionEnabled,
		CommissionPercent:      cfg.CommissionPercent,
		CommissionMinSum:       cfg.CommissionMinSum,
		MarkupType:             cfg.MarkupType,
		MarkupValue:            cfg.MarkupValue,
		ClientCurrency:         cfg.ClientCurrency,
	})

	return &app{
		cfg:            cfg,
		logger:         logger,
		store:          st,
		orchestrator:   orchestrator,
		calculator:     calculator,
		converter:      converter,
		normalizer:     normalizer,
		tracerShutdown: tracerShutdown,
	}, nil
}

func initClients(cfg *config.Config) (api.GeographyClient, api.CalculatorClient) {
	if cfg.DPDUseMock {
		mock := api.NewMockClient()
		return mock, mock
	}

	soap := api.NewSOAPClient(api.SOAPClientConfig{
		GeographyURL:  cfg.DPDGeographyURL,
		CalculatorURL: cfg.DPDCalculatorURL,
		ClientNumber:  cfg.DPDClientNumber,
		ClientKey:     cfg.DPDClientKey,
	})
	return soap, soap
}

func initNormalizer(cfg *config.Config) *dpdsync.Normalizer {
	var opts []dpdsync.NormalizerOption
	if cfg.RegionCodesDir != "" {
		opts = append(opts, dpdsync.WithRegionCodes(dpdsync.RegionCodesFromDir(cfg.RegionCodesDir)))
	}
	return dpdsync.NewNormalizer(opts...)
}

// seedCountries copies a configured country list into the settings store
// the first time the service runs. Once set, the stored value wins.
func seedCountries(ctx context.Context, st *store.Store, key string, countries []string) error {
	if len(countries) == 0 {
		return nil
	}

	current, err := st.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if current != "" {
		return nil
	}
	return st.Set(ctx, key, strings.Join(countries, ","))
}

func initBudget(cfg *config.Config) (dpdsync.BudgetGuard, error) {
	var max time.Duration
	if cfg.SyncBudget != "" {
		parsed, err := time.ParseDuration(cfg.SyncBudget)
		if err != nil {
			return nil, fmt.Errorf("parse SYNC_BUDGET: %w", err)
		}
		max = parsed
	}
	return dpdsync.Budget{Max: max}, nil
}

// Close releases the app's resources.
func (a *app) Close(ctx context.Context) {
	if a.tracerShutdown != nil {
		a.tracerShutdown(ctx)
	}
	if a.store != nil {
		a.store.Close()
	}
	a.logger.Sync()
}
