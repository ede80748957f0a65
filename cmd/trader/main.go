package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chikanerick/asterdex-trading-bot/internal/allocator"
	"github.com/chikanerick/asterdex-trading-bot/internal/config"
	"github.com/chikanerick/asterdex-trading-bot/internal/cycle"
	"github.com/chikanerick/asterdex-trading-bot/internal/exchange"
	"github.com/chikanerick/asterdex-trading-bot/internal/executor"
	"github.com/chikanerick/asterdex-trading-bot/internal/logger"
	"github.com/chikanerick/asterdex-trading-bot/internal/market"
	"github.com/chikanerick/asterdex-trading-bot/internal/stats"
	"github.com/chikanerick/asterdex-trading-bot/internal/version"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

// tradeAction wires configuration, exchange clients and the cycle
// orchestrator together, then runs cycles until interrupted.
func tradeAction(ctx context.Context, cmd *cli.Command) error {
	// A .env file is optional; real deployments may set everything in the
	// environment.
	_ = godotenv.Load()

	settings, err := config.LoadSettings(cmd.String("settings"))
	if err != nil {
		return err
	}

	accounts, err := config.LoadAccounts(cmd.String("keys"), cmd.String("proxies"))
	if err != nil {
		return err
	}

	if len(accounts) < 3 {
		return errors.Newf(errors.ErrCodeNotEnoughAccounts, "need at least 3 accounts, got %d", len(accounts))
	}

	level, err := zapcore.ParseLevel(settings.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	appLogger, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	opts := exchange.Options{
		BaseURL:    settings.BaseURL,
		RecvWindow: settings.RecvWindow,
	}

	public := exchange.NewPublicClient(opts)
	registry := market.NewRegistry(public, appLogger)

	for _, symbol := range settings.Symbols {
		if err := registry.Load(ctx, symbol); err != nil {
			appLogger.Warn("symbol filters not loaded, symbol will be skipped",
				zap.String("symbol", symbol),
				zap.Error(err))
		}
	}

	accountClients := make([]cycle.AccountClient, 0, len(accounts))
	for _, account := range accounts {
		client, err := exchange.NewClient(account, opts)
		if err != nil {
			return err
		}

		accountClients = append(accountClients, cycle.AccountClient{Account: account, Client: client})
	}

	// Leverage setup is best effort: an account may already be at the
	// target leverage or hold a position that blocks the change.
	for _, ac := range accountClients {
		for _, symbol := range settings.Symbols {
			if err := exchange.SetLeverage(ctx, ac.Client, symbol, settings.Leverage); err != nil {
				appLogger.Warn("leverage not set",
					zap.String("account", ac.Account.Name),
					zap.String("symbol", symbol),
					zap.Int("leverage", settings.Leverage),
					zap.Error(err))
			}
		}
	}

	sink, err := stats.Open(settings.StatsPath)
	if err != nil {
		return err
	}
	defer sink.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	exec := executor.NewExecutor(registry, sink, appLogger, settings.MaxAttempts, nil)

	orchestrator, err := cycle.NewOrchestrator(
		accountClients, registry, market.NewOracle(public),
		allocator.NewAllocator(rng), exec, settings, appLogger, rng, nil)
	if err != nil {
		return err
	}

	appLogger.Info("trader started",
		zap.Int("accounts", len(accountClients)),
		zap.Strings("symbols", settings.Symbols),
		zap.String("baseURL", settings.BaseURL))

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-runCtx.Done():
			appLogger.Info("shutdown requested, stopping between cycles")

			return nil
		default:
		}

		symbol := settings.Symbols[rng.Intn(len(settings.Symbols))]

		// A running cycle is never interrupted mid-leg; cancellation only
		// takes effect once the cycle has fully unwound.
		if err := orchestrator.RunCycle(context.WithoutCancel(runCtx), symbol); err != nil {
			appLogger.Error("cycle did not start",
				zap.String("symbol", symbol),
				zap.Error(err))
			time.Sleep(5 * time.Second)
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "trader",
		Usage:   "Run hedged volume cycles across multiple accounts",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "settings",
				Aliases: []string{"s"},
				Usage:   "Path to the YAML settings file",
				Value:   "settings.yaml",
			},
			&cli.StringFlag{
				Name:    "keys",
				Aliases: []string{"k"},
				Usage:   "Path to the JSON account credentials file",
				Value:   "keys.json",
			},
			&cli.StringFlag{
				Name:    "proxies",
				Aliases: []string{"p"},
				Usage:   "Path to the per-account proxy list",
				Value:   "proxies.txt",
			},
		},
		Action: tradeAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
