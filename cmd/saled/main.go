package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"salechain/config"
	"salechain/core/genesis"
	"salechain/crypto"
	"salechain/native/crowdsale"
	"salechain/observability"
	"salechain/observability/logging"
	"salechain/rpc"
	"salechain/state"
	"salechain/storage"
)

const genesisAppliedKey = "genesis/applied"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SALED_ENV"))
	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.LogEnv
	}
	logger := logging.Setup("saled", env, cfg.LogFile)

	params, err := cfg.Validate()
	if err != nil {
		logger.Error("Invalid sale configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	ledger := state.NewLedger(db, params.TokenVault)
	if err := applyGenesisOnce(db, ledger, cfg.GenesisFile, logger); err != nil {
		logger.Error("Failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	// A restart reconstructs the window without the past-opening check; only
	// a fresh sale validates its opening time against the clock.
	sale, hasSale := ledger.SaleGet()
	var window crowdsale.Window
	if hasSale {
		window, err = crowdsale.RestoreWindow(params.OpeningTime, params.ClosingTime)
	} else {
		window, err = crowdsale.NewWindow(params.OpeningTime, params.ClosingTime, time.Now().Unix())
	}
	if err != nil {
		logger.Error("Invalid sale window", slog.Any("error", err))
		os.Exit(1)
	}

	if !hasSale {
		initial := &crowdsale.SaleState{
			Owner:           params.Owner,
			Wallet:          params.Wallet,
			Rate:            params.Rate,
			BonusMultiplier: params.BonusMultiplier,
			Goal:            params.Goal,
		}
		if err := ledger.SalePut(initial.Clone()); err != nil {
			logger.Error("Failed to seed sale state", slog.Any("error", err))
			os.Exit(1)
		}
	}

	engine, err := crowdsale.NewEngine(ledger, ledger, window, params.Wallet)
	if err != nil {
		logger.Error("Failed to restore sale engine", slog.Any("error", err))
		os.Exit(1)
	}
	engine.SetEmitter(observability.NewEventLogger(logger))

	if hasSale && sale.TokenConfigured {
		engine.BindToken(state.NewTokenFacade(ledger))
	} else {
		if err := engine.SetupTokenVault(params.Owner, state.NewTokenFacade(ledger), params.TokenVault); err != nil {
			logger.Error("Failed to bind token vault", slog.Any("error", err))
			os.Exit(1)
		}
	}

	server := rpc.NewServer(engine, ledger, cfg.RPCAuthToken, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("RPC listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("owner", crypto.NewAddress(params.Owner).String()),
			slog.Int64("openingTime", params.OpeningTime),
			slog.Int64("closingTime", params.ClosingTime),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", slog.Any("error", err))
	}
	logger.Info("saled stopped")
}

// applyGenesisOnce seeds the ledger from the genesis document on first boot.
// A marker key keeps restarts from re-applying allocations.
func applyGenesisOnce(db storage.Database, ledger *state.Ledger, path string, logger *slog.Logger) error {
	applied, err := db.Has([]byte(genesisAppliedKey))
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	if strings.TrimSpace(path) == "" {
		logger.Warn("No genesis file configured; starting with an empty ledger")
		return db.Put([]byte(genesisAppliedKey), []byte("1"))
	}
	spec, err := genesis.Load(path)
	if err != nil {
		return err
	}
	if err := spec.Apply(ledger); err != nil {
		return err
	}
	logger.Info("Genesis applied", slog.String("path", path))
	return db.Put([]byte(genesisAppliedKey), []byte("1"))
}
