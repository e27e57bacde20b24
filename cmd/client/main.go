package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fieldledger/fieldledger/internal/adapter"
	"github.com/fieldledger/fieldledger/internal/config"
	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/internal/service"
	"github.com/fieldledger/fieldledger/internal/store"
	"github.com/fieldledger/fieldledger/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("fieldledger-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	remote := adapter.NewHTTPRemoteService(cfg.Adapter)

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	signalState := adapter.NewConnectivitySignal(false)
	prober := adapter.NewProber(remote, signalState, cfg.Sync.ProbeInterval, log)

	engine := service.NewEngine(storages, remote, signalState, cfg.Sync, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prober.Start(ctx)
	engine.Start(ctx)

	unsubscribe := engine.OnSyncComplete(func(report models.SyncReport) {
		log.Info().
			Int("sent", report.Sent).
			Int64("pending", report.Pending).
			Int("errors", len(report.Errors)).
			Msg("sync pass finished")
	})
	defer unsubscribe()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx := context.Background()
	engine.Stop(shutdownCtx)
	prober.Stop()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
