package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"YapEngine/app/configs"
	"YapEngine/app/logs"
	"YapEngine/app/server"
	"YapEngine/app/storage"
)

func main() {
	configFlag := flag.String("config", "config.yaml", "configuration path")
	ledgerFlag := flag.Bool("ledger", false, "print the ingestion ledger and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	cfg, err := configs.LoadConfig(*configFlag)
	if err != nil {
		logrus.Fatalf("❌ Error loading config: %v", err)
	}
	if err = cfg.Validate(); err != nil {
		logrus.Fatalf("❌ %v", err)
	}

	logCloser, err := logs.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		logrus.Fatalf("❌ Error setting up logs: %v", err)
	}
	defer logCloser.Close()

	if *ledgerFlag {
		if err = printLedger(cfg.Ledger); err != nil {
			logrus.Fatalf("❌ %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := cfg.BuildPipeline(ctx)
	if err != nil {
		logrus.Fatalf("❌ Error building pipeline: %v", err)
	}
	defer comps.Close()

	api := server.New(comps.Pipeline, server.Options{
		MaxUploadBytes:   cfg.Server.MaxUploadBytes,
		RequireSession:   cfg.Pipeline.RequireSession,
		DefaultNamespace: cfg.Pipeline.DefaultNamespace,
		IncludeSource:    cfg.Pipeline.IncludeSource,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go func() {
		logrus.Infof("🚀 Yap-Engine listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("❌ Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	stop()
	logrus.Info("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("❌ Graceful shutdown failed: %v", err)
	}
}

func printLedger(cfg configs.LedgerConfig) error {
	ledger, err := cfg.BuildLedger()
	if err != nil {
		return err
	}
	if ledger == nil {
		return errors.New("ledger is disabled")
	}
	defer ledger.Close()

	entries, err := ledger.ListAll(context.Background())
	if err != nil {
		return fmt.Errorf("list ledger: %w", err)
	}
	fmt.Fprint(os.Stdout, storage.DocumentTree(entries))
	return nil
}
