package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"lemonade/internal/app"
	"lemonade/internal/config"
	"lemonade/internal/logger"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("LEMONADE_CONFIG"), "path to the storefront YAML config")
	flag.Parse()

	cfg, err := config.LoadStorefront(*configPath)
	log := logger.Must(cfg.Env, cfg.LogLevel)
	defer log.Sync()
	if err != nil {
		log.Fatal("❌ invalid storefront config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shell := app.NewShell(os.Stdin, os.Stdout)
	a, err := app.New(ctx, cfg, log, shell)
	if a == nil {
		log.Fatal("❌ storefront not started", zap.Error(err))
	}
	defer a.Close()

	log.Info("🍋 storefront ready", zap.Strings("endpoints", a.Backend.BaseURLs()))
	if err := shell.Run(ctx, a); err != nil {
		log.Error("❌ input error", zap.Error(err))
	}
}
