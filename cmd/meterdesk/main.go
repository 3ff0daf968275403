package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/meterdesk/internal/config"
	"github.com/JaimeStill/meterdesk/internal/infrastructure"
)

func main() {
	selectPath := flag.String("select", "", "image file to select at startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	logger := infrastructure.NewLogger(cfg.Debug)
	logger.Info(
		"meterdesk starting",
		"version", cfg.Version,
		"addr", cfg.Server.Addr(),
		"env", cfg.Env(),
		"backend", cfg.Backend.BaseURL,
	)

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatal("server init failed: ", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatal("server start failed: ", err)
	}

	if *selectPath != "" {
		if err := srv.Select(*selectPath); err != nil {
			logger.Warn("startup selection rejected", "path", *selectPath, "error", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	if err := srv.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("meterdesk stopped")
}
