package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config.json / config.yaml (empty searches the working directory)")
	envPath := flag.String("env", ".env", "path to the secrets .env file")
	flag.Parse()

	// 先读 .env，配置加载时才能合并到 Secrets。
	if err := config.LoadDotEnv(*envPath); err != nil {
		log.WithError(err).WithField("path", *envPath).Warn("could not read .env file")
	}

	cfg, err := config.NewManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := logging.Setup(cfg.Get()); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}
	logging.InstallTail()

	result := cfg.Get().Validate()
	for _, w := range result.Warnings {
		log.WithFields(log.Fields{"field": w.Field, "value": w.Value}).Warn(w.Message)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			log.WithFields(log.Fields{"field": e.Field, "value": e.Value}).Error(e.Message)
		}
		log.Fatal("configuration invalid")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}

	srv := &http.Server{Addr: app.addr, Handler: app.engine}
	go func() {
		log.WithField("addr", app.addr).Info("antigravity gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete, closing anyway")
	}

	cancel()
	app.Close()
	log.Info("gateway stopped")
}
