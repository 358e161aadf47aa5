package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/auth"
	"antigravity2api-go/internal/cache"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/discovery"
	"antigravity2api-go/internal/events"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/images"
	"antigravity2api-go/internal/logging"
	"antigravity2api-go/internal/monitoring/tracing"
	"antigravity2api-go/internal/oauth"
	"antigravity2api-go/internal/pressure"
	"antigravity2api-go/internal/relay"
	"antigravity2api-go/internal/server"
	"antigravity2api-go/internal/storage"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream/antigravity"
)

// app owns every long-lived service. Construction happens here in dependency
// order and Close tears down in reverse: pool before store, tracer last.
type app struct {
	addr   string
	engine *gin.Engine

	cfg      *config.Manager
	monitor  *pressure.Monitor
	stores   *cache.Stores
	store    storage.Store
	pool     *credential.Pool
	relay    *relay.Dispatcher
	streams  *common.Streams
	traceOff func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Manager) (*app, error) {
	conf := cfg.Get()

	traceOff, err := tracing.Init(ctx, conf.Monitoring)
	if err != nil {
		log.WithError(err).Warn("tracing unavailable, continuing without it")
	}

	hub := events.NewHub()
	cfg.SetEventPublisher(hub)

	monitor := pressure.NewMonitor(hub, conf.Server.MemoryThreshold)
	monitor.Start(ctx)

	stores := cache.NewStores(hub, conf.Cache.ModelListTTLDuration())
	stores.Start(ctx)

	store, err := storage.Open(ctx, conf)
	if err != nil {
		stores.Stop()
		monitor.Stop()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	oauthMgr := oauth.NewManager(conf.API.OAuthClientID, conf.API.OAuthClientSecret,
		oauth.WithUserAgent(conf.API.UserAgent))

	pool, err := credential.NewPool(credential.Options{
		Store:  store,
		OAuth:  oauthMgr,
		Hub:    hub,
		Config: cfg,
	})
	if err == nil {
		err = pool.Start(ctx)
	}
	if err != nil {
		_ = store.Close()
		stores.Stop()
		monitor.Stop()
		return nil, fmt.Errorf("start account pool: %w", err)
	}

	imgStore, err := images.NewStore(conf.Other.DataDir, conf.Secrets.ImageBaseURL)
	if err != nil {
		// 媒体落盘失败只降级为内联返回，不阻止启动。
		log.WithError(err).Warn("image store unavailable, generated media stays inline")
		imgStore = nil
	}

	creds, err := auth.NewCredentials(conf.Secrets.AdminUsername, conf.Secrets.AdminPassword)
	if err != nil {
		_ = pool.Close()
		_ = store.Close()
		stores.Stop()
		monitor.Stop()
		return nil, fmt.Errorf("admin credentials: %w", err)
	}

	client := antigravity.New(cfg)
	disp := relay.New(cfg, client, stores, hub)
	streams := common.NewStreams(hub)

	deps := server.Dependencies{
		Pool:     pool,
		Trans:    translator.New(cfg, stores),
		Relay:    disp,
		Streams:  streams,
		Recorder: common.NewRecorder(store),
		Catalog:  discovery.NewModelService(client, pool, stores),
		Store:    store,
		Tokens:   auth.NewTokens(conf.Secrets.JWTSecret),
		Creds:    creds,
		Images:   imgStore,
		Tail:     logging.GetTail(),
	}

	return &app{
		addr:     net.JoinHostPort(conf.Server.Host, strconv.Itoa(conf.Server.Port)),
		engine:   server.Build(cfg, deps),
		cfg:      cfg,
		monitor:  monitor,
		stores:   stores,
		store:    store,
		pool:     pool,
		relay:    disp,
		streams:  streams,
		traceOff: traceOff,
	}, nil
}

// Close releases services in reverse construction order.
func (a *app) Close() {
	if err := a.pool.Close(); err != nil {
		log.WithError(err).Warn("account pool close")
	}
	a.relay.Close()
	a.streams.Close()
	a.stores.Stop()
	a.monitor.Stop()
	if err := a.store.Close(); err != nil {
		log.WithError(err).Warn("storage close")
	}
	if a.traceOff != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.traceOff(ctx); err != nil {
			log.WithError(err).Warn("tracer shutdown")
		}
	}
	a.cfg.Close()
}
