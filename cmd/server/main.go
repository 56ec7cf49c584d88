package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/agent"
	"github.com/Nixie-Tech-LLC/pausetime/internal/config"
	"github.com/Nixie-Tech-LLC/pausetime/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/pausetime/internal/logger"
	"github.com/Nixie-Tech-LLC/pausetime/internal/loop"
	"github.com/Nixie-Tech-LLC/pausetime/internal/metrics"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
	"github.com/Nixie-Tech-LLC/pausetime/internal/player"
	"github.com/Nixie-Tech-LLC/pausetime/internal/poller"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// load configuration
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore := InitStore(cfg)
	defer closeStore()
	storageSystem := InitStorage(cfg)
	channel, closeChannel := InitRemoteChannel(cfg)
	defer closeChannel()

	m := metrics.New()
	pnl := panel.New(time.Now)
	eventLoop := loop.New(0)
	client := poller.NewClient(cfg.BackendURL, cfg.BackendTimeout)

	var (
		local  *player.LocalElement
		remote *player.RemoteElement
	)
	a := agent.New(agent.Deps{
		Runtime: eventLoop,
		Local: func(onStatus func(model.NativeStatus)) player.Element {
			local = player.NewLocalElement(storageSystem, onStatus)
			return local
		},
		Remote: func(onStatus func(model.NativeStatus)) player.Element {
			remote = player.NewRemoteElement(channel, onStatus, time.Now)
			return remote
		},
		Backend: client,
		Store:   store,
		Panel:   pnl,
		Metrics: m,
	}, agent.Timing{
		Location:           cfg.Location,
		EzanDuration:       cfg.EzanDuration,
		AlarmDisplayWindow: cfg.AlarmDisplayWindow,
		StatePoll:          cfg.StatePollInterval,
		PrayerPoll:         cfg.PrayerPollInterval,
		SchedulePoll:       cfg.SchedulePollInterval,
	})
	defer local.Close()
	SubscribeRemoteStatus(channel, remote)

	// the loop outlives the signal context so Stop can still run on it
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = eventLoop.Run(loopCtx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start agent")
	}

	// set up gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(m))
	RegisterRoutes(r, cfg, a, pnl, client, storageSystem, m)

	srv := &http.Server{Addr: cfg.ServerAddress, Handler: r}
	go func() {
		log.Info().Str("addr", cfg.ServerAddress).Str("backend", cfg.BackendURL).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := a.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("agent stop")
	}
	stopLoop()
	<-loopDone
}
