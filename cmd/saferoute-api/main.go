// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"saferoute/internal/config"
	httptransport "saferoute/internal/http"
	"saferoute/internal/infra"
	"saferoute/internal/livestate"
	"saferoute/internal/maps"
	"saferoute/internal/modules/navigation"
	"saferoute/internal/modules/reports"
	"saferoute/internal/modules/routes"
	"saferoute/internal/speech"
)

const (
	pushQueueSize = 256
	pushTimeout   = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := infra.NewLogger(cfg.Log.Mode)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("saferoute-api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	mapsClient, err := maps.NewClient(cfg.Maps.APIKey)
	if err != nil {
		return err
	}
	placesSvc := maps.NewPlacesService(mapsClient)
	provider := maps.NewRouteService(mapsClient, cfg.Maps.Timeout)

	var selections routes.Store
	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		selections = routes.NewRedisStore(rdb, cfg.Routes.SelectionTTL)
	} else {
		logger.Warn("redis not configured; route selections kept in memory")
		selections = routes.NewMemoryStore(cfg.Routes.SelectionTTL)
	}
	routesSvc := routes.NewService(provider, selections, nil, logger)

	var reportsSvc *reports.Service
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		reportsSvc = reports.NewService(reports.NewStore(pool))
	} else {
		logger.Warn("database not configured; activity reports disabled")
	}

	var (
		verifier infra.TokenVerifier
		pusher   *speech.Pusher
		mirror   *livestate.Mirror
	)
	if cfg.Firebase.ProjectID != "" {
		app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
		if err != nil {
			return err
		}
		if cfg.Firebase.RequireAuth {
			if verifier, err = infra.NewFirebaseVerifier(ctx, app); err != nil {
				return err
			}
		}
		fcm, err := infra.NewMessaging(ctx, app)
		if err != nil {
			return err
		}
		pusher = speech.NewPusher(fcm, logger, pushQueueSize, pushTimeout)
		defer pusher.Close()

		if cfg.Firebase.DatabaseURL != "" {
			rtdb, err := infra.NewRealtimeDB(ctx, app)
			if err != nil {
				return err
			}
			mirror = livestate.NewMirror(livestate.NewRTDBWriter(rtdb), logger)
			defer mirror.Close()
		}
	}

	nav := cfg.Navigation
	managerCfg := navigation.ManagerConfig{
		Tracker: navigation.TrackerOptions{
			JitterMeters:        nav.JitterMeters,
			OnRouteMeters:       nav.OnRouteMeters,
			HeadingToleranceDeg: nav.HeadingToleranceDeg,
			WalkingSpeedMph:     nav.WalkingSpeedMph,
		},
		Position: navigation.PositionOptions{
			Accuracy:    navigation.AccuracyBestForNavigation,
			MinInterval: nav.PositionInterval,
			MinDistance: nav.PositionDistance,
		},
		Heading:  navigation.HeadingOptions{MinInterval: nav.HeadingInterval},
		Voice:    navigation.DefaultVoiceOptions(),
		Speakers: speech.Speakers(pusher, logger),
		Logger:   logger,
	}
	if mirror != nil {
		managerCfg.OnUpdate = mirror.Publish
	}
	sessions := navigation.NewManager(managerCfg)
	defer sessions.Close()

	router := httptransport.NewRouter(httptransport.Deps{
		Places:   placesSvc,
		Routes:   routesSvc,
		Sessions: sessions,
		Reports:  reportsSvc,
		Verifier: verifier,
		Logger:   logger,
	})
	return httptransport.NewServer(cfg.HTTP.Addr, router, logger).Run(ctx)
}
