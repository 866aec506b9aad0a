package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ridewave/internal/config"
	"ridewave/internal/gateway"
	httptransport "ridewave/internal/http"
	"ridewave/internal/infra"
	"ridewave/internal/maps"
	"ridewave/internal/metrics"
	"ridewave/internal/modules/dispatch"
	"ridewave/internal/modules/notify"
	"ridewave/internal/modules/presence"
	"ridewave/internal/modules/ride"
	"ridewave/internal/modules/user"
	"ridewave/internal/modules/zone"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and websocket gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := infra.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	var users user.Directory = user.NewStore(dbPool)
	if cfg.Redis.Enabled {
		redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisClient.Close()
		users = user.NewCachedDirectory(users, redisClient, log)
	}

	var app *firebase.App
	if cfg.Auth.Mode == config.AuthFirebase || cfg.Firebase.Push {
		if app, err = infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile); err != nil {
			return err
		}
	}

	verifier, err := newVerifier(ctx, cfg, app)
	if err != nil {
		return err
	}
	push, err := newPushSender(ctx, cfg, app, log)
	if err != nil {
		return err
	}

	var distance ride.DistanceEstimator = ride.StraightLine{}
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		distance = routes
	}
	rides := ride.NewService(ride.NewStore(dbPool), distance, cfg.Pricing.Currency, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	hub := gateway.NewHub(log, m)
	mux := gateway.NewMux(log)
	auth := gateway.NewAuthenticator(verifier, users)
	captains := presence.NewRegistry()
	zones := zone.NewService(hub, captains, cfg.Dispatch.ZoneRadiusKm, log)
	dispatcher := dispatch.NewService(dispatch.Config{
		TickInterval:   cfg.Dispatch.TickInterval,
		MaxRetries:     cfg.Dispatch.MaxRetries,
		PickupRadiusKm: cfg.Dispatch.PickupRadiusKm,
		OfferHold:      cfg.Dispatch.OfferHold,
	}, rides, hub, captains, push, m, log)
	dispatch.NewEvents(hub, captains, zones, rides, dispatcher, m, log).Register(mux)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Rides:   rides,
		Push:    push,
		Auth:    auth,
		Gateway: gateway.NewServer(hub, mux, auth, log),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Log:     log,
	})
	server := httptransport.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ShutdownTimeout, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return dispatcher.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newVerifier(ctx context.Context, cfg config.Config, app *firebase.App) (infra.TokenVerifier, error) {
	if cfg.Auth.Mode == config.AuthFirebase {
		return infra.NewFirebaseVerifier(ctx, app)
	}
	return infra.NewJWTVerifier(cfg.Auth.JWTSecret), nil
}

func newPushSender(ctx context.Context, cfg config.Config, app *firebase.App, log zerolog.Logger) (notify.Sender, error) {
	if !cfg.Firebase.Push {
		return notify.NewLogSender(log), nil
	}
	client, err := infra.NewMessaging(ctx, app)
	if err != nil {
		return nil, err
	}
	return notify.NewFCMSender(client, log), nil
}
