package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tripsync/pkg/config"
	"tripsync/pkg/gateway"
	"tripsync/pkg/logger"
	"tripsync/pkg/neterr"
	"tripsync/pkg/repo"
	"tripsync/pkg/store"
	"tripsync/pkg/syncer"
)

func main() {
	_ = godotenv.Load(".env")
	flags := config.ParseFlags()
	cfg, err := config.Load(flags.Config)
	if err != nil {
		logger.InitWithLevel("")
		logger.Error("config_load_failed", "path", flags.Config, "error", err)
		os.Exit(2)
	}
	logger.InitWithLevel(cfg.Logging.Level)

	dbPath := cfg.Storage.DBPath
	if dbPath == "" || flags.Set["db"] {
		dbPath = flags.DB
	}
	if flags.Set["api"] {
		cfg.API.BaseURL = flags.API
	}
	if cfg.API.BaseURL == "" {
		logger.Error("api_base_url_missing")
		os.Exit(2)
	}

	cacheBytes, err := cfg.CacheBytes()
	if err != nil {
		logger.Error("invalid_cache_size", "error", err)
		os.Exit(2)
	}
	st, err := store.Open(dbPath, store.Options{CacheBytes: cacheBytes})
	if err != nil {
		logger.Error("store_open_failed", "path", dbPath, "error", err)
		os.Exit(2)
	}

	gw := gateway.New(gateway.Options{
		BaseURL: cfg.API.BaseURL,
		WSURL:   cfg.API.WSURL,
		Timeout: cfg.Timeout(),
		Token:   gateway.StaticToken(os.Getenv("TRIPSYNC_TOKEN")),
	})

	trips := repo.NewTrips(st, gw)
	itineraries := repo.NewItineraries(st, gw)
	polls := repo.NewPolls(st, gw)
	chat := repo.NewChat(st, gw)

	sy := syncer.New(
		syncer.Options{
			Interval: cfg.SyncInterval(),
			Cron:     cfg.Sync.Cron,
			RPS:      cfg.Sync.RPS,
			Burst:    cfg.Sync.Burst,
		},
		trips.Refresh,
		syncer.Target{Kind: store.KindTrips, Refresh: trips.Refresh},
		syncer.Target{Kind: store.KindItineraries, Refresh: perTrip(trips, itineraries.Refresh)},
		syncer.Target{Kind: store.KindPolls, Refresh: perTrip(trips, polls.Refresh)},
		syncer.Target{Kind: store.KindMessages, Refresh: perTrip(trips, chat.Refresh)},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		addr := cfg.Metrics.Addr
		if addr == "" {
			addr = "127.0.0.1:9190"
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics_listening", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics_server_failed", "error", err)
			}
		}()
	}

	res := sy.Run(ctx)
	logger.Info("initial_sync_finished", "success", res.Success, "online", sy.IsOnline(ctx))

	cancel, err := sy.Start(ctx)
	if err != nil {
		logger.Error("sync_scheduler_start_failed", "error", err)
		_ = st.Close()
		os.Exit(2)
	}

	<-ctx.Done()
	cancel()
	if err := st.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Info("shutdown_complete")
}

// perTrip fans one refresh out over every cached trip's scope. A
// connection failure anywhere marks the whole kind offline; any other
// failure wins immediately.
func perTrip(trips *repo.Trips, refresh func(context.Context, string) error) func(context.Context) error {
	return func(ctx context.Context) error {
		list, err := trips.Read(ctx, repo.ReadOpts{})
		if err != nil {
			return err
		}
		var offline error
		for _, t := range list {
			if err := refresh(ctx, t.ID); err != nil {
				if neterr.Retryable(err) {
					offline = err
					continue
				}
				return err
			}
		}
		return offline
	}
}
