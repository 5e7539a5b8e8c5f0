package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Clamepending/videomemory-sub000/internal/actions"
	"github.com/Clamepending/videomemory-sub000/internal/api"
	"github.com/Clamepending/videomemory-sub000/internal/config"
	"github.com/Clamepending/videomemory-sub000/internal/data"
	"github.com/Clamepending/videomemory-sub000/internal/devices"
	"github.com/Clamepending/videomemory-sub000/internal/events"
	"github.com/Clamepending/videomemory-sub000/internal/ingest"
	"github.com/Clamepending/videomemory-sub000/internal/platform/paths"
	"github.com/Clamepending/videomemory-sub000/internal/provider"
	"github.com/Clamepending/videomemory-sub000/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config (default: <data-root>/config/default.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("[main] %v", err)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	envPath := paths.ResolveEnvPath()
	if err := config.LoadEnvFile(envPath); err != nil {
		log.Printf("[main] loading %s: %v", envPath, err)
	}

	cfg, err := config.Load(paths.ResolveConfigPath(configPath))
	if err != nil {
		return err
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = paths.ResolveDBPath()
	}
	db, err := data.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Printf("[main] store ready at %s", dbPath)

	settings := data.SettingModel{DB: db}
	if err := settings.LoadToEnv(ctx); err != nil {
		log.Printf("[main] exporting settings to env: %v", err)
	}

	iom := devices.NewIOManager(devices.NewDetector(), data.NetworkCameraModel{DB: db})
	if err := iom.Load(ctx); err != nil {
		return err
	}
	iom.Refresh(ctx)
	log.Printf("[main] %d devices available", len(iom.List(ctx, true)))

	dispatcher := actions.NewDispatcher(nil)
	mgr := tasks.NewManager(data.TaskModel{DB: db}, iom, provider.NewFactory(), dispatcher, nil)

	bus := events.NewBus()
	wireDetectionSinks(ctx, cfg, mgr, bus)

	if err := mgr.Startup(ctx); err != nil {
		return err
	}
	defer mgr.Shutdown()

	// Settings edited through the API land in the env directly; the watcher
	// covers users editing the dotenv file by hand.
	config.WatchEnvFile(ctx, envPath, func() {
		res := mgr.ReloadModelProvider(ctx, "")
		if res.Error != "" {
			log.Printf("[main] provider reload after env change failed: %s", res.Error)
		}
	})

	srv := api.NewServer(mgr, iom, settings, data.SessionModel{DB: db}, bus)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Printf("[main] http listening on %s", cfg.HTTPAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && cfg.MetricsAddr != cfg.HTTPAddr {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Printf("[main] metrics listening on %s", cfg.MetricsAddr)
			errCh <- metricsServer.ListenAndServe()
		}()
	}

	select {
	case <-ctx.Done():
		log.Printf("[main] shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] http shutdown: %v", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[main] metrics shutdown: %v", err)
		}
	}
	return nil
}

// wireDetectionSinks fans new observation notes out to the in-process bus
// and, when configured, NATS and the Redis latest-detection cache. All
// sinks are best-effort.
func wireDetectionSinks(ctx context.Context, cfg config.Config, mgr *tasks.Manager, bus *events.Bus) {
	var notifier *events.NATSNotifier
	if cfg.NATSEnabled {
		conn, err := nats.Connect(cfg.NATSURL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			log.Printf("[main] nats connect to %s failed: %v", cfg.NATSURL, err)
		} else {
			dedup := events.NewDedup(1024, time.Minute)
			notifier = events.NewNATSNotifier(conn, cfg.NATSSubject, dedup)
			log.Printf("[main] publishing detections to nats %s", cfg.NATSURL)
		}
	}

	var cache *events.DetectionCache
	if cfg.RedisEnabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache = events.NewDetectionCache(client)
		log.Printf("[main] caching latest detections in redis %s", cfg.RedisAddr)
	}

	mgr.AddDetectionHook(func(t *ingest.Task, note data.NoteEntry) {
		evt := events.DetectionEvent{
			TaskID:    t.ID,
			IOID:      t.IOID,
			TaskDesc:  t.Desc(),
			Note:      note.Content,
			Done:      t.Done(),
			Timestamp: note.Timestamp,
		}
		bus.Publish(evt)
		if notifier != nil {
			notifier.Publish(evt)
		}
		if cache != nil {
			if err := cache.Save(ctx, evt); err != nil {
				log.Printf("[main] caching detection: %v", err)
			}
		}
	})
}
