package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/citypulse/trafficd/internal/config"
	"github.com/citypulse/trafficd/internal/engine"
	"github.com/citypulse/trafficd/internal/events"
	"github.com/citypulse/trafficd/internal/geo"
	"github.com/citypulse/trafficd/internal/hub"
	"github.com/citypulse/trafficd/internal/ingest"
	"github.com/citypulse/trafficd/internal/server"
	"github.com/citypulse/trafficd/internal/store"
	"github.com/citypulse/trafficd/pkg/messaging"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.New()
	eng := engine.New(events.SinkFunc(h.Publish))

	// Optional NATS mirror: every engine event also lands on the bus.
	if cfg.NATSURL != "" {
		nc, err := messaging.Connect(cfg.NATSURL, messaging.Options{
			Name:          "trafficd",
			ReconnectWait: time.Second,
			MaxReconnects: 60,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to connect to NATS")
		}
		defer nc.Close()

		eng.AddSink(events.SinkFunc(func(e events.Event) {
			if err := nc.Publish("traffic."+e.Type, e.Payload); err != nil {
				log.WithError(err).WithField("event", e.Type).Warn("NATS publish failed")
			}
		}))
		log.WithField("url", cfg.NATSURL).Info("event mirror connected")
	}

	// Optional Redis snapshot persistence, with restore at boot.
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore = store.NewRedisStore(cfg.RedisURL, log)
		defer redisStore.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := redisStore.Ping(pingCtx)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("failed to connect to Redis")
		}
	}

	if err := bootstrap(ctx, eng, redisStore, log); err != nil {
		log.WithError(err).Fatal("failed to load traffic network")
	}

	entries := make([]geo.IndexEntry, 0)
	for _, in := range eng.Intersections() {
		entries = append(entries, geo.IndexEntry{ID: in.ID, Latitude: in.Latitude, Longitude: in.Longitude})
	}

	srv := server.New(eng, h, geo.NewIndex(entries), log)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(),
	}

	var mq *ingest.MQTTIngest
	if cfg.MQTTURL != "" {
		mq = ingest.NewMQTT(cfg.MQTTURL, cfg.MQTTTopic, eng, log)
		if err := mq.Start(); err != nil {
			log.WithError(err).Fatal("failed to start telemetry ingest")
		}
		defer mq.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		engine.NewLoop(eng, log).Run(gctx)
		return nil
	})

	if redisStore != nil {
		sub := h.Subscribe()
		g.Go(func() error {
			redisStore.Run(gctx, sub)
			return nil
		})
	}

	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("traffic control API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
	log.Info("stopped")
}

// bootstrap restores the last persisted snapshot when one exists, otherwise
// loads the built-in sample network.
func bootstrap(ctx context.Context, eng *engine.Engine, redisStore *store.RedisStore, log *logrus.Logger) error {
	if redisStore != nil {
		snap, err := redisStore.LoadSnapshot(ctx)
		if err != nil {
			log.WithError(err).Warn("snapshot restore failed, seeding instead")
		} else if snap != nil {
			if err := eng.LoadNetwork(snap.Intersections, snap.EmergencyVehicles); err == nil {
				log.WithField("timestamp", snap.Timestamp).Info("network restored from snapshot")
				return nil
			}
			log.Warn("persisted snapshot is invalid, seeding instead")
		}
	}

	intersections, vehicles := engine.SeedNetwork()
	if err := eng.LoadNetwork(intersections, vehicles); err != nil {
		return err
	}
	log.WithField("intersections", len(intersections)).Info("seeded sample network")
	return nil
}
