package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/directory"
	"github.com/iliyamo/cinema-booking/internal/log"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/monitoring"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/remote"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log.Init(cfg.LogLevel, cfg.Development())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	metrics := monitoring.New(prometheus.DefaultRegisterer)
	cacheCfg := config.LoadCacheConfig()
	limitCfg := config.LoadRateLimitConfig()

	var rdb *redis.Client
	if cfg.Remote == config.BackendRedis || cacheCfg.Enabled || limitCfg.Enabled {
		if rdb = config.NewRedisClient(ctx); rdb == nil {
			logrus.Warn("redis unavailable, continuing without it")
		} else {
			defer rdb.Close()
		}
	}

	store := remote.NewStore(openBackend(ctx, cfg, rdb),
		remote.WithCallTimeout(cfg.RemoteTTL),
		remote.WithMetrics(metrics),
		remote.WithLogger(logrus.WithField("component", "remote")),
	)
	defer store.Close()

	opts := []service.Option{
		service.WithMetrics(metrics),
		service.WithLogger(logrus.WithField("component", "booking")),
		service.WithLayout(model.Layout{Rows: cfg.Rows, SeatsPerRow: cfg.SeatsPerRow}),
		service.WithSyncTimeout(cfg.SyncTimeout),
	}
	var publisher *queue.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL, queue.DefaultQueue, logrus.WithField("component", "publisher"))
		defer publisher.Close()
		opts = append(opts, service.WithEvents(publisher))
	}
	svc := service.New(directory.New(), store, opts...)

	if cfg.Seed {
		if err := svc.SeedSampleData(ctx, time.Now()); err != nil {
			return err
		}
	}

	e := router.New(cfg, svc, router.Deps{
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: limitCfg,
		Gatherer:  prometheus.DefaultGatherer,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env, "remote": cfg.Remote}).Info("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, queue.DefaultQueue, cfg.BookingLogPath, logrus.WithField("component", "consumer"))
		g.Go(func() error { return consumer.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	err := g.Wait()
	svc.Wait()
	logrus.Info("shutdown complete")
	return err
}

// openBackend connects the configured remote store. Any failure leaves the
// service offline rather than stopping it.
func openBackend(ctx context.Context, cfg config.Config, rdb *redis.Client) remote.Backend {
	switch cfg.Remote {
	case config.BackendRedis:
		if rdb == nil {
			return nil
		}
		return remote.NewRedisBackend(rdb, cfg.RedisPrefix)
	case config.BackendMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			logrus.WithError(err).Warn("mysql unavailable, running offline")
			return nil
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			logrus.WithError(err).Warn("mysql migration failed, running offline")
			return nil
		}
		return repository.NewBackend(db)
	}
	return nil
}
