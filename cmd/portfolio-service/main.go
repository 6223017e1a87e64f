package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/trogers1052/portfolio-tracker/internal/api"
	"github.com/trogers1052/portfolio-tracker/internal/config"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/database/sqlite"
	"github.com/trogers1052/portfolio-tracker/internal/kafka"
	"github.com/trogers1052/portfolio-tracker/internal/logger"
	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
	"github.com/trogers1052/portfolio-tracker/internal/scheduler"
	"github.com/trogers1052/portfolio-tracker/internal/scraper"
)

type store interface {
	portfolio.Store
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", "json")
		log.Fatal().Err(err).Msg("load config failed")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("open store failed")
	}
	defer db.Close()

	var fetcher portfolio.PriceFetcher = scraper.New(scraper.Config{
		BaseURL:   cfg.Scraper.BaseURL,
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.Timeout,
		Debug:     cfg.Scraper.Debug,
	})
	if cfg.Redis.Enabled {
		rdb, err := scraper.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect failed")
		}
		defer rdb.Close()
		fetcher = scraper.NewCachedFetcher(fetcher, rdb, cfg.Redis.KeyPrefix, cfg.Redis.CacheTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.CacheTTL).Msg("history cache enabled")
	}

	var opts []portfolio.Option
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		opts = append(opts, portfolio.WithPublisher(producer))
	}

	svc := portfolio.NewService(db, fetcher, opts...)

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.IngestTopic, cfg.Kafka.GroupID, svc)
		defer consumer.Close()
		go func() {
			if err := consumer.Start(log.Logger.WithContext(ctx)); err != nil {
				log.Error().Err(err).Msg("kafka consumer exited")
			}
		}()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka enabled")
	}

	if cfg.Scheduler.RefreshInterval > 0 {
		sched, err := scheduler.New()
		if err != nil {
			log.Fatal().Err(err).Msg("create scheduler failed")
		}
		task := scheduler.RefreshTask(svc, cfg.Scheduler.LookbackDays)
		if err := sched.NewIntervalJob("refresh prices", task, cfg.Scheduler.RefreshInterval, false); err != nil {
			log.Fatal().Err(err).Msg("create refresh job failed")
		}
		sched.Start()
		defer sched.Stop()
		log.Info().Dur("interval", cfg.Scheduler.RefreshInterval).Int("lookback_days", cfg.Scheduler.LookbackDays).Msg("price refresh scheduled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.SetupRoutes(api.NewHandler(svc)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.Database.Driver).Msg("portfolio service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
}

func openStore(cfg config.DatabaseConfig) (store, error) {
	if cfg.Driver == config.DriverSQLite {
		return sqlite.New(cfg.SQLitePath)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
