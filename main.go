package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowquant/db"
	"flowquant/flow"
	qhttp "flowquant/http"
	"flowquant/logging"
	"flowquant/market/industry"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Database struct {
		Path         string `yaml:"path"`
		EnableWAL    bool   `yaml:"enable_wal"`
		QueryTimeout string `yaml:"query_timeout"`
	} `yaml:"database"`
	Http struct {
		Port           int      `yaml:"port"`
		Timeout        string   `yaml:"timeout"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log     logging.Config `yaml:"log"`
	Refresh struct {
		Interval string `yaml:"interval"`
	} `yaml:"refresh"`
	Seed struct {
		Enabled bool `yaml:"enabled"`
		Days    int  `yaml:"days"`
	} `yaml:"seed"`
	Industry struct {
		File  string `yaml:"file"`
		Watch bool   `yaml:"watch"`
	} `yaml:"industry"`
	WS struct {
		SnapshotInterval string `yaml:"snapshot_interval"`
	} `yaml:"ws"`
	AggregateCacheTTL string `yaml:"aggregate_cache_ttl"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 3. Initialize database
	store, err := db.Open(db.Config{
		Path:         config.Database.Path,
		EnableWAL:    config.Database.EnableWAL,
		QueryTimeout: parseDuration(config.Database.QueryTimeout, 5*time.Second),
	})
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	defer store.Close()
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// 4. Core services
	aggregator := flow.NewAggregator(store, parseDuration(config.AggregateCacheTTL, 30*time.Second))
	ranker := flow.NewRanker(store)
	trend := flow.NewTrendGenerator(store)
	refresher := flow.NewRefresher(store, aggregator, logger,
		parseDuration(config.Refresh.Interval, 5*time.Minute))

	// 5. Demo data
	if config.Seed.Enabled {
		seeder := flow.NewSeeder(store, aggregator, logger, config.Seed.Days)
		if err := seeder.Initialize(context.Background()); err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
		if _, err := refresher.RefreshAll(context.Background()); err != nil {
			logger.Warn("initial refresh finished with errors", zap.Error(err))
		}
	}

	// 6. Industry classification cache
	var industryCache *industry.Cache
	if config.Industry.File != "" {
		industryCache = industry.NewCache(config.Industry.File, logger)
		if err := industryCache.Load(); err != nil {
			logger.Warn("industry cache load failed, falling back to store", zap.Error(err))
			industryCache = nil
		} else if config.Industry.Watch {
			if err := industryCache.Watch(); err != nil {
				logger.Warn("industry watch failed", zap.Error(err))
			}
			defer industryCache.Stop()
		}
	}

	// 7. Periodic refresh
	if err := refresher.Start(); err != nil {
		logger.Warn("periodic refresh disabled", zap.Error(err))
	}
	defer refresher.Stop()

	// 8. WebSocket hub
	hub := qhttp.NewHub(ranker, trend,
		parseDuration(config.WS.SnapshotInterval, 10*time.Second), logger)
	go hub.Start()
	defer hub.Stop()

	// 9. HTTP server
	api := &qhttp.API{
		Store:      store,
		Aggregator: aggregator,
		Ranker:     ranker,
		Trend:      trend,
		Refresher:  refresher,
		Industries: industryCache,
	}
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           config.Http.Port,
		Timeout:        parseDuration(config.Http.Timeout, 30*time.Second),
		AllowedOrigins: config.Http.AllowedOrigins,
	}, api, hub, logger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
