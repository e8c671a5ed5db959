package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wanderhub/internal/core"
	httpProtocol "wanderhub/internal/protocols/http"
	"wanderhub/internal/repository"
	"wanderhub/pkg/cache"
	"wanderhub/pkg/config"
	"wanderhub/pkg/database"
	"wanderhub/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./configs/development.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	logger.Info("Starting Wanderhub gamification server...")

	// Connect to database
	dbCfg := database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		Timeout:         cfg.Database.Timeout,
	}

	pool, err := database.NewPGXPool(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	logger.Info("Connected to PostgreSQL database")

	// Leaderboard cache is optional; the service degrades to direct
	// queries when Redis is absent.
	var lbCache *cache.LeaderboardCache
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisClient(database.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warnf("Redis unavailable, leaderboard caching disabled: %v", err)
		} else {
			defer redisClient.Close()
			lbCache = cache.NewLeaderboardCache(redisClient, cfg.Gamification.LeaderboardCacheTTL)
			logger.Info("Connected to Redis for leaderboard caching")
		}
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	badgeRepo := repository.NewBadgeRepository(pool)
	campaignRepo := repository.NewCampaignRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)

	logger.Info("Initialized all repositories")

	// Initialize core services
	authSvc := core.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	gamificationSvc := core.NewGamificationService(
		progressRepo, ruleRepo, badgeRepo, campaignRepo, userRepo, lbCache,
		core.Options{
			SaveRetries:         cfg.Gamification.SaveRetries,
			LeaderboardMaxLimit: cfg.Gamification.LeaderboardMaxLimit,
		},
	)
	adminSvc := core.NewAdminService(ruleRepo, badgeRepo, campaignRepo)

	logger.Info("Initialized all core services")

	httpServer := httpProtocol.NewServer(cfg, authSvc, gamificationSvc, adminSvc)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("HTTP server panic recovered: %v", r)
			}
		}()
		httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
		logger.Info(fmt.Sprintf("Starting HTTP server on %s", httpAddr))
		if err := httpServer.Start(httpAddr); err != nil {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()

	logger.Info("Press Ctrl+C to shutdown")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info(fmt.Sprintf("Received signal: %v, shutting down", sig))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}
	logger.Info("Shutdown complete")
}
