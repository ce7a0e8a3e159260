package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/config"
	"github.com/neildahan/realdeal/internal/database"
	"github.com/neildahan/realdeal/internal/enrich"
	"github.com/neildahan/realdeal/internal/handlers"
	"github.com/neildahan/realdeal/internal/history"
	"github.com/neildahan/realdeal/internal/notify"
	"github.com/neildahan/realdeal/internal/pipeline"
	"github.com/neildahan/realdeal/internal/providers"
	"github.com/neildahan/realdeal/internal/ratelimit"
	"github.com/neildahan/realdeal/internal/scheduler"
	"github.com/neildahan/realdeal/internal/search"
)

func main() {
	// .env is optional; real deployments use actual environment variables
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment from .env")
	}

	configPath := getEnv("CONFIG_PATH", "config/realdeal.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using defaults.", configPath, err)
		cfg = config.DefaultConfig()
	} else {
		log.Infof("Loaded configuration from %s", configPath)
	}

	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}

	// Initialize database based on configuration
	var (
		store     database.DealStore
		gormStore *database.GormStore
	)
	dbType := cfg.Database.Type
	if dbType == "" {
		dbType = getEnv("DB_TYPE", "mysql")
	}

	if dbType == "mysql" {
		log.Info("Using MySQL with GORM")
		mysqlCfg := cfg.Database.MySQL
		gormStore, err = database.NewGormStore(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portString(mysqlCfg.Port), "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "realdeal"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", ""),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "realdeal"),
		)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer gormStore.Close()
		store = gormStore
	} else {
		log.Info("Using PostgreSQL")
		pgCfg := cfg.Database.Postgres
		pgStore, err := database.NewPostgresStore(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portString(pgCfg.Port), "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "realdeal"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", ""),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "realdeal"),
			getEnvOrConfig(pgCfg.SSLMode, "DB_SSLMODE", "disable"),
		)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
	}

	if err := store.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Initialize Meilisearch
	searchClient := search.NewSearchClient(
		getEnvOrConfig(cfg.Search.Meilisearch.Host, "MEILISEARCH_HOST", "http://meilisearch:7700"),
		getEnvOrConfig(cfg.Search.Meilisearch.APIKey, "MEILISEARCH_KEY", ""),
	)
	if err := searchClient.InitIndex(); err != nil {
		log.Warnf("Failed to initialize search index: %v", err)
	}

	// Deal alerts, fired by the pipeline as each deal is persisted
	var notifier notify.Notifier = notify.LogNotifier{}
	if url := getEnvOrConfig(cfg.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL", ""); url != "" {
		notifier = notify.NewWebhookNotifier(url)
		log.Info("Webhook notifier configured")
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Monitor.MinAlertScore)

	// Build the scan pipeline
	bundle := providers.NewBundle(cfg.Providers)
	cache := pipeline.NewResultCache(cfg.Pipeline.GetCacheTTL(), cfg.Pipeline.CacheMaxEntries)
	enricher := enrich.New(bundle, enrich.Config{
		DistressBudget:   cfg.Enrichment.DistressBatchSize,
		RefineBudget:     cfg.Enrichment.RefineBatchSize,
		ValidateBudget:   cfg.Enrichment.ValidateBatchSize,
		ValidateMinScore: cfg.Enrichment.MinScoreToValidate,
		BlendPriorWeight: cfg.Enrichment.BlendPriorWeight,
	})
	coordinator := pipeline.New(bundle, enricher, cache, store, searchClient, dispatcher,
		pipeline.Config{MaxPages: cfg.Pipeline.MaxPages})

	// Scan rate limiter
	limiter := ratelimit.NewScanLimiter(
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.RequestsPerHour,
		cfg.RateLimit.RequestsPerDay,
		cfg.RateLimit.Enabled,
	)
	log.Infof("Scan rate limiter: %d/min, %d/hour, %d/day (enabled: %v)",
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.RequestsPerHour,
		cfg.RateLimit.RequestsPerDay,
		cfg.RateLimit.Enabled,
	)

	// History service (MySQL only)
	var historyService *history.Service
	if gormStore != nil {
		historyService = history.NewService(gormStore.DB())
		log.Info("History service initialized")
	}

	// Daily monitor
	monitor := scheduler.NewMonitor(coordinator, store, historyService, cfg.Monitor)
	if err := monitor.Start(); err != nil {
		log.Warnf("Failed to start monitor: %v", err)
	}
	defer monitor.Stop()

	// Setup Gin router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	scanHandler := handlers.NewScanHandler(coordinator)
	streamHandler := handlers.NewStreamHandler(coordinator)
	dealsHandler := handlers.NewDealsHandler(store, searchClient, historyService)

	r.GET("/health", healthCheck)

	// Scan routes with rate limiting
	r.GET("/api/search", limiter.Middleware(), scanHandler.Search)
	r.GET("/api/search/ws", limiter.Middleware(), streamHandler.Stream)
	r.GET("/api/ratelimit/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, limiter.GetStats())
	})

	// Saved deals
	r.GET("/api/deals", dealsHandler.List)
	r.GET("/api/deals/search", dealsHandler.Search)
	r.GET("/api/deals/:id", dealsHandler.Get)
	r.GET("/api/deals/:id/history", dealsHandler.History)
	r.GET("/api/changes/recent", dealsHandler.RecentChanges)

	// Admin API routes (requires authentication in production)
	if gormStore != nil {
		adminHandler := handlers.NewAdminHandler(gormStore.DB(), monitor, cache, searchClient)

		admin := r.Group("/api/admin")
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.GET("/score-distribution", adminHandler.GetScoreDistribution)
			admin.GET("/zip-stats", adminHandler.GetZipStats)

			admin.POST("/monitor/trigger", adminHandler.TriggerMonitor)
			admin.POST("/cache/clear", adminHandler.ClearCache)
			admin.POST("/search/reindex", adminHandler.Reindex)

			admin.POST("/cleanup/run", adminHandler.RunCleanup)
			admin.GET("/cleanup/logs", adminHandler.GetDeleteLogs)
		}

		log.Info("Admin API routes registered at /api/admin/*")
	}

	port := getEnv("PORT", fmt.Sprintf("%d", cfg.Server.Port))
	log.Infof("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

func portString(port int) string {
	if port <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvOrConfig prefers the config value, then the environment, then the
// fallback
func getEnvOrConfig(configValue, envKey, fallback string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, fallback)
}
