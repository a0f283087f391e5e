// Package main is the entry point for the pickup server.
// It initializes all dependencies, sets up the HTTP API, the realtime board
// listener and the background workers, and runs until interrupted.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geopickup/internal/config"
	"geopickup/internal/handlers"
	"geopickup/internal/identity"
	"geopickup/internal/middleware"
	"geopickup/internal/realtime"
	"geopickup/internal/repositories"
	"geopickup/internal/repositories/cache"
	"geopickup/internal/routes"
	"geopickup/internal/services/auth"
	"geopickup/internal/services/checkin"
	"geopickup/internal/services/geofence"
	"geopickup/internal/services/notification"
	"geopickup/internal/services/scanner"
	"geopickup/internal/services/stats"
	"geopickup/internal/services/token"
	"geopickup/internal/telemetry"
	"geopickup/internal/validation"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"
)

// maxUploadSize bounds request bodies; scanner photos are the largest.
const maxUploadSize = 8 << 20

func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()

	shutdownTracing := telemetry.Setup("geopickup-api")

	catalog, err := config.LoadSchools(cfg.SchoolsFile)
	if err != nil {
		log.Fatalf("Failed to load schools: %v", err)
	}
	loc := cfg.Location()

	scanMode, err := scanner.ParseMode(cfg.ScannerMode)
	if err != nil {
		log.Fatalf("Invalid scanner configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handlers.HealthCheck{}

	// PostgreSQL backs users, check-in rows and the notification log. It is
	// only skipped for a fully in-memory mock server.
	var db *gorm.DB
	if needsDatabase(cfg) {
		db, err = repositories.OpenPostgres(cfg)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get database instance: %v", err)
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️ Failed to close database connection: %v", err)
			}
		}()
		checks["database"] = sqlDB.PingContext

		// Add a periodic check of connection pool stats
		go func() {
			ticker := time.NewTicker(1 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					pool := sqlDB.Stats()
					log.Printf("DB Stats: Open=%d, Idle=%d, InUse=%d, WaitCount=%d, WaitDuration=%s",
						pool.OpenConnections, pool.Idle, pool.InUse, pool.WaitCount, pool.WaitDuration)
				}
			}
		}()
	}

	// Key-value surface for current tokens (and blob check-ins), plus the
	// consumed-token registry.
	var (
		kv          repositories.KVStore
		consumed    repositories.ConsumedTokenRegistry
		redisClient *redis.Client
	)
	switch cfg.StorageBackend {
	case "memory":
		kv = repositories.NewMemoryKV()
		consumed = repositories.NewMemoryConsumedTokens(nil)
	case "postgres":
		kv = repositories.NewGormKV(db)
		consumed = repositories.NewMemoryConsumedTokens(nil)
		log.Println("⚠️ Consumed tokens are tracked in memory; run a single instance with STORAGE_BACKEND=postgres")
	default:
		redisClient = cache.NewRedisClient(&cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}()
		redisKV := cache.NewRedisKV(redisClient, 0)
		if err := redisKV.HealthCheck(ctx); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Redis connected")
		kv = redisKV
		consumed = cache.NewRedisConsumedTokens(redisClient)
		checks["redis"] = redisKV.HealthCheck
	}

	var checkInStore repositories.CheckInStore
	if cfg.CheckInStore == "rows" && db != nil {
		checkInStore = repositories.NewGormCheckInStore(db)
	} else {
		checkInStore = repositories.NewBlobCheckInStore(kv)
	}

	var users repositories.UserRepository
	if db != nil {
		users = repositories.NewUserRepository(db)
	} else {
		users = repositories.NewMemoryUserRepository(identity.MockUser())
	}

	// Identity: a fixed development profile in mock mode, JWT otherwise.
	var (
		provider     identity.Provider
		authService  auth.Service
		authenticate fiber.Handler
		boardAuth    realtime.Authenticator
	)
	if cfg.MockMode {
		log.Println("⚠️ MOCK_MODE is on: every request acts as the mock user")
		provider = identity.NewMockProvider(identity.MockUser(), nil)
		authenticate = middleware.MockAuth(identity.MockUser())
	} else {
		authService = auth.NewService(users, auth.NewTokenIssuer(cfg.JWTSecret, 0))
		provider = identity.NewJWTProvider(users)
		authenticate = middleware.NewAuthMiddleware(authService).Handler
		boardAuth = authService
	}

	var notifier notification.Notifier = notification.LogNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notification.Multi{notifier, notification.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookToken)}
	}
	var notificationLogs repositories.NotificationLogRepository
	if db != nil {
		notificationLogs = repositories.NewNotificationLogRepository(db)
		notifier = notification.NewRecording(notifier, notificationLogs)
	}

	hub := realtime.New()
	ledger := checkin.NewService(checkInStore, provider, users, notifier, hub, catalog, checkin.Config{Location: loc})

	var policies []token.AuthorizationPolicy
	if cfg.EnforcePickupWindows {
		policies = append(policies, token.PickupWindowPolicy{Schools: catalog, Location: loc})
	}
	if cfg.EnforceStudentOwnership {
		policies = append(policies, token.StudentOwnershipPolicy{})
	}
	tokens := token.NewService(provider, kv, consumed, ledger, token.Config{
		Policy: token.AllOf(policies...),
	})

	statsService := stats.NewService(ledger, stats.Config{
		OnTimeThresholdMinutes: cfg.OnTimeThresholdMinutes,
		Location:               loc,
	})

	monitor := geofence.NewMonitor(catalog.All(), notifier, nil)
	monitor.StartMonitoring(geofence.RegionsFromSchools(catalog.All()))
	tracker := geofence.NewTracker()
	go monitor.Run(ctx, tracker, cfg.GeofencePollInterval)

	reminders := notification.NewReminderScheduler(catalog.All(), users, notifier, cfg.ReminderLead, loc)
	if err := reminders.Start(); err != nil {
		log.Fatalf("Failed to schedule pickup reminders: %v", err)
	}
	log.Printf("✅ %d pickup reminder jobs scheduled", reminders.Jobs())

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:     "GeoPickup API",
		BodyLimit:   maxUploadSize,
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})

	app.Use(recover.New())

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	v := validation.New()
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, provider, v),
		Tokens:    handlers.NewTokenHandler(tokens, v),
		Validator: handlers.NewValidatorHandler(tokens, provider, scanMode),
		CheckIns:  handlers.NewCheckInHandler(ledger, provider, v),
		Stats:     handlers.NewStatsHandler(statsService, loc, nil),
		Location:  handlers.NewLocationHandler(monitor, tracker, catalog.All(), v, nil),
		Health:    handlers.Health(checks),
	}
	if notificationLogs != nil {
		h.Notifications = handlers.NewNotificationHandler(notificationLogs)
	}
	routes.SetupRoutes(app, h, authenticate)

	// Realtime board on its own net/http listener
	boardServer := &http.Server{
		Addr:              ":" + cfg.RealtimePort,
		Handler:           otelhttp.NewHandler(realtime.NewHandler(hub, boardAuth), "realtime"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Realtime board listening on %s", boardServer.Addr)
		if err := boardServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Realtime server error: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	cancel()
	reminders.Stop()
	monitor.StopMonitoring()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown error: %v", err)
	}
	if err := boardServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Realtime shutdown error: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("⚠️ Tracing shutdown error: %v", err)
	}
}

// needsDatabase reports whether any configured component is backed by
// PostgreSQL.
func needsDatabase(cfg config.Config) bool {
	if !cfg.MockMode {
		return true
	}
	return cfg.StorageBackend == "postgres" || cfg.CheckInStore == "rows"
}
