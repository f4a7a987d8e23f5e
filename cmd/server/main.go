package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Load .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/rayyhq/rayy-backend/internal/booking"    // Booking engine
	"github.com/rayyhq/rayy-backend/internal/config"     // Internal config loader
	"github.com/rayyhq/rayy-backend/internal/database"   // MySQL connector
	"github.com/rayyhq/rayy-backend/internal/handler"    // HTTP handlers
	"github.com/rayyhq/rayy-backend/internal/middleware" // Rate limiting and caching
	"github.com/rayyhq/rayy-backend/internal/queue"      // RabbitMQ consumer
	"github.com/rayyhq/rayy-backend/internal/repository" // DB repositories
	"github.com/rayyhq/rayy-backend/internal/router"     // Route registration
	"github.com/rayyhq/rayy-backend/internal/service"    // Queue-backed notifier
	"github.com/rayyhq/rayy-backend/internal/utils"      // Request validator
)

func main() {
	// .env is optional; real deployments set environment variables
	// directly and the file simply does not exist there.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories share the one pooled *sql.DB.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	listings := repository.NewListingRepo(db)
	sessions := repository.NewSessionRepo(db)
	bookings := repository.NewBookingRepo(db)
	wallets := repository.NewWalletRepo(db)
	invoices := repository.NewInvoiceRepo(db)

	// The engine owns every booking rule; handlers stay thin.
	engine := booking.NewEngine(sessions, listings, bookings, wallets, users, invoices,
		service.NewQueueNotifier(), booking.Config{
			GoodwillCredits:        cfg.GoodwillCredits,
			RescheduleLimitMinutes: cfg.RescheduleLimitMin,
			TrialWeeklyLimit:       cfg.TrialWeeklyLimit,
			PaymentsMode:           cfg.PaymentsMode,
		})

	// Notification consumer runs for the lifetime of the process and
	// reconnects on its own when RabbitMQ drops the connection.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Validator = utils.NewRequestValidator()

	// Redis backs both the token-bucket rate limiter and the public
	// response cache.
	rdb := config.NewRedisClient()
	rlCfg := config.LoadRateLimitConfig()
	if rlCfg.Enabled {
		e.Use(middleware.NewTokenBucket(rlCfg, rdb))
	}
	var cacheMW echo.MiddlewareFunc
	cacheCfg := config.LoadCacheConfig()
	if cacheCfg.Enabled {
		cacheMW = middleware.NewRedisCache(cacheCfg, rdb)
	}

	authH := handler.NewAuthHandler(cfg, users, tokens, wallets)
	listingH := handler.NewListingHandler(listings, sessions, engine)
	bookingH := handler.NewBookingHandler(engine)
	walletH := handler.NewWalletHandler(cfg, wallets, invoices)
	partnerListingH := handler.NewPartnerListingHandler(listings, sessions)
	partnerBookingH := handler.NewPartnerBookingHandler(engine, bookings, listings, sessions)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, listingH, cacheMW)
	router.RegisterCustomer(e, bookingH, walletH, cfg.JWTSecret)
	router.RegisterPartner(e, partnerListingH, partnerBookingH, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
