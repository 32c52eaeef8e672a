package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/config"
	"github.com/iliyamo/bus-ticket-reservation/internal/database"
	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/router"
	queue_publisher "github.com/iliyamo/bus-ticket-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the public response cache.  A nil
	// client (server unreachable) switches both middlewares off and the
	// API keeps serving.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}

	// Repositories share the one connection pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	operators := repository.NewOperatorRepo(db)
	routes := repository.NewRouteRepo(db)
	buses := repository.NewBusRepo(db)
	schedules := repository.NewScheduleRepo(db)
	claims := repository.NewSeatClaimRepo(db)
	bookings := repository.NewBookingRepo(db)
	stats := repository.NewStatsRepo(db)

	// The booking manager owns every seat-inventory transaction and hands
	// finished bookings to the RabbitMQ publisher.
	manager := booking.NewManager(schedules, claims, bookings, queue_publisher.PublishBookingEvent)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	publicHandler := &handler.PublicHandler{Schedules: schedules, Claims: claims}
	bookingHandler := handler.NewBookingHandler(manager, bookings)
	adminHandler := handler.NewAdminHandler(operators, routes, buses, schedules, claims, bookings, stats, manager)

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)                                 // health check
	router.RegisterAuth(e, authHandler, cfg.JWTSecret, rl)   // register/login/refresh/logout
	router.RegisterPublic(e, publicHandler, cache)           // trip search and seat maps
	router.RegisterCustomer(e, bookingHandler, cfg.JWTSecret, rl)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)
	router.RegisterAdminReports(e, adminHandler, cfg.JWTSecret)

	// The consumer keeps its own connection and reconnect loop.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
