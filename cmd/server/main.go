package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/screening-seat-engine/internal/booking"
	"github.com/iliyamo/screening-seat-engine/internal/config"
	"github.com/iliyamo/screening-seat-engine/internal/database"
	"github.com/iliyamo/screening-seat-engine/internal/handler"
	"github.com/iliyamo/screening-seat-engine/internal/middleware"
	"github.com/iliyamo/screening-seat-engine/internal/model"
	"github.com/iliyamo/screening-seat-engine/internal/queue"
	"github.com/iliyamo/screening-seat-engine/internal/realtime"
	"github.com/iliyamo/screening-seat-engine/internal/repository"
	"github.com/iliyamo/screening-seat-engine/internal/router"
	"github.com/iliyamo/screening-seat-engine/internal/utils"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()
	if *hashPassword != "" {
		hash, err := utils.HashPassword(*hashPassword, 0)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(hash)
		return
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, ledger, db := openStore(ctx, cfg)
	if db != nil {
		defer db.Close()
	}

	hub := realtime.NewHub(cfg.Hold.SubscriberBuffer)
	opts := []booking.Option{
		booking.WithHoldTTL(cfg.Hold.TTL),
		booking.WithLedgerTimeout(cfg.Hold.LedgerTimeout),
		booking.WithPublisher(hub),
	}
	if cfg.AMQP.URL != "" {
		opts = append(opts, booking.WithNotifier(queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)))
		if cfg.AMQP.ConsumerEnabled {
			consumer := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, cfg.AMQP.LogPath)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("reservation-consumer: stopped: %v", err)
				}
			}()
		}
	}
	arbiter := booking.NewArbiter(catalog, ledger, opts...)

	scheduler := booking.NewExpiryScheduler(arbiter, cfg.Hold.SweepInterval)
	go func() { _ = scheduler.Run(ctx) }()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("http: %s %s -> %d (%s) id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.RegisterRoutes(e)
	router.RegisterScreenings(e,
		handler.NewScreeningHandler(arbiter, catalog),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	router.RegisterLive(e, handler.NewLiveHandler(hub, arbiter))
	router.RegisterAdmin(e, &handler.AdminHandler{
		Arbiter:      arbiter,
		Hub:          hub,
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		JWTSecret:    cfg.JWTSecret,
		AccessTTL:    time.Duration(cfg.AccessTTLMin) * time.Minute,
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, store=%s, hold_ttl=%s)", addr, cfg.Env, cfg.Store, arbiter.HoldTTL())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openStore returns the catalog and ledger for the configured backend.
// The memory store is seeded with one demo screening.
func openStore(ctx context.Context, cfg config.Config) (booking.Catalog, booking.Ledger, *sql.DB) {
	if cfg.Store == config.StoreMemory {
		return seedDemo(), booking.NewMemoryLedger(), nil
	}
	db, err := database.Open(database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("database: %v", err)
		}
	}
	return repository.NewCatalogRepo(db), repository.NewReservationRepo(db), db
}

func seedDemo() *booking.StaticCatalog {
	cat := booking.NewStaticCatalog()
	cat.AddHall(model.Hall{ID: 1, Name: "Hall 1", Rows: 8, SeatsPerRow: 12})
	start := time.Now().UTC().Truncate(time.Hour).Add(2 * time.Hour)
	if err := cat.AddScreening(model.Screening{
		ID:         1,
		HallID:     1,
		MovieTitle: "Demo Screening",
		StartsAt:   start,
		EndsAt:     start.Add(2 * time.Hour),
	}); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("memory store: seeded screening 1 in hall 1 (8x12)")
	return cat
}
