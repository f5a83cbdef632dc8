package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/grocerwatch/backend/config"
	httpDelivery "github.com/grocerwatch/backend/internal/delivery/http"
	"github.com/grocerwatch/backend/internal/domain"
	"github.com/grocerwatch/backend/internal/infrastructure/cache"
	"github.com/grocerwatch/backend/internal/infrastructure/coles"
	"github.com/grocerwatch/backend/internal/infrastructure/store"
	"github.com/grocerwatch/backend/internal/infrastructure/woolworths"
	"github.com/grocerwatch/backend/internal/scheduler"
	"github.com/grocerwatch/backend/internal/usecase"
)

func main() {
	_ = godotenv.Load() // load .env if present; not fatal if missing

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting GrocerWatch Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Store: %s", cfg.Store.Path)

	// Infrastructure
	repo := store.New(cfg.Store.Path)
	searchCache := cache.NewSearchCache(cfg.Cache.Size, cfg.Cache.TTL)
	wooliesClient := woolworths.NewClient(cfg.Woolworths.BaseURL, cfg.Woolworths.Timeout)
	colesClient := coles.NewClient(cfg.Coles.BaseURL, cfg.Coles.Timeout)
	metrics := usecase.NewMetrics()

	// Usecase layer
	tracker := usecase.NewTrackerService(
		repo,
		[]domain.CatalogClient{wooliesClient, colesClient},
		searchCache,
		metrics,
		usecase.TrackerServiceConfig{
			AnchorWeekday: cfg.AnchorWeekday(),
		},
	)

	log.Printf("History anchor: %s", cfg.AnchorWeekday())

	// Graceful shutdown coordination
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Weekly scheduler
	wg := &sync.WaitGroup{}
	if cfg.Scheduler.Enabled {
		hour, minute, _ := cfg.Scheduler.RunTime()
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx, tracker, scheduler.Config{
				Weekday: cfg.SchedulerWeekday(),
				Hour:    hour,
				Minute:  minute,
			})
		}()
		log.Printf("Scheduler: %s %02d:%02d weekly", cfg.SchedulerWeekday(), hour, minute)
	}

	// HTTP delivery
	handler := httpDelivery.NewHandler(tracker)
	router := httpDelivery.SetupRouter(cfg, handler, metrics.Registry)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server Shutdown: %v", err)
	}

	wg.Wait()
	log.Println("graceful shutdown complete")
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
