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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/railops/dispatch/handlers"
	"github.com/railops/dispatch/internal/config"
	"github.com/railops/dispatch/internal/optimizer"
	"github.com/railops/dispatch/internal/simulation"
	"github.com/railops/dispatch/repository"
	"github.com/railops/dispatch/services"
)

// store is everything the services and health check need from persistence
type store interface {
	services.FleetStore
	services.SuggestionStore
	services.ScenarioStore
	handlers.Pinger
	EnsureSchema(ctx context.Context) error
	Seed(ctx context.Context, data repository.SeedData) (bool, error)
	Close() error
}

// app holds the long-lived components main wires together
type app struct {
	optimization *services.OptimizationService
	simulation   *services.SimulationService
	fleet        *services.FleetService
	events       *handlers.EventHub
	store        store
}

func main() {
	cfg := config.Load()

	db, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s database: %v", cfg.DatabaseDriver, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	if cfg.SeedData {
		seeded, err := db.Seed(ctx, repository.DemoNetwork(time.Now()))
		if err != nil {
			cancel()
			log.Fatalf("Failed to seed database: %v", err)
		}
		if seeded {
			log.Println("Seeded empty database with demo network")
		}
	}
	cancel()

	a := newApp(cfg, db, optimizer.New())
	defer a.events.Close()
	defer a.optimization.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Dispatch API starting on :%s (%s store)", cfg.Port, cfg.DatabaseDriver)
		log.Println("Optimization endpoints:")
		log.Println("  POST /api/optimization/analyze")
		log.Println("  POST /api/optimization/implement")
		log.Println("  GET  /api/optimization")
		log.Println("  POST /api/optimization")
		log.Println("Simulation endpoints:")
		log.Println("  POST /api/simulation")
		log.Println("  GET  /api/simulation")
		log.Println("  GET  /api/simulation/{id}")
		log.Println("  POST /api/simulation/compare")
		log.Println("Fleet endpoints:")
		log.Println("  GET /api/trains, /api/stations, /api/alerts, /api/kpis")
		log.Println("  GET /api/events (WebSocket)")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Printf("Received %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

func openStore(cfg *config.Config) (store, error) {
	if cfg.DatabaseDriver == "postgres" {
		log.Println("Connecting to PostgreSQL database")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return repository.NewPostgresStore(ctx, cfg.DatabaseURL)
	}

	log.Printf("Connecting to SQLite database: %s", cfg.SQLitePath)
	return repository.NewSQLiteStore(cfg.SQLitePath)
}

func newApp(cfg *config.Config, db store, engine *optimizer.Engine) *app {
	events := handlers.NewEventHub(cfg.AllowedOrigins)
	return &app{
		optimization: services.NewOptimizationService(db, db, engine, events, cfg.ImplementationDelay),
		simulation:   services.NewSimulationService(db, db, simulation.New(), events),
		fleet:        services.NewFleetService(db, db, events),
		events:       events,
		store:        db,
	}
}

func newRouter(cfg *config.Config, a *app) http.Handler {
	optimizationHandler := handlers.NewOptimizationHandler(a.optimization, cfg.RequestTimeout)
	simulationHandler := handlers.NewSimulationHandler(a.simulation, cfg.RequestTimeout)
	fleetHandler := handlers.NewFleetHandler(a.fleet, cfg.RequestTimeout)
	healthHandler := handlers.NewHealthHandler(a.store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/healthz", healthHandler.Healthz)

	r.Route("/api/optimization", func(r chi.Router) {
		r.Get("/", optimizationHandler.List)
		r.Post("/", optimizationHandler.Act)
		r.Post("/analyze", optimizationHandler.Analyze)
		r.Post("/implement", optimizationHandler.Implement)
	})

	r.Route("/api/simulation", func(r chi.Router) {
		r.Get("/", simulationHandler.List)
		r.Post("/", simulationHandler.Run)
		r.Post("/compare", simulationHandler.Compare)
		r.Get("/{id}", simulationHandler.Get)
	})

	r.Route("/api/trains", func(r chi.Router) {
		r.Get("/", fleetHandler.GetTrains)
		r.Get("/{id}", fleetHandler.GetTrain)
		r.Put("/{id}", fleetHandler.UpdateTrain)
	})

	r.Route("/api/alerts", func(r chi.Router) {
		r.Get("/", fleetHandler.GetAlerts)
		r.Post("/", fleetHandler.CreateAlert)
		r.Post("/{id}/resolve", fleetHandler.ResolveAlert)
	})

	r.Get("/api/stations", fleetHandler.GetStations)
	r.Get("/api/kpis", fleetHandler.GetKPIs)
	r.Get("/api/events", a.events.ServeHTTP)

	return r
}
