package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/walkabout-games/territory/internal/api"
	"github.com/walkabout-games/territory/internal/config"
	"github.com/walkabout-games/territory/internal/db"
	"github.com/walkabout-games/territory/internal/timeutil"
	"github.com/walkabout-games/territory/internal/units"
	"github.com/walkabout-games/territory/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "territory.db", "Path to the sqlite database")
	configPath = flag.String("config", "", "Path to a JSON tuning config (optional)")
	apiUnits   = flag.String("units", units.KPH, "Speed units for API responses (mps, mph, kmph, kph)")
	devMode    = flag.Bool("dev", false, "Use on-disk migrations instead of the embedded copy")
)

func main() {
	// Subcommands run before flag parsing claims the arguments.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		dbPath := "territory.db"
		if v := os.Getenv("TERRITORY_DB"); v != "" {
			dbPath = v
		}
		db.RunMigrateCommand(os.Args[2:], dbPath)
		return
	}

	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*apiUnits) {
		log.Fatalf("Invalid units %q (valid: %s)", *apiUnits, units.GetValidUnitsString())
	}
	db.DevMode = *devMode

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *configPath)
	}
	engineCfg, err := tuning.EngineConfig()
	if err != nil {
		log.Fatalf("Invalid tuning config: %v", err)
	}
	explorationCfg := tuning.ExplorationConfig()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	clock := timeutil.RealClock{}
	server := api.NewServer(database, engineCfg, explorationCfg, clock, *apiUnits)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		mux.Handle("/api/", api.LoggingMiddleware(server.ServeMux()))

		httpServer := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			log.Printf("territoryd %s listening on %s", version.Version, *listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Periodic sampling goroutine: drives the proximity and exploration
	// checks for every live session at the configured cadence.
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := clock.NewTicker(engineCfg.SampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C():
				server.TickAll()
			case <-ctx.Done():
				log.Printf("sampling routine terminated")
				return
			}
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
