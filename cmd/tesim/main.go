package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tesim/internal/config"
	"tesim/internal/domain"
	"tesim/internal/handler"
	"tesim/internal/hub"
	"tesim/internal/repository/sqlite"
	"tesim/internal/service"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "config file path (default: search "+config.EnvConfigPath+" and standard locations)")
	addr := flag.String("addr", "", "HTTP listen address of the monitoring API (overrides server.addr)")
	monteCarlo := flag.Bool("montecarlo", false, "run the Monte Carlo error rate sweep instead of a single run")
	initPath := flag.String("init", "", "write the default config to this path and exit")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *initPath != "" {
		if err := config.DefaultConfig().Save(*initPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		log.Printf("Default config written to %s", *initPath)
		return
	}
	log.Println("Starting tesim...")

	var (
		cfg  *config.Config
		path string
		err  error
	)
	if *configPath != "" {
		cfg, path, err = config.LoadFromPath(*configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if path != "" {
		log.Printf("Config loaded: %s", path)
	} else {
		log.Println("No config file found, using defaults")
	}
	log.Printf("Config:\n%s", cfg.Summary())
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// Initialize SQLite repository
	dbPath := config.ResolvePath(path, cfg.Database.Path)
	repo, err := sqlite.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()
	log.Printf("Database opened: %s", dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize metrics and event bus
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)
	eventBus := service.NewEventBus()

	var server *http.Server
	if cfg.Server.Addr != "" {
		// Connect event bus to SSE hub
		sseHub := hub.New()
		go sseHub.Run(ctx)
		eventChan := make(chan service.Event, 256)
		eventBus.Subscribe(eventChan)
		go hub.Relay(ctx, sseHub, eventChan)

		mux := http.NewServeMux()
		handler.NewRunHandler(service.NewRunService(repo)).Register(mux)
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		mux.Handle("GET /events", sseHub)

		server = &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      handler.Chain(mux, handler.Recover, handler.Logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // SSE streams stay open
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Printf("Server listening on %s", cfg.Server.Addr)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Server error: %v", err)
			}
		}()
	}

	sim := service.NewSimulation(cfg, repo, eventBus, metrics)
	var runs []*domain.Run
	if *monteCarlo {
		runs, err = service.NewMonteCarlo(sim, cfg).Run(ctx)
	} else {
		var params service.RunParams
		if params, err = sim.DefaultParams(); err == nil {
			var run *domain.Run
			run, err = sim.Run(ctx, params)
			runs = append(runs, run)
		}
	}
	if err != nil {
		log.Printf("Simulation error: %v", err)
	}
	logSummaries(ctx, repo, runs)

	if server == nil {
		if err != nil {
			os.Exit(1)
		}
		return
	}

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// logSummaries logs the loss fractions and tracking error of each finished run
func logSummaries(ctx context.Context, repo *sqlite.Repository, runs []*domain.Run) {
	svc := service.NewRunService(repo)
	for _, run := range runs {
		if run == nil {
			continue
		}
		summary, err := svc.Summarize(context.WithoutCancel(ctx), run.ID)
		if err != nil {
			log.Printf("Failed to summarize run %s: %v", run.ID, err)
			continue
		}
		log.Printf("Run %s [%s] xmeas %s loss %.3f, xmv %s loss %.3f, error %.4f±%.4f (max %.4f) over %s saved ticks",
			run.ID, run.Status, run.XMEAS, summary.XMEASLossFraction, run.XMV, summary.XMVLossFraction,
			summary.MeanError, summary.StdDevError, summary.MaxAbsError, humanize.Comma(int64(summary.SavedTicks)))
	}
}
