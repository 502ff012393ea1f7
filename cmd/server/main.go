// Package main provides the raster window HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.ngs.io/rasterwin/internal/catalog"
	"go.ngs.io/rasterwin/internal/config"
	httpHandler "go.ngs.io/rasterwin/internal/http"
	"go.ngs.io/rasterwin/internal/logging"
	"go.ngs.io/rasterwin/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("rasterwin version %s\n", version)
		return
	}

	// Load configuration from .env and environment.
	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:       logging.ParseLevel(cfg.LogLevel, zapcore.InfoLevel),
		Development: cfg.LogDevelopment,
		FilePath:    cfg.LogFile,
	})
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("starting raster window server",
		zap.String("version", version),
		zap.String("port", cfg.Port),
		zap.String("catalog", cfg.CatalogPath),
		zap.Int("workers", cfg.Workers),
		zap.String("default_resampling", cfg.DefaultResampling.String()),
	)

	// Load the raster catalog.
	cat, err := catalog.Load(cfg.CatalogPath, catalog.WithLogger(logger))
	if err != nil {
		return err
	}
	for _, id := range cat.IDs() {
		e, _ := cat.Lookup(id)
		logger.Info("raster registered",
			zap.String("id", id),
			zap.String("driver", string(e.Driver)),
			zap.String("path", e.Path),
		)
	}

	// Initialize use case.
	svc := usecase.NewService(cat,
		usecase.WithLogger(logger),
		usecase.WithWorkers(cfg.Workers),
	)

	// Setup router.
	handler := httpHandler.NewHandler(svc, cat, cfg.DefaultResampling, logger)
	router := httpHandler.SetupRouter(handler, logger, cfg.CORSAllowedOrigins)

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("server listening", zap.String("addr", addr))
	return router.Run(addr)
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Raster Window Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  rasterwin [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println("  -env PATH      Optional .env file (default: .env)")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  RASTER_CATALOG          YAML raster catalog (default: ./rasters.yaml)")
	fmt.Println("  RASTER_WORKERS          Bands read concurrently in parallel mode (default: number of CPUs)")
	fmt.Println("  DEFAULT_RESAMPLING      Resampling when a request names none (default: average)")
	fmt.Println("  LOG_LEVEL               debug, info, warn or error (default: info)")
	fmt.Println("  LOG_DEVELOPMENT         Human-readable colored logs (default: false)")
	fmt.Println("  LOG_FILE                Rotated JSON log file (optional)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  rasterwin")
	fmt.Println()
	fmt.Println("  # Start server on custom port with 4 workers")
	fmt.Println("  PORT=3000 RASTER_WORKERS=4 rasterwin")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                                   Health check")
	fmt.Println("  GET /v1/rasters                               List rasters")
	fmt.Println("  GET /v1/rasters/:id                           Bands and overview sizes")
	fmt.Println("  GET /v1/rasters/:id/bands/:band/window        Read a window of one band")
	fmt.Println("  GET /v1/rasters/:id/overview                  Read a whole overview")
	fmt.Println("  GET /v1/rasters/:id/stack                     Read a window of every band")
	fmt.Println("  GET /v1/rasters/:id/preview.png               Render a window as PNG")
	fmt.Println()
}
