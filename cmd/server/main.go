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

	"github.com/BerylCAtieno/ikigai-coach/internal/config"
	"github.com/BerylCAtieno/ikigai-coach/internal/diagram"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/kvstore"
	"github.com/BerylCAtieno/ikigai-coach/internal/logging"
	"github.com/BerylCAtieno/ikigai-coach/internal/metrics"
	"github.com/BerylCAtieno/ikigai-coach/internal/server"
	"github.com/BerylCAtieno/ikigai-coach/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// The key is read per request; a missing key only fails generation calls.
	if config.APIKeyFromEnv() == "" {
		logger.Warn("GEMINI_API_KEY is not set; generation requests will fail until it is")
	}

	store, closeStore, err := kvstore.Open(cfg.StoreDriver, cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNew(reg)

	gw := gateway.New(config.APIKeyFromEnv, gateway.GeminiFactory(cfg.Model), m, logger.Named("gateway"))
	defer gw.Close()

	sessions, err := session.NewManager(store, gw, cfg.SessionCacheSize, cfg.RequestTimeout, m, logger.Named("session"))
	if err != nil {
		logger.Fatal("Failed to create session manager", zap.Error(err))
	}

	fallbacks, err := diagram.LoadFallbacks(cfg.DiagramFonts, logger.Named("diagram"))
	if err != nil {
		logger.Fatal("Failed to load diagram fonts", zap.Strings("paths", cfg.DiagramFonts), zap.Error(err))
	}

	exporter, err := diagram.NewExporter(cfg.PublicBaseURL, fallbacks, m, logger.Named("diagram"))
	if err != nil {
		logger.Fatal("Failed to create diagram exporter", zap.Error(err))
	}

	srv := server.New(server.Options{
		Gateway:     gw,
		Sessions:    sessions,
		Exporter:    exporter,
		Gatherer:    reg,
		Logger:      logger.Named("http"),
		CORSOrigins: cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Ikigai Coach starting",
			zap.String("port", cfg.Port),
			zap.String("model", cfg.Model),
			zap.String("store", cfg.StoreDriver),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-done
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
}
