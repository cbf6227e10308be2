package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/gregorydelacruz/chatgpt-image-visionary2/internal/adapters/http"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/bootstrap"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/config"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/observability/logging"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/observability/metrics"
)

const serviceName = "visionary-api"

func main() {
	cfg := config.Load()
	logging.Init(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := httpadapter.NewRouter(
		app.SubmitUC,
		app.Repo,
		app.CategoriesUC,
		app.ExportUC,
		app.Credentials,
		cfg.PredefinedCategories,
		cfg.MaxUploadBytes,
		cfg.APIRateLimitRPS,
		cfg.APIRateLimitBurst,
	).WithInstrumentation(serverMetrics, serviceName)

	mux := http.NewServeMux()
	mux.Handle("/metrics", serverMetrics.Handler())
	mux.Handle("/", serverMetrics.Middleware(serviceName, router.Handler()))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
