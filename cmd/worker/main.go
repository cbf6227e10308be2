package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/bootstrap"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/config"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/observability/logging"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/observability/metrics"
)

const serviceName = "visionary-worker"

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

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeImageSubmitted(ctx, func(handlerCtx context.Context, imageID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if img, getErr := app.Repo.GetImage(processCtx, imageID); getErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(img.CreatedAt))
		}

		workerMetrics.StartImage()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, imageID)
		workerMetrics.FinishImage(serviceName, time.Since(start), processErr)

		if processErr == nil {
			if img, getErr := app.Repo.GetImage(processCtx, imageID); getErr == nil && len(img.Results) > 0 {
				workerMetrics.ObserveRecognition(serviceName, len(img.Results), img.Results[0].Confidence)
			}
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
