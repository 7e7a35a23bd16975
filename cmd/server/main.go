package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"facturas/internal/config"
	"facturas/internal/extraction"
	"facturas/internal/handler"
	"facturas/internal/mapper"
	"facturas/internal/progress"
	"facturas/internal/reconcile"
	"facturas/internal/repository/postgres"
	"facturas/internal/router"
	"facturas/internal/service"
	s3storage "facturas/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	batchRepo := postgres.NewBatchRepo(db)
	invoiceStore := postgres.NewInvoiceRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize extraction client and pipeline
	extractor := extraction.NewClient(&cfg.Extraction)
	invoiceMapper := mapper.New(invoiceStore, cfg.Batch.TotalsTolerance)
	checker := reconcile.New(invoiceStore)

	bus := progress.NewBus()
	tracker := progress.NewTracker(bus, time.Duration(cfg.Progress.ReadyTimeoutSecs)*time.Second)

	// Initialize services
	batchSvc := service.NewBatchService(batchRepo, invoiceStore, extractor, s3Client, invoiceMapper, checker, tracker, cfg)

	// Initialize handlers
	batchH := handler.NewBatchHandler(batchSvc)
	progressH := handler.NewProgressHandler(bus)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(cfg, batchH, progressH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the batch poll worker
	worker := service.NewBatchPollWorker(batchRepo, batchSvc, tracker, service.BatchPollConfig{
		PollInterval: time.Duration(cfg.Batch.PollIntervalSecs) * time.Second,
		Concurrency:  cfg.Batch.PollConcurrency,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stop()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-workerDone
	return nil
}
