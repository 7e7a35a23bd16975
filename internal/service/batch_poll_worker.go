package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"facturas/internal/port"
	"facturas/internal/progress"
)

// BatchPollConfig holds settings for the batch poll worker.
type BatchPollConfig struct {
	PollInterval time.Duration
	Concurrency  int
}

// BatchPollWorker periodically advances active batches against the external
// extraction job state and feeds aggregated progress to the tracker.
type BatchPollWorker struct {
	batchRepo port.BatchRepository
	batches   BatchService
	tracker   *progress.Tracker
	cfg       BatchPollConfig
	wg        sync.WaitGroup

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewBatchPollWorker creates a new BatchPollWorker.
func NewBatchPollWorker(batchRepo port.BatchRepository, batches BatchService, tracker *progress.Tracker, cfg BatchPollConfig) *BatchPollWorker {
	return &BatchPollWorker{
		batchRepo: batchRepo,
		batches:   batches,
		tracker:   tracker,
		cfg:       cfg,
		inFlight:  make(map[uuid.UUID]struct{}),
	}
}

// claim marks a batch as having a poll in flight. A slow ingest can outlast
// the poll interval, and ListActive keeps returning the row until its
// terminal state lands, so every batch must be claimed before it is handed
// to a goroutine.
func (w *BatchPollWorker) claim(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inFlight[id]; ok {
		return false
	}
	w.inFlight[id] = struct{}{}
	return true
}

func (w *BatchPollWorker) release(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, id)
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight polls have finished.
func (w *BatchPollWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("batchPollWorker: started (poll=%s, concurrency=%d)", w.cfg.PollInterval, w.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			log.Printf("batchPollWorker: shutting down, waiting for in-flight polls...")
			w.wg.Wait()
			log.Printf("batchPollWorker: shutdown complete")
			return
		case <-ticker.C:
			jobs, err := w.batchRepo.ListActive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("batchPollWorker: ListActive error: %v", err)
				continue
			}

			for i := range jobs {
				job := jobs[i] // copy for goroutine
				if !w.claim(job.ID) {
					continue
				}

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer w.release(job.ID)
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so an in-flight ingest completes even during shutdown.
					pollCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
					defer cancel()

					if err := w.batches.Poll(pollCtx, &job); err != nil {
						log.Printf("batchPollWorker: polling batch %s: %v", job.ID, err)
					}
				}()
			}

			w.publishProgress(ctx)
		}
	}
}

// publishProgress pushes the aggregated active file counts of each logical
// submission into the tracker.
func (w *BatchPollWorker) publishProgress(ctx context.Context) {
	aggs, err := w.batchRepo.AggregateActive(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("batchPollWorker: AggregateActive error: %v", err)
		}
		return
	}
	for _, agg := range aggs {
		w.tracker.ObserveTotal(agg.SubmissionID, agg.TotalFiles)
	}
	w.tracker.Expire()
}
