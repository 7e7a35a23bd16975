package port

import (
	"context"

	"github.com/google/uuid"

	"facturas/internal/domain"
)

// BatchRepository defines the contract for batch job persistence.
type BatchRepository interface {
	Create(ctx context.Context, job *domain.BatchJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error)
	// Update persists mutable batch fields (status, counters, errors,
	// external ref, timestamps). Terminal rows are never updated again.
	Update(ctx context.Context, job *domain.BatchJob) error
	// CompleteIfActive writes the terminal snapshot of the job only when the
	// stored row has no completed_at yet. It reports whether this caller won
	// the transition, so concurrent pollers cannot double-complete a batch.
	CompleteIfActive(ctx context.Context, job *domain.BatchJob) (bool, error)
	// ListActive returns batches in pending or processing state.
	ListActive(ctx context.Context) ([]domain.BatchJob, error)
	// ListRecent returns active plus recently-terminal batches for the
	// status endpoint, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.BatchJob, error)
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]domain.BatchJob, error)
	// AggregateActive sums file counts across the active rows of each
	// submission, for progress reporting.
	AggregateActive(ctx context.Context) ([]domain.SubmissionAggregate, error)
}
