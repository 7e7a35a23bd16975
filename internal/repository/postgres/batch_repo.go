package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"facturas/internal/domain"
	"facturas/internal/port"
)

type batchRepo struct {
	db *sqlx.DB
}

// NewBatchRepo creates a new PostgreSQL-backed BatchRepository.
func NewBatchRepo(db *sqlx.DB) port.BatchRepository {
	return &batchRepo{db: db}
}

func (r *batchRepo) Create(ctx context.Context, job *domain.BatchJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	query := `INSERT INTO batch_jobs (
		id, submission_id, status, total_files, processed_files,
		successful_files, failed_files, blocked_files, current_file, errors,
		retry_attempts, retried_files, external_ref,
		created_at, started_at, completed_at, estimated_completion, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13,
		$14, $15, $16, $17, $18
	)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.SubmissionID, job.Status, job.TotalFiles, job.ProcessedFiles,
		job.SuccessfulFiles, job.FailedFiles, job.BlockedFiles, job.CurrentFile, job.Errors,
		job.RetryAttempts, job.RetriedFiles, job.ExternalRef,
		job.CreatedAt, job.StartedAt, job.CompletedAt, job.EstimatedCompletion, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("batchRepo.Create: %w", err)
	}
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error) {
	var job domain.BatchJob
	err := r.db.GetContext(ctx, &job, "SELECT * FROM batch_jobs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("batchRepo.GetByID: %w", err)
	}
	return &job, nil
}

func (r *batchRepo) Update(ctx context.Context, job *domain.BatchJob) error {
	job.UpdatedAt = time.Now().UTC()

	query := `UPDATE batch_jobs SET
		status = $2, total_files = $3, processed_files = $4,
		successful_files = $5, failed_files = $6, blocked_files = $7,
		current_file = $8, errors = $9, retry_attempts = $10, retried_files = $11,
		external_ref = $12, started_at = $13, completed_at = $14,
		estimated_completion = $15, updated_at = $16
	WHERE id = $1 AND completed_at IS NULL`

	res, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.TotalFiles, job.ProcessedFiles,
		job.SuccessfulFiles, job.FailedFiles, job.BlockedFiles,
		job.CurrentFile, job.Errors, job.RetryAttempts, job.RetriedFiles,
		job.ExternalRef, job.StartedAt, job.CompletedAt,
		job.EstimatedCompletion, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("batchRepo.Update: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("batchRepo.Update rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrBatchTerminal
	}
	return nil
}

func (r *batchRepo) CompleteIfActive(ctx context.Context, job *domain.BatchJob) (bool, error) {
	job.UpdatedAt = time.Now().UTC()

	query := `UPDATE batch_jobs SET
		status = $2, processed_files = $3, successful_files = $4,
		failed_files = $5, blocked_files = $6, current_file = $7, errors = $8,
		retry_attempts = $9, retried_files = $10, started_at = $11,
		completed_at = $12, updated_at = $13
	WHERE id = $1 AND completed_at IS NULL`

	res, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.ProcessedFiles, job.SuccessfulFiles,
		job.FailedFiles, job.BlockedFiles, job.CurrentFile, job.Errors,
		job.RetryAttempts, job.RetriedFiles, job.StartedAt,
		job.CompletedAt, job.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("batchRepo.CompleteIfActive: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("batchRepo.CompleteIfActive rows: %w", err)
	}
	return rows > 0, nil
}

func (r *batchRepo) ListActive(ctx context.Context) ([]domain.BatchJob, error) {
	var jobs []domain.BatchJob
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT * FROM batch_jobs WHERE status IN ('pending', 'processing')
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.ListActive: %w", err)
	}
	return jobs, nil
}

func (r *batchRepo) ListRecent(ctx context.Context, limit int) ([]domain.BatchJob, error) {
	var jobs []domain.BatchJob
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT * FROM batch_jobs
		 WHERE status IN ('pending', 'processing')
		    OR completed_at > now() - interval '24 hours'
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.ListRecent: %w", err)
	}
	return jobs, nil
}

func (r *batchRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]domain.BatchJob, error) {
	var jobs []domain.BatchJob
	err := r.db.SelectContext(ctx, &jobs,
		"SELECT * FROM batch_jobs WHERE submission_id = $1 ORDER BY created_at ASC", submissionID)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.ListBySubmission: %w", err)
	}
	return jobs, nil
}

func (r *batchRepo) AggregateActive(ctx context.Context) ([]domain.SubmissionAggregate, error) {
	// Recently-terminal rows stay in the aggregate so a submission whose
	// chunks all complete between two polls still reaches its ready signal.
	var aggs []domain.SubmissionAggregate
	err := r.db.SelectContext(ctx, &aggs,
		`SELECT submission_id,
		        COALESCE(SUM(total_files), 0)     AS total_files,
		        COALESCE(SUM(processed_files), 0) AS processed_files,
		        COUNT(*) FILTER (WHERE status IN ('pending', 'processing')) AS active_batches
		 FROM batch_jobs
		 WHERE status IN ('pending', 'processing')
		    OR completed_at > now() - interval '1 hour'
		 GROUP BY submission_id`)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.AggregateActive: %w", err)
	}
	return aggs, nil
}
