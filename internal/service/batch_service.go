package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"facturas/internal/config"
	"facturas/internal/domain"
	"facturas/internal/extraction"
	"facturas/internal/mapper"
	"facturas/internal/parser"
	"facturas/internal/port"
	"facturas/internal/progress"
	"facturas/internal/reconcile"
)

// SubmitBatchInput is the DTO for submitting a set of invoice PDFs.
type SubmitBatchInput struct {
	Files []domain.SubmittedFile
}

// SubmitBatchResult reports the batches created for one logical submission.
type SubmitBatchResult struct {
	SubmissionID uuid.UUID         `json:"submission_id"`
	Batches      []domain.BatchJob `json:"batches"`
}

// BatchService owns the ingestion batch lifecycle: chunking and dispatch,
// polling the external job, and ingesting its output.
type BatchService interface {
	Submit(ctx context.Context, input *SubmitBatchInput) (*SubmitBatchResult, error)
	// Poll advances one batch against the external job state. It is
	// idempotent and safe to call repeatedly, including on terminal batches.
	Poll(ctx context.Context, job *domain.BatchJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error)
	ListRecent(ctx context.Context, limit int) ([]domain.BatchJob, error)
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]domain.BatchJob, error)
	// DownloadStagedFile returns the staged source PDF of one submitted file.
	DownloadStagedFile(ctx context.Context, batchID uuid.UUID, name string) ([]byte, error)
}

type batchService struct {
	batchRepo port.BatchRepository
	store     port.InvoiceStore
	extractor port.ExtractionService
	storage   port.ObjectStorage
	mapper    *mapper.Mapper
	checker   *reconcile.Checker
	tracker   *progress.Tracker
	retry     extraction.RetryPolicy
	bucket    string
	chunkSize int
	maxBytes  int64
	now       func() time.Time
}

// NewBatchService creates a BatchService.
func NewBatchService(
	batchRepo port.BatchRepository,
	store port.InvoiceStore,
	extractor port.ExtractionService,
	storage port.ObjectStorage,
	invoiceMapper *mapper.Mapper,
	checker *reconcile.Checker,
	tracker *progress.Tracker,
	cfg *config.Config,
) BatchService {
	return &batchService{
		batchRepo: batchRepo,
		store:     store,
		extractor: extractor,
		storage:   storage,
		mapper:    invoiceMapper,
		checker:   checker,
		tracker:   tracker,
		retry: extraction.RetryPolicy{
			MaxAttempts: cfg.Batch.MaxDispatchRetries,
			Backoff:     time.Duration(cfg.Batch.DispatchBackoffSecs) * time.Second,
			Transient: func(err error) bool {
				return extraction.IsTransient(err, cfg.Extraction.RateLimitMarkers)
			},
		},
		bucket:    cfg.S3.Bucket,
		chunkSize: cfg.Batch.ChunkSize,
		maxBytes:  cfg.S3.MaxFileSizeMB * 1024 * 1024,
		now:       time.Now,
	}
}

// Submit chunks the submitted files, creates one batch row per chunk and
// dispatches each chunk to the extraction service. Chunks fail
// independently: a dispatch failure marks its own batch failed and leaves
// sibling chunks untouched.
func (s *batchService) Submit(ctx context.Context, input *SubmitBatchInput) (*SubmitBatchResult, error) {
	if len(input.Files) == 0 {
		return nil, domain.ErrNoFiles
	}
	for _, f := range input.Files {
		if !strings.EqualFold(f.ContentType, "application/pdf") {
			return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedFileType, f.Name, f.ContentType)
		}
		if s.maxBytes > 0 && int64(len(f.Data)) > s.maxBytes {
			return nil, fmt.Errorf("%w: %s", domain.ErrFileTooLarge, f.Name)
		}
	}

	submissionID := uuid.New()
	s.tracker.BatchCreated(submissionID, len(input.Files))

	result := &SubmitBatchResult{SubmissionID: submissionID}
	for _, chunk := range chunkFiles(input.Files, s.chunkSize) {
		job, err := s.dispatchChunk(ctx, submissionID, chunk)
		if err != nil {
			return nil, err
		}
		result.Batches = append(result.Batches, *job)
	}

	log.Printf("batchService.Submit: submission %s dispatched as %d batch(es), %d file(s)",
		submissionID, len(result.Batches), len(input.Files))
	return result, nil
}

func (s *batchService) dispatchChunk(ctx context.Context, submissionID uuid.UUID, chunk []domain.SubmittedFile) (*domain.BatchJob, error) {
	now := s.now()
	job := &domain.BatchJob{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		Status:       domain.BatchStatusPending,
		TotalFiles:   len(chunk),
		Errors:       domain.ErrorList{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.batchRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating batch record: %w", err)
	}

	s.stageFiles(ctx, job.ID, chunk)

	retries, err := s.retry.Do(ctx, "submit chunk", func(ctx context.Context) error {
		ref, submitErr := s.extractor.Submit(ctx, chunk)
		if submitErr != nil {
			return submitErr
		}
		job.ExternalRef = ref
		return nil
	})
	job.RetryAttempts = retries
	if retries > 0 {
		job.RetriedFiles = len(chunk)
	}

	if err != nil {
		log.Printf("batchService.dispatchChunk: batch %s dispatch failed after %d retries: %v", job.ID, retries, err)
		job.AppendError(domain.ErrorKindOther, fmt.Sprintf("dispatch failed: %v", err), "", "", s.now())
		job.ProcessedFiles = len(chunk)
		job.FailedFiles = len(chunk)
		job.Complete(domain.BatchStatusFailed, s.now())
		if _, cerr := s.batchRepo.CompleteIfActive(ctx, job); cerr != nil {
			log.Printf("batchService.dispatchChunk: persisting failed batch %s: %v", job.ID, cerr)
		}
		s.discardStagedFiles(ctx, job.ID, chunk)
		return job, nil
	}

	job.MarkProcessing(s.now())
	job.UpdatedAt = s.now()
	if err := s.batchRepo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("updating batch %s after dispatch: %w", job.ID, err)
	}
	return job, nil
}

// stageFiles copies the submitted PDFs into object storage so a batch can be
// audited or re-run later. Staging is best effort: a failed upload is logged
// and never blocks dispatch.
func (s *batchService) stageFiles(ctx context.Context, batchID uuid.UUID, chunk []domain.SubmittedFile) {
	if s.storage == nil || s.bucket == "" {
		return
	}
	for _, f := range chunk {
		key := stagedKey(batchID, f.Name)
		err := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.bucket,
			Key:         key,
			Body:        bytes.NewReader(f.Data),
			ContentType: f.ContentType,
		})
		if err != nil {
			log.Printf("batchService.stageFiles: staging %s failed: %v", key, err)
		}
	}
}

// discardStagedFiles removes the staged copies of a chunk whose dispatch was
// abandoned. Best effort, like staging itself.
func (s *batchService) discardStagedFiles(ctx context.Context, batchID uuid.UUID, chunk []domain.SubmittedFile) {
	if s.storage == nil || s.bucket == "" {
		return
	}
	for _, f := range chunk {
		key := stagedKey(batchID, f.Name)
		if err := s.storage.Delete(ctx, s.bucket, key); err != nil {
			log.Printf("batchService.discardStagedFiles: removing %s: %v", key, err)
		}
	}
}

// DownloadStagedFile fetches one staged source PDF from object storage.
func (s *batchService) DownloadStagedFile(ctx context.Context, batchID uuid.UUID, name string) ([]byte, error) {
	if s.storage == nil || s.bucket == "" {
		return nil, domain.ErrNotFound
	}
	data, err := s.storage.Download(ctx, s.bucket, stagedKey(batchID, name))
	if err != nil {
		return nil, fmt.Errorf("downloading staged file %s for batch %s: %w", name, batchID, err)
	}
	return data, nil
}

func stagedKey(batchID uuid.UUID, name string) string {
	return fmt.Sprintf("batches/%s/%s", batchID, name)
}

// Poll queries the external job and advances the batch accordingly. Terminal
// batches and batches whose dispatch never succeeded are left untouched.
func (s *batchService) Poll(ctx context.Context, job *domain.BatchJob) error {
	if job.IsTerminal() || job.CompletedAt != nil || job.ExternalRef == "" {
		return nil
	}

	var status *port.JobStatus
	_, err := s.retry.Do(ctx, "poll job", func(ctx context.Context) error {
		var pollErr error
		status, pollErr = s.extractor.GetStatus(ctx, job.ExternalRef)
		return pollErr
	})
	if err != nil {
		return fmt.Errorf("polling batch %s: %w", job.ID, err)
	}

	adoptCounters(job, status)

	switch status.State {
	case domain.BatchStatusPending:
		return nil
	case domain.BatchStatusProcessing:
		now := s.now()
		job.MarkProcessing(now)
		job.EstimatedCompletion = estimateCompletion(job, now)
		job.UpdatedAt = now
		return s.batchRepo.Update(ctx, job)
	case domain.BatchStatusCompleted:
		return s.ingest(ctx, job, status.OutputRef)
	case domain.BatchStatusFailed:
		job.AppendError(domain.ErrorKindOther, "extraction job failed", "", "", s.now())
		return s.finalize(ctx, job, domain.BatchStatusFailed)
	case domain.BatchStatusCancelled:
		return s.finalize(ctx, job, domain.BatchStatusCancelled)
	default:
		return nil
	}
}

// adoptCounters takes over the counters the external service reports; -1
// means the service did not report that counter.
func adoptCounters(job *domain.BatchJob, status *port.JobStatus) {
	if status.ProcessedFiles >= 0 {
		job.ProcessedFiles = status.ProcessedFiles
	}
	if status.SuccessfulFiles >= 0 {
		job.SuccessfulFiles = status.SuccessfulFiles
	}
	if status.FailedFiles >= 0 {
		job.FailedFiles = status.FailedFiles
	}
}

// estimateCompletion projects when a processing batch will finish from the
// pace observed so far. Nil until at least one file has been processed.
func estimateCompletion(job *domain.BatchJob, now time.Time) *time.Time {
	if job.StartedAt == nil || job.ProcessedFiles <= 0 || job.ProcessedFiles >= job.TotalFiles {
		return nil
	}
	perFile := now.Sub(*job.StartedAt) / time.Duration(job.ProcessedFiles)
	eta := now.Add(perFile * time.Duration(job.TotalFiles-job.ProcessedFiles))
	return &eta
}

// ingest streams the job output and drives every record through recovery
// parsing, mapping, reconciliation and persistence. One bad record never
// aborts the loop. Ingestion runs at most once per batch, guarded by
// CompletedAt.
func (s *batchService) ingest(ctx context.Context, job *domain.BatchJob, outputRef string) error {
	if job.CompletedAt != nil {
		return nil
	}
	if outputRef == "" {
		job.AppendError(domain.ErrorKindOther, "job completed without output", "", "", s.now())
		return s.finalize(ctx, job, domain.BatchStatusFailed)
	}

	reader, err := s.extractor.ReadOutput(ctx, outputRef)
	if err != nil {
		job.AppendError(domain.ErrorKindOther, fmt.Sprintf("reading job output: %v", err), "", "", s.now())
		return s.finalize(ctx, job, domain.BatchStatusFailed)
	}
	defer func() { _ = reader.Close() }()

	// Counters are recomputed from the actual ingest outcome; the external
	// service's own numbers are only a progress approximation.
	job.ProcessedFiles = 0
	job.SuccessfulFiles = 0
	job.FailedFiles = 0
	job.BlockedFiles = 0

	sc := extraction.NewResultScanner(reader)
	for sc.Scan() {
		s.ingestRecord(ctx, job, sc.Record())
	}
	if err := sc.Err(); err != nil {
		job.AppendError(domain.ErrorKindOther, fmt.Sprintf("reading result stream: %v", err), "", "", s.now())
	}

	log.Printf("batchService.ingest: batch %s ingested: %d processed, %d successful, %d failed, %d blocked, %d error(s)",
		job.ID, job.ProcessedFiles, job.SuccessfulFiles, job.FailedFiles, job.BlockedFiles, len(job.Errors))
	return s.finalize(ctx, job, domain.BatchStatusCompleted)
}

func (s *batchService) ingestRecord(ctx context.Context, job *domain.BatchJob, rec extraction.RawRecord) {
	job.CurrentFile = rec.Key

	if rec.Err != nil {
		kind := domain.ErrorKindParsing
		var recErr *extraction.RecordError
		if errors.As(rec.Err, &recErr) {
			kind = domain.ErrorKindExtraction
		}
		job.AppendError(kind, rec.Err.Error(), rec.Key, "", s.now())
		job.ProcessedFiles++
		job.FailedFiles++
		return
	}

	inv := parser.Parse(rec.Text)
	if inv == nil {
		job.AppendError(domain.ErrorKindParsing, "unrecoverable extraction output", rec.Key, "", s.now())
		job.ProcessedFiles++
		job.FailedFiles++
		return
	}

	mapped, err := s.mapper.Map(ctx, inv, rec.Key)
	if err != nil {
		kind := domain.ErrorKindOther
		var mapErr *mapper.MappingError
		if errors.As(err, &mapErr) {
			kind = mapErr.Kind
		}
		job.AppendError(kind, err.Error(), rec.Key, inv.InvoiceCode, s.now())
		job.ProcessedFiles++
		job.FailedFiles++
		return
	}

	outcome, err := s.checker.Check(ctx, mapped.Invoice, mapped.Provider)
	if err != nil {
		job.AppendError(domain.ErrorKindOther, err.Error(), rec.Key, mapped.Invoice.Code, s.now())
		job.ProcessedFiles++
		job.FailedFiles++
		return
	}

	switch outcome.Decision {
	case reconcile.Reject:
		job.AppendError(outcome.Kind, outcome.Message, rec.Key, mapped.Invoice.Code, s.now())
		job.ProcessedFiles++
		job.BlockedFiles++
		return
	case reconcile.Skip:
		// A duplicate is benign: recorded for the user, but it neither
		// succeeds nor fails the file.
		job.AppendError(outcome.Kind, outcome.Message, rec.Key, mapped.Invoice.Code, s.now())
		return
	}

	if err := s.store.CreateInvoiceWithItems(ctx, mapped.Invoice, mapped.Items); err != nil {
		job.AppendError(domain.ErrorKindOther, fmt.Sprintf("persisting invoice %s: %v", mapped.Invoice.Code, err), rec.Key, mapped.Invoice.Code, s.now())
		job.ProcessedFiles++
		job.FailedFiles++
		return
	}
	job.ProcessedFiles++
	job.SuccessfulFiles++
}

// finalize stamps the terminal state and writes it with the conditional
// completion guard. Losing the guard means a concurrent poller already
// completed the batch, which is not an error.
func (s *batchService) finalize(ctx context.Context, job *domain.BatchJob, status domain.BatchStatus) error {
	job.Complete(status, s.now())
	job.UpdatedAt = s.now()
	won, err := s.batchRepo.CompleteIfActive(ctx, job)
	if err != nil {
		return fmt.Errorf("completing batch %s: %w", job.ID, err)
	}
	if !won {
		log.Printf("batchService.finalize: batch %s was already completed by a concurrent poller", job.ID)
	}
	return nil
}

func (s *batchService) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error) {
	return s.batchRepo.GetByID(ctx, id)
}

func (s *batchService) ListRecent(ctx context.Context, limit int) ([]domain.BatchJob, error) {
	return s.batchRepo.ListRecent(ctx, limit)
}

func (s *batchService) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]domain.BatchJob, error) {
	return s.batchRepo.ListBySubmission(ctx, submissionID)
}

// chunkFiles splits files into slices of at most size entries. Chunking
// only bounds the payload of one dispatch request.
func chunkFiles(files []domain.SubmittedFile, size int) [][]domain.SubmittedFile {
	if size <= 0 {
		size = len(files)
	}
	var chunks [][]domain.SubmittedFile
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		chunks = append(chunks, files[start:end])
	}
	return chunks
}
