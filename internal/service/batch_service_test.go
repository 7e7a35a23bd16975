package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"facturas/internal/config"
	"facturas/internal/domain"
	"facturas/internal/mapper"
	"facturas/internal/port"
	"facturas/internal/progress"
	"facturas/internal/reconcile"
	"facturas/internal/service"
	"facturas/mocks"
)

func testConfig() *config.Config {
	return &config.Config{
		S3: config.S3Config{MaxFileSizeMB: 25},
		Extraction: config.ExtractionConfig{
			RateLimitMarkers: []string{"quota", "429", "RESOURCE_EXHAUSTED"},
		},
		Batch: config.BatchConfig{
			ChunkSize:           50,
			MaxDispatchRetries:  3,
			DispatchBackoffSecs: 0,
			TotalsTolerance:     0.5,
		},
	}
}

func setupBatchService(cfg *config.Config) (service.BatchService, *mocks.MockBatchRepo, *mocks.MockInvoiceStore, *mocks.MockExtractionService) {
	batchRepo := new(mocks.MockBatchRepo)
	store := new(mocks.MockInvoiceStore)
	extractor := new(mocks.MockExtractionService)
	tracker := progress.NewTracker(progress.NewBus(), time.Minute)
	svc := service.NewBatchService(
		batchRepo, store, extractor, nil,
		mapper.New(store, cfg.Batch.TotalsTolerance),
		reconcile.New(store),
		tracker, cfg,
	)
	return svc, batchRepo, store, extractor
}

func setupBatchServiceWithStorage(cfg *config.Config) (service.BatchService, *mocks.MockBatchRepo, *mocks.MockExtractionService, *mocks.MockObjectStorage) {
	batchRepo := new(mocks.MockBatchRepo)
	store := new(mocks.MockInvoiceStore)
	extractor := new(mocks.MockExtractionService)
	storage := new(mocks.MockObjectStorage)
	tracker := progress.NewTracker(progress.NewBus(), time.Minute)
	svc := service.NewBatchService(
		batchRepo, store, extractor, storage,
		mapper.New(store, cfg.Batch.TotalsTolerance),
		reconcile.New(store),
		tracker, cfg,
	)
	return svc, batchRepo, extractor, storage
}

func pdfFiles(n int) []domain.SubmittedFile {
	files := make([]domain.SubmittedFile, 0, n)
	for i := 1; i <= n; i++ {
		files = append(files, domain.SubmittedFile{
			Name:        fmt.Sprintf("factura%d.pdf", i),
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4"),
		})
	}
	return files
}

func invoicePayload(code string) string {
	return fmt.Sprintf(`{
		"invoiceCode": %q,
		"provider": {"name": "Aceros del Norte SL", "cif": "B12345678"},
		"issueDate": "2025-03-01",
		"totalAmount": 121.0,
		"ivaPercentage": 21,
		"retentionAmount": 0,
		"items": [{"materialName": "Tornillo M8", "quantity": 10, "unitPrice": 10.0, "totalPrice": 100.0}]
	}`, code)
}

func resultLine(t *testing.T, key, payload string) string {
	t.Helper()
	line, err := json.Marshal(map[string]interface{}{
		"key":      key,
		"response": map[string]interface{}{"text": payload},
	})
	require.NoError(t, err)
	return string(line)
}

func outputReader(lines ...string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func allowInvoicePersistence(store *mocks.MockInvoiceStore) *domain.Provider {
	provider := &domain.Provider{ID: uuid.New(), Name: "Aceros del Norte SL", CIF: "B12345678"}
	store.On("FindOrCreateProvider", mock.Anything, "B12345678", mock.Anything).Return(provider, nil)
	store.On("FindOrCreateMaterial", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Material{ID: uuid.New(), Name: "Tornillo M8"}, nil)
	store.On("IsProviderBlocked", mock.Anything, provider.ID).Return(false, nil)
	return provider
}

// --- Submit ---

func TestBatchService_Submit_SingleChunk(t *testing.T) {
	svc, batchRepo, _, extractor := setupBatchService(testConfig())

	batchRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.BatchJob")).Return(nil)
	batchRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.BatchJob")).Return(nil)
	extractor.On("Submit", mock.Anything, mock.Anything).Return("batches/job-1", nil)

	result, err := svc.Submit(context.Background(), &service.SubmitBatchInput{Files: pdfFiles(3)})
	require.NoError(t, err)
	require.Len(t, result.Batches, 1)

	job := result.Batches[0]
	assert.Equal(t, result.SubmissionID, job.SubmissionID)
	assert.Equal(t, domain.BatchStatusProcessing, job.Status)
	assert.Equal(t, 3, job.TotalFiles)
	assert.Equal(t, "batches/job-1", job.ExternalRef)
	assert.NotNil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestBatchService_Submit_Chunking(t *testing.T) {
	cfg := testConfig()
	cfg.Batch.ChunkSize = 2
	svc, batchRepo, _, extractor := setupBatchService(cfg)

	batchRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	extractor.On("Submit", mock.Anything, mock.Anything).Return("batches/job", nil)

	result, err := svc.Submit(context.Background(), &service.SubmitBatchInput{Files: pdfFiles(5)})
	require.NoError(t, err)
	require.Len(t, result.Batches, 3)
	assert.Equal(t, 2, result.Batches[0].TotalFiles)
	assert.Equal(t, 2, result.Batches[1].TotalFiles)
	assert.Equal(t, 1, result.Batches[2].TotalFiles)
	for _, job := range result.Batches {
		assert.Equal(t, result.SubmissionID, job.SubmissionID)
	}
}

func TestBatchService_Submit_Validation(t *testing.T) {
	svc, _, _, _ := setupBatchService(testConfig())

	_, err := svc.Submit(context.Background(), &service.SubmitBatchInput{})
	assert.ErrorIs(t, err, domain.ErrNoFiles)

	_, err = svc.Submit(context.Background(), &service.SubmitBatchInput{Files: []domain.SubmittedFile{
		{Name: "notas.txt", ContentType: "text/plain", Data: []byte("hola")},
	}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestBatchService_Submit_DispatchFailureIsolatedPerChunk(t *testing.T) {
	cfg := testConfig()
	cfg.Batch.ChunkSize = 2
	cfg.Batch.MaxDispatchRetries = 1
	svc, batchRepo, _, extractor := setupBatchService(cfg)

	batchRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("CompleteIfActive", mock.Anything, mock.Anything).Return(true, nil)

	extractor.On("Submit", mock.Anything, mock.Anything).Return("", errors.New("invalid request")).Once()
	extractor.On("Submit", mock.Anything, mock.Anything).Return("batches/job-2", nil).Once()

	result, err := svc.Submit(context.Background(), &service.SubmitBatchInput{Files: pdfFiles(4)})
	require.NoError(t, err)
	require.Len(t, result.Batches, 2)

	failed := result.Batches[0]
	assert.Equal(t, domain.BatchStatusFailed, failed.Status)
	assert.Equal(t, 2, failed.FailedFiles)
	assert.Equal(t, 2, failed.ProcessedFiles)
	assert.NotNil(t, failed.CompletedAt)
	require.Len(t, failed.Errors, 1)
	assert.Equal(t, domain.ErrorKindOther, failed.Errors[0].Kind)
	assert.True(t, failed.CountersConsistent())

	ok := result.Batches[1]
	assert.Equal(t, domain.BatchStatusProcessing, ok.Status)
	assert.Empty(t, ok.Errors)
}

func TestBatchService_Submit_TransientDispatchRetried(t *testing.T) {
	svc, batchRepo, _, extractor := setupBatchService(testConfig())

	batchRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	extractor.On("Submit", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()
	extractor.On("Submit", mock.Anything, mock.Anything).Return("batches/job-1", nil).Once()

	result, err := svc.Submit(context.Background(), &service.SubmitBatchInput{Files: pdfFiles(2)})
	require.NoError(t, err)

	job := result.Batches[0]
	assert.Equal(t, domain.BatchStatusProcessing, job.Status)
	assert.Equal(t, 1, job.RetryAttempts)
	assert.Equal(t, 2, job.RetriedFiles)
	extractor.AssertNumberOfCalls(t, "Submit", 2)
}

func TestBatchService_Submit_StagesFiles(t *testing.T) {
	cfg := testConfig()
	cfg.S3.Bucket = "facturas-uploads"
	svc, batchRepo, extractor, storage := setupBatchServiceWithStorage(cfg)

	batchRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	extractor.On("Submit", mock.Anything, mock.Anything).Return("batches/job-1", nil)
	storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).Return(nil)

	result, err := svc.Submit(context.Background(), &service.SubmitBatchInput{Files: pdfFiles(2)})
	require.NoError(t, err)

	storage.AssertNumberOfCalls(t, "Upload", 2)
	batchID := result.Batches[0].ID
	storage.AssertCalled(t, "Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "facturas-uploads" &&
			in.Key == fmt.Sprintf("batches/%s/factura1.pdf", batchID)
	}))
	storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchService_Submit_FailedDispatchDiscardsStagedFiles(t *testing.T) {
	cfg := testConfig()
	cfg.S3.Bucket = "facturas-uploads"
	cfg.Batch.MaxDispatchRetries = 1
	svc, batchRepo, extractor, storage := setupBatchServiceWithStorage(cfg)

	batchRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("CompleteIfActive", mock.Anything, mock.Anything).Return(true, nil)
	extractor.On("Submit", mock.Anything, mock.Anything).Return("", errors.New("invalid request"))
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil)
	storage.On("Delete", mock.Anything, "facturas-uploads", mock.Anything).Return(nil)

	result, err := svc.Submit(context.Background(), &service.SubmitBatchInput{Files: pdfFiles(2)})
	require.NoError(t, err)
	require.Len(t, result.Batches, 1)
	assert.Equal(t, domain.BatchStatusFailed, result.Batches[0].Status)

	storage.AssertNumberOfCalls(t, "Delete", 2)
	batchID := result.Batches[0].ID
	storage.AssertCalled(t, "Delete", mock.Anything, "facturas-uploads",
		fmt.Sprintf("batches/%s/factura2.pdf", batchID))
}

func TestBatchService_DownloadStagedFile(t *testing.T) {
	cfg := testConfig()
	cfg.S3.Bucket = "facturas-uploads"
	svc, _, _, storage := setupBatchServiceWithStorage(cfg)

	batchID := uuid.New()
	storage.On("Download", mock.Anything, "facturas-uploads",
		fmt.Sprintf("batches/%s/factura1.pdf", batchID)).Return([]byte("%PDF-1.4"), nil)

	data, err := svc.DownloadStagedFile(context.Background(), batchID, "factura1.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestBatchService_DownloadStagedFile_StagingDisabled(t *testing.T) {
	svc, _, _, _ := setupBatchService(testConfig())

	_, err := svc.DownloadStagedFile(context.Background(), uuid.New(), "factura1.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- Poll + ingest ---

func completedStatus(outputRef string) *port.JobStatus {
	return &port.JobStatus{
		State:           domain.BatchStatusCompleted,
		ProcessedFiles:  -1,
		SuccessfulFiles: -1,
		FailedFiles:     -1,
		OutputRef:       outputRef,
	}
}

func processingJob(totalFiles int) *domain.BatchJob {
	now := time.Now().UTC()
	started := now.Add(-time.Minute)
	return &domain.BatchJob{
		ID:           uuid.New(),
		SubmissionID: uuid.New(),
		Status:       domain.BatchStatusProcessing,
		TotalFiles:   totalFiles,
		Errors:       domain.ErrorList{},
		ExternalRef:  "batches/job-1",
		CreatedAt:    now.Add(-2 * time.Minute),
		StartedAt:    &started,
	}
}

func TestBatchService_Poll_CleanBatch(t *testing.T) {
	svc, batchRepo, store, extractor := setupBatchService(testConfig())
	provider := allowInvoicePersistence(store)

	_ = provider
	job := processingJob(3)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(completedStatus("files/out-1"), nil)
	extractor.On("ReadOutput", mock.Anything, "files/out-1").Return(outputReader(
		resultLine(t, "factura1.pdf", invoicePayload("FAC-100")),
		resultLine(t, "factura2.pdf", invoicePayload("FAC-101")),
		resultLine(t, "factura3.pdf", invoicePayload("FAC-102")),
	), nil)
	store.On("FindInvoice", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrInvoiceNotFound)
	store.On("CreateInvoiceWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("CompleteIfActive", mock.Anything, job).Return(true, nil)

	require.NoError(t, svc.Poll(context.Background(), job))

	assert.Equal(t, domain.BatchStatusCompleted, job.Status)
	assert.Equal(t, 3, job.TotalFiles)
	assert.Equal(t, 3, job.SuccessfulFiles)
	assert.Equal(t, 0, job.FailedFiles)
	assert.Equal(t, 0, job.BlockedFiles)
	assert.Empty(t, job.Errors)
	assert.NotNil(t, job.CompletedAt)
	assert.True(t, job.CountersConsistent())
	store.AssertNumberOfCalls(t, "CreateInvoiceWithItems", 3)
}

func TestBatchService_Poll_MixedBatch(t *testing.T) {
	svc, batchRepo, store, extractor := setupBatchService(testConfig())
	provider := allowInvoicePersistence(store)

	job := processingJob(3)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(completedStatus("files/out-1"), nil)
	extractor.On("ReadOutput", mock.Anything, "files/out-1").Return(outputReader(
		resultLine(t, "factura1.pdf", invoicePayload("FAC-100")),
		resultLine(t, "factura2.pdf", "esto no es json de ninguna manera"),
		resultLine(t, "factura3.pdf", invoicePayload("FAC-001")),
	), nil)
	store.On("FindInvoice", mock.Anything, "FAC-100", provider.ID).Return(nil, domain.ErrInvoiceNotFound)
	store.On("FindInvoice", mock.Anything, "FAC-001", provider.ID).
		Return(&domain.Invoice{ID: uuid.New(), Code: "FAC-001", ProviderID: provider.ID}, nil)
	store.On("CreateInvoiceWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("CompleteIfActive", mock.Anything, job).Return(true, nil)

	require.NoError(t, svc.Poll(context.Background(), job))

	assert.Equal(t, domain.BatchStatusCompleted, job.Status)
	assert.Equal(t, 1, job.SuccessfulFiles)
	assert.Equal(t, 1, job.FailedFiles)
	assert.Equal(t, 0, job.BlockedFiles)
	assert.True(t, job.CountersConsistent())
	store.AssertNumberOfCalls(t, "CreateInvoiceWithItems", 1)

	kinds := make(map[domain.ErrorKind]int)
	for _, detail := range job.Errors {
		kinds[detail.Kind]++
	}
	assert.Equal(t, 1, kinds[domain.ErrorKindParsing])
	assert.Equal(t, 1, kinds[domain.ErrorKindDuplicateInvoice])
}

func TestBatchService_Poll_BlockedProvider(t *testing.T) {
	svc, batchRepo, store, extractor := setupBatchService(testConfig())

	provider := &domain.Provider{ID: uuid.New(), Name: "Proveedor Vetado SL", CIF: "B12345678", Blocked: true}
	store.On("FindOrCreateProvider", mock.Anything, "B12345678", mock.Anything).Return(provider, nil)
	store.On("FindOrCreateMaterial", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Material{ID: uuid.New()}, nil)

	job := processingJob(1)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(completedStatus("files/out-1"), nil)
	extractor.On("ReadOutput", mock.Anything, "files/out-1").Return(outputReader(
		resultLine(t, "factura1.pdf", invoicePayload("FAC-500")),
	), nil)
	batchRepo.On("CompleteIfActive", mock.Anything, job).Return(true, nil)

	require.NoError(t, svc.Poll(context.Background(), job))

	assert.Equal(t, domain.BatchStatusCompleted, job.Status)
	assert.Equal(t, 0, job.SuccessfulFiles)
	assert.Equal(t, 1, job.BlockedFiles)
	assert.True(t, job.CountersConsistent())
	require.Len(t, job.Errors, 1)
	assert.Equal(t, domain.ErrorKindBlockedProvider, job.Errors[0].Kind)
	store.AssertNotCalled(t, "CreateInvoiceWithItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchService_Poll_NoDoubleIngestion(t *testing.T) {
	svc, batchRepo, store, extractor := setupBatchService(testConfig())
	provider := allowInvoicePersistence(store)
	_ = provider

	job := processingJob(1)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(completedStatus("files/out-1"), nil)
	extractor.On("ReadOutput", mock.Anything, "files/out-1").Return(outputReader(
		resultLine(t, "factura1.pdf", invoicePayload("FAC-100")),
	), nil)
	store.On("FindInvoice", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrInvoiceNotFound)
	store.On("CreateInvoiceWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	batchRepo.On("CompleteIfActive", mock.Anything, job).Return(true, nil)

	require.NoError(t, svc.Poll(context.Background(), job))
	require.NotNil(t, job.CompletedAt)

	// The second poll on the now-terminal batch is a no-op.
	require.NoError(t, svc.Poll(context.Background(), job))

	store.AssertNumberOfCalls(t, "CreateInvoiceWithItems", 1)
	extractor.AssertNumberOfCalls(t, "GetStatus", 1)
	extractor.AssertNumberOfCalls(t, "ReadOutput", 1)
}

func TestBatchService_Poll_ExternalJobFailed(t *testing.T) {
	svc, batchRepo, _, extractor := setupBatchService(testConfig())

	job := processingJob(2)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(&port.JobStatus{
		State:           domain.BatchStatusFailed,
		ProcessedFiles:  2,
		SuccessfulFiles: 0,
		FailedFiles:     2,
	}, nil)
	batchRepo.On("CompleteIfActive", mock.Anything, job).Return(true, nil)

	require.NoError(t, svc.Poll(context.Background(), job))

	assert.Equal(t, domain.BatchStatusFailed, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, 2, job.FailedFiles)
	require.Len(t, job.Errors, 1)
	assert.Equal(t, domain.ErrorKindOther, job.Errors[0].Kind)
	extractor.AssertNotCalled(t, "ReadOutput", mock.Anything, mock.Anything)
}

func TestBatchService_Poll_ExternalJobCancelled(t *testing.T) {
	svc, batchRepo, _, extractor := setupBatchService(testConfig())

	job := processingJob(2)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(&port.JobStatus{
		State:           domain.BatchStatusCancelled,
		ProcessedFiles:  -1,
		SuccessfulFiles: -1,
		FailedFiles:     -1,
	}, nil)
	batchRepo.On("CompleteIfActive", mock.Anything, job).Return(true, nil)

	require.NoError(t, svc.Poll(context.Background(), job))

	assert.Equal(t, domain.BatchStatusCancelled, job.Status)
	assert.NotNil(t, job.CompletedAt)
	extractor.AssertNotCalled(t, "ReadOutput", mock.Anything, mock.Anything)
}

func TestBatchService_Poll_AdoptsReportedCounters(t *testing.T) {
	svc, batchRepo, _, extractor := setupBatchService(testConfig())

	job := processingJob(10)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(&port.JobStatus{
		State:           domain.BatchStatusProcessing,
		ProcessedFiles:  4,
		SuccessfulFiles: -1,
		FailedFiles:     -1,
	}, nil)
	batchRepo.On("Update", mock.Anything, job).Return(nil)

	require.NoError(t, svc.Poll(context.Background(), job))

	assert.Equal(t, domain.BatchStatusProcessing, job.Status)
	assert.Equal(t, 4, job.ProcessedFiles)
	assert.Equal(t, 0, job.SuccessfulFiles)
	require.NotNil(t, job.EstimatedCompletion)
	assert.True(t, job.EstimatedCompletion.After(*job.StartedAt))
}

func TestBatchService_Poll_NoEstimateWithoutProgress(t *testing.T) {
	svc, batchRepo, _, extractor := setupBatchService(testConfig())

	job := processingJob(10)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(&port.JobStatus{
		State:           domain.BatchStatusProcessing,
		ProcessedFiles:  0,
		SuccessfulFiles: -1,
		FailedFiles:     -1,
	}, nil)
	batchRepo.On("Update", mock.Anything, job).Return(nil)

	require.NoError(t, svc.Poll(context.Background(), job))
	assert.Nil(t, job.EstimatedCompletion)
}

func TestBatchService_Poll_PendingJobUntouched(t *testing.T) {
	svc, _, _, extractor := setupBatchService(testConfig())

	job := processingJob(1)
	job.Status = domain.BatchStatusPending
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(&port.JobStatus{
		State:           domain.BatchStatusPending,
		ProcessedFiles:  -1,
		SuccessfulFiles: -1,
		FailedFiles:     -1,
	}, nil)

	require.NoError(t, svc.Poll(context.Background(), job))
	assert.Equal(t, domain.BatchStatusPending, job.Status)
}

func TestBatchService_Poll_ExtractionErrorRecord(t *testing.T) {
	svc, batchRepo, store, extractor := setupBatchService(testConfig())
	_ = allowInvoicePersistence(store)

	job := processingJob(1)
	extractor.On("GetStatus", mock.Anything, "batches/job-1").Return(completedStatus("files/out-1"), nil)
	extractor.On("ReadOutput", mock.Anything, "files/out-1").Return(outputReader(
		`{"key": "factura1.pdf", "error": {"message": "document unreadable"}}`,
	), nil)
	batchRepo.On("CompleteIfActive", mock.Anything, job).Return(true, nil)

	require.NoError(t, svc.Poll(context.Background(), job))

	assert.Equal(t, domain.BatchStatusCompleted, job.Status)
	assert.Equal(t, 1, job.FailedFiles)
	require.Len(t, job.Errors, 1)
	assert.Equal(t, domain.ErrorKindExtraction, job.Errors[0].Kind)
	assert.Equal(t, "factura1.pdf", job.Errors[0].FileName)
}
