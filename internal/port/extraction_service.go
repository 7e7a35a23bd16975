package port

import (
	"context"
	"io"

	"facturas/internal/domain"
)

// JobState is the external extraction service's state vocabulary, already
// mapped onto the batch status enum by the client.
type JobState = domain.BatchStatus

// JobStatus is the result of polling an extraction job.
type JobStatus struct {
	State JobState
	// Counts are adopted when the service reports them; -1 means absent.
	ProcessedFiles  int
	SuccessfulFiles int
	FailedFiles     int
	// OutputRef points at the line-delimited result blob once the job
	// succeeded; empty until then.
	OutputRef string
}

// ExtractionService is the external large-document extraction collaborator.
type ExtractionService interface {
	// Submit dispatches one chunk of files and returns the opaque job handle.
	Submit(ctx context.Context, files []domain.SubmittedFile) (jobRef string, err error)
	GetStatus(ctx context.Context, jobRef string) (*JobStatus, error)
	// ReadOutput streams the newline-delimited result records. The caller
	// closes the reader.
	ReadOutput(ctx context.Context, outputRef string) (io.ReadCloser, error)
}
