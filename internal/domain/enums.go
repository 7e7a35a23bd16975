package domain

// BatchStatus represents the lifecycle state of a batch job.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

// ActiveBatchStatuses are the non-terminal states a poller advances.
var ActiveBatchStatuses = []BatchStatus{BatchStatusPending, BatchStatusProcessing}

// IsTerminal reports whether the status admits no further transitions.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled:
		return true
	}
	return false
}

// ErrorKind classifies a per-record or batch-level ingestion error.
type ErrorKind string

const (
	ErrorKindDuplicateInvoice ErrorKind = "duplicate_invoice"
	ErrorKindParsing          ErrorKind = "parsing_error"
	ErrorKindExtraction       ErrorKind = "extraction_error"
	ErrorKindBlockedProvider  ErrorKind = "blocked_provider"
	ErrorKindOther            ErrorKind = "other"
)
