package domain

import "time"

// IsTerminal reports whether the batch reached a terminal state.
func (b *BatchJob) IsTerminal() bool {
	return b.Status.IsTerminal()
}

// MarkProcessing transitions the batch to processing. StartedAt is set on
// the first transition only.
func (b *BatchJob) MarkProcessing(now time.Time) {
	if b.IsTerminal() {
		return
	}
	b.Status = BatchStatusProcessing
	if b.StartedAt == nil {
		t := now
		b.StartedAt = &t
	}
}

// Complete moves the batch into a terminal state and stamps CompletedAt
// exactly once. Calling Complete on an already-terminal batch is a no-op.
func (b *BatchJob) Complete(status BatchStatus, now time.Time) {
	if b.CompletedAt != nil {
		return
	}
	b.Status = status
	t := now
	b.CompletedAt = &t
	b.CurrentFile = ""
	b.EstimatedCompletion = nil
}

// AppendError records an ErrorDetail. The error log is append-only.
func (b *BatchJob) AppendError(kind ErrorKind, msg, fileName, invoiceCode string, now time.Time) {
	b.Errors = append(b.Errors, ErrorDetail{
		Kind:        kind,
		Message:     msg,
		FileName:    fileName,
		InvoiceCode: invoiceCode,
		Timestamp:   now,
	})
}

// CountersConsistent checks the terminal-state counter identity:
// processed = successful + failed + blocked, and processed never exceeds
// the submitted file count.
func (b *BatchJob) CountersConsistent() bool {
	return b.ProcessedFiles == b.SuccessfulFiles+b.FailedFiles+b.BlockedFiles &&
		b.ProcessedFiles <= b.TotalFiles
}
