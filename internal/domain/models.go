package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BatchJob represents one physical chunk of a logical invoice submission
// dispatched to the external extraction service. Several BatchJob rows may
// share a SubmissionID; the presentation layer aggregates them.
type BatchJob struct {
	ID                  uuid.UUID   `db:"id" json:"id"`
	SubmissionID        uuid.UUID   `db:"submission_id" json:"submission_id"`
	Status              BatchStatus `db:"status" json:"status"`
	TotalFiles          int         `db:"total_files" json:"total_files"`
	ProcessedFiles      int         `db:"processed_files" json:"processed_files"`
	SuccessfulFiles     int         `db:"successful_files" json:"successful_files"`
	FailedFiles         int         `db:"failed_files" json:"failed_files"`
	BlockedFiles        int         `db:"blocked_files" json:"blocked_files"`
	CurrentFile         string      `db:"current_file" json:"current_file"`
	Errors              ErrorList   `db:"errors" json:"errors"`
	RetryAttempts       int         `db:"retry_attempts" json:"retry_attempts"`
	RetriedFiles        int         `db:"retried_files" json:"retried_files"`
	ExternalRef         string      `db:"external_ref" json:"external_ref"`
	CreatedAt           time.Time   `db:"created_at" json:"created_at"`
	StartedAt           *time.Time  `db:"started_at" json:"started_at"`
	CompletedAt         *time.Time  `db:"completed_at" json:"completed_at"`
	EstimatedCompletion *time.Time  `db:"estimated_completion" json:"estimated_completion"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updated_at"`
}

// ErrorDetail is one entry in a batch's append-only error log.
type ErrorDetail struct {
	Kind        ErrorKind `json:"kind"`
	Message     string    `json:"message"`
	FileName    string    `json:"file_name,omitempty"`
	InvoiceCode string    `json:"invoice_code,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorList stores ErrorDetail entries as a jsonb column.
type ErrorList []ErrorDetail

// Value implements driver.Valuer.
func (l ErrorList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ErrorList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = ErrorList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("ErrorList.Scan: unsupported type %T", src)
	}
}

// Provider is a supplier identified by its CIF (Spanish tax id).
type Provider struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CIF       string    `db:"cif" json:"cif"`
	Blocked   bool      `db:"blocked" json:"blocked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Material is a purchasable good referenced by invoice line items.
type Material struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Invoice is a persisted invoice header. Code is unique per provider.
type Invoice struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	ProviderID        uuid.UUID `db:"provider_id" json:"provider_id"`
	IssueDate         time.Time `db:"issue_date" json:"issue_date"`
	TotalAmount       float64   `db:"total_amount" json:"total_amount"`
	IVAPercentage     float64   `db:"iva_percentage" json:"iva_percentage"`
	RetentionAmount   float64   `db:"retention_amount" json:"retention_amount"`
	HasTotalsMismatch bool      `db:"has_totals_mismatch" json:"has_totals_mismatch"`
	WorkOrder         string    `db:"work_order" json:"work_order"`
	SourceFile        string    `db:"source_file" json:"source_file"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// InvoiceItem is one line of a persisted invoice.
type InvoiceItem struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	InvoiceID          uuid.UUID `db:"invoice_id" json:"invoice_id"`
	MaterialID         uuid.UUID `db:"material_id" json:"material_id"`
	Quantity           float64   `db:"quantity" json:"quantity"`
	ListPrice          *float64  `db:"list_price" json:"list_price"`
	DiscountPercentage *float64  `db:"discount_percentage" json:"discount_percentage"`
	DiscountRaw        string    `db:"discount_raw" json:"discount_raw"`
	UnitPrice          float64   `db:"unit_price" json:"unit_price"`
	TotalPrice         float64   `db:"total_price" json:"total_price"`
	WorkOrder          string    `db:"work_order" json:"work_order"`
	Position           int       `db:"position" json:"position"`
}

// SubmittedFile is one uploaded PDF inside a submission.
type SubmittedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// SubmissionAggregate summarizes the active batch rows of one logical
// submission, for progress reporting.
type SubmissionAggregate struct {
	SubmissionID   uuid.UUID `db:"submission_id" json:"submission_id"`
	TotalFiles     int       `db:"total_files" json:"total_files"`
	ProcessedFiles int       `db:"processed_files" json:"processed_files"`
	ActiveBatches  int       `db:"active_batches" json:"active_batches"`
}
