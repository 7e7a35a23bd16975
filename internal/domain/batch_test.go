package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/internal/domain"
)

func TestBatchJob_MarkProcessing_SetsStartedAtOnce(t *testing.T) {
	job := &domain.BatchJob{Status: domain.BatchStatusPending}

	first := time.Now()
	job.MarkProcessing(first)
	require.NotNil(t, job.StartedAt)
	assert.Equal(t, first, *job.StartedAt)

	job.MarkProcessing(first.Add(time.Minute))
	assert.Equal(t, first, *job.StartedAt)
	assert.Equal(t, domain.BatchStatusProcessing, job.Status)
}

func TestBatchJob_Complete_Idempotent(t *testing.T) {
	eta := time.Now().Add(time.Minute)
	job := &domain.BatchJob{
		Status:              domain.BatchStatusProcessing,
		CurrentFile:         "factura3.pdf",
		EstimatedCompletion: &eta,
	}

	first := time.Now()
	job.Complete(domain.BatchStatusCompleted, first)
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, first, *job.CompletedAt)
	assert.Empty(t, job.CurrentFile)
	assert.Nil(t, job.EstimatedCompletion)

	// A later completion attempt must not move the timestamp or the status.
	job.Complete(domain.BatchStatusFailed, first.Add(time.Hour))
	assert.Equal(t, first, *job.CompletedAt)
	assert.Equal(t, domain.BatchStatusCompleted, job.Status)
}

func TestBatchJob_CountersConsistent(t *testing.T) {
	job := &domain.BatchJob{
		TotalFiles:      5,
		ProcessedFiles:  4,
		SuccessfulFiles: 2,
		FailedFiles:     1,
		BlockedFiles:    1,
	}
	assert.True(t, job.CountersConsistent())

	job.FailedFiles = 2
	assert.False(t, job.CountersConsistent())

	job.FailedFiles = 1
	job.ProcessedFiles = 6
	job.SuccessfulFiles = 4
	assert.False(t, job.CountersConsistent())
}

func TestBatchStatus_IsTerminal(t *testing.T) {
	assert.False(t, domain.BatchStatusPending.IsTerminal())
	assert.False(t, domain.BatchStatusProcessing.IsTerminal())
	assert.True(t, domain.BatchStatusCompleted.IsTerminal())
	assert.True(t, domain.BatchStatusFailed.IsTerminal())
	assert.True(t, domain.BatchStatusCancelled.IsTerminal())
}

func TestErrorList_ScanValue(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	list := domain.ErrorList{
		{Kind: domain.ErrorKindDuplicateInvoice, Message: "ya existe", FileName: "f.pdf", Timestamp: now},
	}

	raw, err := list.Value()
	require.NoError(t, err)

	var scanned domain.ErrorList
	require.NoError(t, scanned.Scan(raw))
	require.Len(t, scanned, 1)
	assert.Equal(t, domain.ErrorKindDuplicateInvoice, scanned[0].Kind)
	assert.Equal(t, "ya existe", scanned[0].Message)

	var empty domain.ErrorList
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)

	nilValue, err := domain.ErrorList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), nilValue)
}
