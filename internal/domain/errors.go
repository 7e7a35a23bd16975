package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrBatchNotFound       = errors.New("batch not found")
	ErrBatchTerminal       = errors.New("batch is already in a terminal state")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrDuplicateInvoice    = errors.New("invoice already exists for this provider")
	ErrNoFiles             = errors.New("submission contains no files")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
)
