package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"facturas/internal/domain"
	"facturas/internal/port"
)

// MockExtractionService is a mock implementation of port.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) Submit(ctx context.Context, files []domain.SubmittedFile) (string, error) {
	args := m.Called(ctx, files)
	return args.String(0), args.Error(1)
}

func (m *MockExtractionService) GetStatus(ctx context.Context, jobRef string) (*port.JobStatus, error) {
	args := m.Called(ctx, jobRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.JobStatus), args.Error(1)
}

func (m *MockExtractionService) ReadOutput(ctx context.Context, outputRef string) (io.ReadCloser, error) {
	args := m.Called(ctx, outputRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}
