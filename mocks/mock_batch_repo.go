package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"facturas/internal/domain"
)

// MockBatchRepo is a mock implementation of port.BatchRepository.
type MockBatchRepo struct {
	mock.Mock
}

func (m *MockBatchRepo) Create(ctx context.Context, job *domain.BatchJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockBatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchJob), args.Error(1)
}

func (m *MockBatchRepo) Update(ctx context.Context, job *domain.BatchJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockBatchRepo) CompleteIfActive(ctx context.Context, job *domain.BatchJob) (bool, error) {
	args := m.Called(ctx, job)
	return args.Bool(0), args.Error(1)
}

func (m *MockBatchRepo) ListActive(ctx context.Context) ([]domain.BatchJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BatchJob), args.Error(1)
}

func (m *MockBatchRepo) ListRecent(ctx context.Context, limit int) ([]domain.BatchJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BatchJob), args.Error(1)
}

func (m *MockBatchRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]domain.BatchJob, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BatchJob), args.Error(1)
}

func (m *MockBatchRepo) AggregateActive(ctx context.Context) ([]domain.SubmissionAggregate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubmissionAggregate), args.Error(1)
}
