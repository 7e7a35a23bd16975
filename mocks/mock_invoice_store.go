package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"facturas/internal/domain"
)

// MockInvoiceStore is a mock implementation of port.InvoiceStore.
type MockInvoiceStore struct {
	mock.Mock
}

func (m *MockInvoiceStore) FindInvoice(ctx context.Context, code string, providerID uuid.UUID) (*domain.Invoice, error) {
	args := m.Called(ctx, code, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceStore) CreateInvoiceWithItems(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceItem) error {
	args := m.Called(ctx, inv, items)
	return args.Error(0)
}

func (m *MockInvoiceStore) FindOrCreateProvider(ctx context.Context, cif, name string) (*domain.Provider, error) {
	args := m.Called(ctx, cif, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Provider), args.Error(1)
}

func (m *MockInvoiceStore) FindOrCreateMaterial(ctx context.Context, name, code string) (*domain.Material, error) {
	args := m.Called(ctx, name, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Material), args.Error(1)
}

func (m *MockInvoiceStore) IsProviderBlocked(ctx context.Context, providerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, providerID)
	return args.Bool(0), args.Error(1)
}
