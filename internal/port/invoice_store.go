package port

import (
	"context"

	"github.com/google/uuid"

	"facturas/internal/domain"
)

// InvoiceStore defines the persistence contract the ingestion pipeline
// consumes. Implementations must make CreateInvoiceWithItems atomic and
// must resolve concurrent find-or-create races on the unique CIF/code keys
// instead of failing.
type InvoiceStore interface {
	// FindInvoice returns the invoice with the given code for the provider,
	// or domain.ErrInvoiceNotFound.
	FindInvoice(ctx context.Context, code string, providerID uuid.UUID) (*domain.Invoice, error)
	// CreateInvoiceWithItems commits the invoice and all its items in one
	// transaction; either everything is persisted or nothing is.
	CreateInvoiceWithItems(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceItem) error
	FindOrCreateProvider(ctx context.Context, cif, name string) (*domain.Provider, error)
	FindOrCreateMaterial(ctx context.Context, name, code string) (*domain.Material, error)
	IsProviderBlocked(ctx context.Context, providerID uuid.UUID) (bool, error)
}
