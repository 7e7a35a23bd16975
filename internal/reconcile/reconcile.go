package reconcile

import (
	"context"
	"errors"
	"fmt"

	"facturas/internal/domain"
	"facturas/internal/port"
)

// Decision says what happens to one mapped invoice before persistence.
type Decision int

const (
	// Accept means the invoice proceeds to persistence.
	Accept Decision = iota
	// Skip means the invoice already exists and is silently not re-persisted.
	Skip
	// Reject means policy forbids persisting the invoice.
	Reject
)

// Outcome is the reconciliation verdict for one invoice. Kind is set for
// Skip and Reject so the caller can log the right ErrorDetail.
type Outcome struct {
	Decision Decision
	Kind     domain.ErrorKind
	Message  string
}

// Checker decides accept/skip/reject for mapped invoices against existing
// records.
type Checker struct {
	store port.InvoiceStore
}

// New creates a Checker backed by the invoice store.
func New(store port.InvoiceStore) *Checker {
	return &Checker{store: store}
}

// Check applies the reconciliation rules. The blocked-provider check runs
// strictly before the duplicate check: a duplicate submission from a
// now-blocked provider reports as blocked, not as duplicate.
func (c *Checker) Check(ctx context.Context, inv *domain.Invoice, provider *domain.Provider) (Outcome, error) {
	blocked := provider.Blocked
	if !blocked {
		var err error
		blocked, err = c.store.IsProviderBlocked(ctx, provider.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("checking blocked provider %s: %w", provider.CIF, err)
		}
	}
	if blocked {
		return Outcome{
			Decision: Reject,
			Kind:     domain.ErrorKindBlockedProvider,
			Message:  fmt.Sprintf("provider %s (%s) is blocked", provider.Name, provider.CIF),
		}, nil
	}

	existing, err := c.store.FindInvoice(ctx, inv.Code, provider.ID)
	if err != nil && !errors.Is(err, domain.ErrInvoiceNotFound) {
		return Outcome{}, fmt.Errorf("looking up invoice %s: %w", inv.Code, err)
	}
	if existing != nil {
		return Outcome{
			Decision: Skip,
			Kind:     domain.ErrorKindDuplicateInvoice,
			Message:  fmt.Sprintf("invoice %s already exists for provider %s", inv.Code, provider.CIF),
		}, nil
	}

	return Outcome{Decision: Accept}, nil
}
