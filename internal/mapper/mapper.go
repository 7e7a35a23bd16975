package mapper

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"facturas/internal/domain"
	"facturas/internal/port"
)

// unitPriceTolerance is the allowed rounding drift between the extracted
// unitPrice and the one recomputed from listPrice and discountPercentage.
const unitPriceTolerance = 0.01

// MappingError reports why an extracted invoice could not be turned into a
// persistable one. Kind feeds straight into the batch error log.
type MappingError struct {
	Kind    domain.ErrorKind
	Message string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping invoice: %s", e.Message)
}

// MappedInvoice is the persistence-ready form of one extracted invoice.
type MappedInvoice struct {
	Provider *domain.Provider
	Invoice  *domain.Invoice
	Items    []domain.InvoiceItem
}

// Mapper validates extracted invoices and converts them into internal
// records, resolving providers and materials through the invoice store.
type Mapper struct {
	store     port.InvoiceStore
	tolerance float64
}

// New creates a Mapper. tolerance is the totals mismatch threshold in
// currency units.
func New(store port.InvoiceStore, tolerance float64) *Mapper {
	return &Mapper{store: store, tolerance: tolerance}
}

var issueDateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// Map converts an extracted invoice into a MappedInvoice. Validation
// failures return a *MappingError; store failures are returned as-is.
func (m *Mapper) Map(ctx context.Context, ext *domain.ExtractedInvoice, sourceFile string) (*MappedInvoice, error) {
	if ext.InvoiceCode == "" {
		return nil, &MappingError{Kind: domain.ErrorKindParsing, Message: "missing invoice code"}
	}
	if ext.Provider.CIF == "" {
		return nil, &MappingError{Kind: domain.ErrorKindParsing, Message: "missing provider CIF"}
	}
	if len(ext.Items) == 0 {
		return nil, &MappingError{Kind: domain.ErrorKindParsing, Message: "invoice has no line items"}
	}

	issueDate, err := parseIssueDate(ext.IssueDate)
	if err != nil {
		return nil, &MappingError{Kind: domain.ErrorKindParsing, Message: fmt.Sprintf("invalid issue date %q", ext.IssueDate)}
	}

	provider, err := m.store.FindOrCreateProvider(ctx, ext.Provider.CIF, ext.Provider.Name)
	if err != nil {
		return nil, fmt.Errorf("resolving provider %s: %w", ext.Provider.CIF, err)
	}

	workOrder := firstWorkOrder(ext.Items)

	invoiceID := uuid.New()
	items := make([]domain.InvoiceItem, 0, len(ext.Items))
	var itemsTotal float64
	for i, line := range ext.Items {
		material, err := m.store.FindOrCreateMaterial(ctx, line.MaterialName, line.MaterialCode)
		if err != nil {
			return nil, fmt.Errorf("resolving material %q: %w", line.MaterialName, err)
		}

		item := domain.InvoiceItem{
			ID:                 uuid.New(),
			InvoiceID:          invoiceID,
			MaterialID:         material.ID,
			Quantity:           line.Quantity,
			ListPrice:          line.ListPrice,
			DiscountPercentage: line.DiscountPercentage,
			DiscountRaw:        line.DiscountRaw,
			UnitPrice:          resolveUnitPrice(line),
			TotalPrice:         line.TotalPrice,
			WorkOrder:          workOrder,
			Position:           i,
		}
		itemsTotal += item.TotalPrice
		items = append(items, item)
	}

	recomputed := itemsTotal*(1+ext.IVAPercentage/100) - ext.RetentionAmount
	mismatch := math.Abs(ext.TotalAmount-recomputed) > m.tolerance

	inv := &domain.Invoice{
		ID:                invoiceID,
		Code:              ext.InvoiceCode,
		ProviderID:        provider.ID,
		IssueDate:         issueDate,
		TotalAmount:       ext.TotalAmount,
		IVAPercentage:     ext.IVAPercentage,
		RetentionAmount:   ext.RetentionAmount,
		HasTotalsMismatch: mismatch,
		WorkOrder:         workOrder,
		SourceFile:        sourceFile,
	}

	return &MappedInvoice{Provider: provider, Invoice: inv, Items: items}, nil
}

// firstWorkOrder returns the first non-empty work order in document order.
// All items of the document are assigned this value, matching how the
// dashboards attribute a whole invoice to one cost center.
func firstWorkOrder(items []domain.ExtractedLineItem) string {
	for _, it := range items {
		if it.WorkOrder != "" {
			return it.WorkOrder
		}
	}
	return ""
}

// resolveUnitPrice recomputes the unit price from listPrice and
// discountPercentage when both are present and agree with the extracted
// unitPrice within rounding tolerance. Otherwise the extracted unitPrice is
// authoritative.
func resolveUnitPrice(line domain.ExtractedLineItem) float64 {
	if line.ListPrice == nil || line.DiscountPercentage == nil {
		return line.UnitPrice
	}
	computed := *line.ListPrice * (1 - *line.DiscountPercentage/100)
	if math.Abs(computed-line.UnitPrice) <= unitPriceTolerance {
		return computed
	}
	return line.UnitPrice
}

func parseIssueDate(s string) (time.Time, error) {
	for _, layout := range issueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}
