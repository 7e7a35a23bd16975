package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"facturas/internal/domain"
	"facturas/internal/port"
)

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceStore.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceStore {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) FindInvoice(ctx context.Context, code string, providerID uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.GetContext(ctx, &inv,
		"SELECT * FROM invoices WHERE code = $1 AND provider_id = $2", code, providerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.FindInvoice: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) CreateInvoiceWithItems(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceItem) error {
	inv.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("invoiceRepo.CreateInvoiceWithItems begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO invoices (
			id, code, provider_id, issue_date, total_amount,
			iva_percentage, retention_amount, has_totals_mismatch,
			work_order, source_file, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inv.ID, inv.Code, inv.ProviderID, inv.IssueDate, inv.TotalAmount,
		inv.IVAPercentage, inv.RetentionAmount, inv.HasTotalsMismatch,
		inv.WorkOrder, inv.SourceFile, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.CreateInvoiceWithItems invoice: %w", err)
	}

	for i := range items {
		item := &items[i]
		_, err = tx.ExecContext(ctx,
			`INSERT INTO invoice_items (
				id, invoice_id, material_id, quantity, list_price,
				discount_percentage, discount_raw, unit_price, total_price,
				work_order, position
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			item.ID, item.InvoiceID, item.MaterialID, item.Quantity, item.ListPrice,
			item.DiscountPercentage, item.DiscountRaw, item.UnitPrice, item.TotalPrice,
			item.WorkOrder, item.Position)
		if err != nil {
			return fmt.Errorf("invoiceRepo.CreateInvoiceWithItems item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("invoiceRepo.CreateInvoiceWithItems commit: %w", err)
	}
	return nil
}

func (r *invoiceRepo) FindOrCreateProvider(ctx context.Context, cif, name string) (*domain.Provider, error) {
	now := time.Now().UTC()
	// Concurrent creation of the same CIF is a benign race: the conflict
	// clause swallows the loser's insert and the follow-up select returns
	// the winner's row.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO providers (id, name, cif, blocked, created_at, updated_at)
		 VALUES ($1, $2, $3, false, $4, $4)
		 ON CONFLICT (cif) DO NOTHING`,
		uuid.New(), name, cif, now)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.FindOrCreateProvider insert: %w", err)
	}

	var provider domain.Provider
	if err := r.db.GetContext(ctx, &provider, "SELECT * FROM providers WHERE cif = $1", cif); err != nil {
		return nil, fmt.Errorf("invoiceRepo.FindOrCreateProvider select: %w", err)
	}
	return &provider, nil
}

func (r *invoiceRepo) FindOrCreateMaterial(ctx context.Context, name, code string) (*domain.Material, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO materials (id, name, code, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (name) DO NOTHING`,
		uuid.New(), name, code, now)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.FindOrCreateMaterial insert: %w", err)
	}

	var material domain.Material
	if err := r.db.GetContext(ctx, &material, "SELECT * FROM materials WHERE name = $1", name); err != nil {
		return nil, fmt.Errorf("invoiceRepo.FindOrCreateMaterial select: %w", err)
	}
	return &material, nil
}

func (r *invoiceRepo) IsProviderBlocked(ctx context.Context, providerID uuid.UUID) (bool, error) {
	var blocked bool
	err := r.db.GetContext(ctx, &blocked,
		"SELECT blocked FROM providers WHERE id = $1", providerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrProviderNotFound
		}
		return false, fmt.Errorf("invoiceRepo.IsProviderBlocked: %w", err)
	}
	return blocked, nil
}
