// ABOUTME: Quote database operations
// ABOUTME: Handles quote creation, lookup, and per-organization counting
package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/harperreed/intake/models"
)

func (s *Store) CreateQuote(ctx context.Context, quote *models.Quote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (id, organization_id, number, customer_id, created_by_id, status, description, notes, valid_until, subtotal, tax, total, raw_form_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, quote.ID.String(), quote.OrganizationID.String(), quote.Number, quote.CustomerID.String(), quote.CreatedByID.String(), quote.Status,
		quote.Description, quote.Notes, quote.ValidUntil, quote.Subtotal, quote.Tax, quote.Total, quote.RawFormData, quote.CreatedAt, quote.UpdatedAt)

	return err
}

// GetQuote returns (nil, nil) when no quote matches.
func (s *Store) GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote := &models.Quote{}
	var orgID, customerID, createdByID string
	var description, notes, rawFormData sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, number, customer_id, created_by_id, status, description, notes, valid_until, subtotal, tax, total, raw_form_data, created_at, updated_at
		FROM quotes WHERE id = ?
	`, id.String()).Scan(
		&quote.ID,
		&orgID,
		&quote.Number,
		&customerID,
		&createdByID,
		&quote.Status,
		&description,
		&notes,
		&quote.ValidUntil,
		&quote.Subtotal,
		&quote.Tax,
		&quote.Total,
		&rawFormData,
		&quote.CreatedAt,
		&quote.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if quote.OrganizationID, err = uuid.Parse(orgID); err != nil {
		return nil, err
	}
	if quote.CustomerID, err = uuid.Parse(customerID); err != nil {
		return nil, err
	}
	if quote.CreatedByID, err = uuid.Parse(createdByID); err != nil {
		return nil, err
	}
	quote.Description = description.String
	quote.Notes = notes.String
	quote.RawFormData = rawFormData.String

	return quote, nil
}

func (s *Store) CountQuotes(ctx context.Context, organizationID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM quotes WHERE organization_id = ?
	`, organizationID.String()).Scan(&count)
	return count, err
}
