// ABOUTME: Template database operations
// ABOUTME: Stores per-organization conversion settings and conversion counts
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/intake/models"
)

func (s *Store) CreateTemplate(ctx context.Context, template *models.Template) error {
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	now := time.Now()
	template.CreatedAt = now
	template.UpdatedAt = now

	customerMapping, err := encodeMapping(template.Settings.CustomerMapping)
	if err != nil {
		return err
	}
	quoteMapping, err := encodeMapping(template.Settings.QuoteMapping)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, organization_id, name, customer_mapping, quote_mapping, conversions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, template.ID.String(), template.OrganizationID.String(), template.Name, customerMapping, quoteMapping, template.Conversions, template.CreatedAt, template.UpdatedAt)

	return err
}

// GetTemplate returns (nil, nil) when no template matches.
func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	template := &models.Template{}
	var orgID string
	var customerMapping, quoteMapping sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, customer_mapping, quote_mapping, conversions, created_at, updated_at
		FROM templates WHERE id = ?
	`, id.String()).Scan(
		&template.ID,
		&orgID,
		&template.Name,
		&customerMapping,
		&quoteMapping,
		&template.Conversions,
		&template.CreatedAt,
		&template.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if template.OrganizationID, err = uuid.Parse(orgID); err != nil {
		return nil, err
	}
	if template.Settings.CustomerMapping, err = decodeMapping(customerMapping); err != nil {
		return nil, err
	}
	if template.Settings.QuoteMapping, err = decodeMapping(quoteMapping); err != nil {
		return nil, err
	}

	return template, nil
}

func (s *Store) IncrementTemplateConversions(ctx context.Context, templateID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE templates SET conversions = conversions + 1, updated_at = ? WHERE id = ?
	`, time.Now(), templateID.String())
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// encodeMapping keeps a nil mapping as SQL NULL so absence stays
// distinguishable from an empty table.
func encodeMapping(mapping map[string]string) (*string, error) {
	if mapping == nil {
		return nil, nil
	}
	data, err := json.Marshal(mapping)
	if err != nil {
		return nil, err
	}
	encoded := string(data)
	return &encoded, nil
}

func decodeMapping(raw sql.NullString) (map[string]string, error) {
	if !raw.Valid {
		return nil, nil
	}
	var mapping map[string]string
	if err := json.Unmarshal([]byte(raw.String), &mapping); err != nil {
		return nil, err
	}
	if mapping == nil {
		mapping = map[string]string{}
	}
	return mapping, nil
}
