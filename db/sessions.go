// ABOUTME: Session database operations
// ABOUTME: Handles session CRUD, conversion markers, and abandonment sweeps
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/intake/formdata"
	"github.com/harperreed/intake/models"
)

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	encoded, err := formdata.Encode(session.FormData)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, organization_id, template_id, current_step, status, form_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.OrganizationID.String(), session.TemplateID.String(), session.CurrentStep, session.Status, encoded, session.CreatedAt, session.UpdatedAt)

	return err
}

// GetSession returns (nil, nil) when no session matches.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	var orgID, templateID, encoded string
	var customerID, quoteID sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, template_id, current_step, status, form_data, converted_at, customer_id, quote_id, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(
		&session.ID,
		&orgID,
		&templateID,
		&session.CurrentStep,
		&session.Status,
		&encoded,
		&session.ConvertedAt,
		&customerID,
		&quoteID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if session.OrganizationID, err = uuid.Parse(orgID); err != nil {
		return nil, err
	}
	if session.TemplateID, err = uuid.Parse(templateID); err != nil {
		return nil, err
	}
	if session.FormData, err = formdata.Parse(encoded); err != nil {
		return nil, err
	}
	if customerID.Valid {
		if cid, err := uuid.Parse(customerID.String); err == nil {
			session.CustomerID = &cid
		}
	}
	if quoteID.Valid {
		if qid, err := uuid.Parse(quoteID.String); err == nil {
			session.QuoteID = &qid
		}
	}

	return session, nil
}

// UpdateSession persists step position, status, and form data. Conversion
// markers only move through MarkSessionConverted.
func (s *Store) UpdateSession(ctx context.Context, session *models.Session) error {
	encoded, err := formdata.Encode(session.FormData)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET current_step = ?, status = ?, form_data = ?, updated_at = ?
		WHERE id = ?
	`, session.CurrentStep, session.Status, encoded, session.UpdatedAt, session.ID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListSessions returns an organization's sessions, newest first, optionally
// filtered by status.
func (s *Store) ListSessions(ctx context.Context, organizationID uuid.UUID, status string, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error

	if status != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id FROM sessions
			WHERE organization_id = ? AND status = ?
			ORDER BY created_at DESC
			LIMIT ?
		`, organizationID.String(), status, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id FROM sessions
			WHERE organization_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		`, organizationID.String(), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var sessions []models.Session
	for _, id := range ids {
		session, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if session != nil {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

// MarkSessionConverted sets the conversion markers only if they are still
// unset, reporting whether this call won the write.
func (s *Store) MarkSessionConverted(ctx context.Context, sessionID string, customerID, quoteID *uuid.UUID, at time.Time) (bool, error) {
	var customer, quote *string
	if customerID != nil {
		v := customerID.String()
		customer = &v
	}
	if quoteID != nil {
		v := quoteID.String()
		quote = &v
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET converted_at = ?, customer_id = ?, quote_id = ?, updated_at = ?
		WHERE id = ? AND converted_at IS NULL
	`, at, customer, quote, at, sessionID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpireSessions marks IN_PROGRESS sessions idle since before cutoff as
// ABANDONED and returns how many changed.
func (s *Store) ExpireSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?
	`, models.SessionAbandoned, time.Now(), models.SessionInProgress, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
