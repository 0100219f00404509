// ABOUTME: User database operations
// ABOUTME: Handles user creation and quote-creator resolution by role
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/intake/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, organization_id, email, name, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID.String(), user.OrganizationID.String(), user.Email, user.Name, user.Role, user.Active, user.CreatedAt, user.UpdatedAt)

	return err
}

// FindQuoteCreator returns any active admin in the organization, or
// (nil, nil) when none exists.
func (s *Store) FindQuoteCreator(ctx context.Context, organizationID uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var orgID string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, email, name, role, active, created_at, updated_at
		FROM users
		WHERE organization_id = ? AND role = ? AND active = 1
		ORDER BY created_at
		LIMIT 1
	`, organizationID.String(), models.RoleAdmin).Scan(
		&user.ID,
		&orgID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if user.OrganizationID, err = uuid.Parse(orgID); err != nil {
		return nil, err
	}

	return user, nil
}
