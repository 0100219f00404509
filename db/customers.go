// ABOUTME: Customer, person, and business database operations
// ABOUTME: Handles creation, soft-delete-aware email lookup, and counting
package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/harperreed/intake/models"
)

func (s *Store) CreatePerson(ctx context.Context, person *models.Person) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (id, first_name, last_name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, person.ID.String(), person.FirstName, person.LastName, person.Email, person.Phone, person.CreatedAt, person.UpdatedAt)

	return err
}

func (s *Store) CreateBusiness(ctx context.Context, business *models.Business) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, business.ID.String(), business.Name, business.Email, business.Phone, business.CreatedAt, business.UpdatedAt)

	return err
}

func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	var personID, businessID *string
	if customer.PersonID != nil {
		v := customer.PersonID.String()
		personID = &v
	}
	if customer.BusinessID != nil {
		v := customer.BusinessID.String()
		businessID = &v
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, organization_id, number, tier, status, person_id, business_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, customer.ID.String(), customer.OrganizationID.String(), customer.Number, customer.Tier, customer.Status, personID, businessID, customer.CreatedAt, customer.UpdatedAt)

	return err
}

// FindCustomerByEmail looks up a non-deleted customer in the organization by
// its contact email, through either the backing person or business.
// Returns (nil, nil) when no customer matches.
func (s *Store) FindCustomerByEmail(ctx context.Context, organizationID uuid.UUID, email string) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.organization_id, c.number, c.tier, c.status, c.person_id, c.business_id, c.deleted_at, c.created_at, c.updated_at
		FROM customers c
		LEFT JOIN people p ON c.person_id = p.id
		LEFT JOIN businesses b ON c.business_id = b.id
		WHERE c.organization_id = ?
		  AND c.deleted_at IS NULL
		  AND (LOWER(p.email) = LOWER(?) OR LOWER(b.email) = LOWER(?))
		ORDER BY c.created_at
		LIMIT 1
	`, organizationID.String(), email, email)

	return scanCustomer(row)
}

// GetCustomer returns (nil, nil) when no customer matches.
func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, number, tier, status, person_id, business_id, deleted_at, created_at, updated_at
		FROM customers WHERE id = ?
	`, id.String())

	return scanCustomer(row)
}

// CountCustomers counts every customer in the organization, including
// soft-deleted ones, so allocated numbers are never reissued.
func (s *Store) CountCustomers(ctx context.Context, organizationID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM customers WHERE organization_id = ?
	`, organizationID.String()).Scan(&count)
	return count, err
}

func scanCustomer(row *sql.Row) (*models.Customer, error) {
	customer := &models.Customer{}
	var orgID string
	var personID, businessID sql.NullString

	err := row.Scan(
		&customer.ID,
		&orgID,
		&customer.Number,
		&customer.Tier,
		&customer.Status,
		&personID,
		&businessID,
		&customer.DeletedAt,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if customer.OrganizationID, err = uuid.Parse(orgID); err != nil {
		return nil, err
	}
	if personID.Valid {
		if pid, err := uuid.Parse(personID.String); err == nil {
			customer.PersonID = &pid
		}
	}
	if businessID.Valid {
		if bid, err := uuid.Parse(businessID.String); err == nil {
			customer.BusinessID = &bid
		}
	}

	return customer, nil
}
