// ABOUTME: Narrow record store interface consumed by the conversion engine
// ABOUTME: Implemented by the db package and by in-memory fakes in tests
package convert

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/intake/models"
)

// Store is the slice of the record store the conversion engine needs. Lookup
// methods return (nil, nil) when no record matches, mirroring the db
// package's sql.ErrNoRows handling.
type Store interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error)

	// FindCustomerByEmail searches the organization's customers by contact
	// email, excluding soft-deleted records.
	FindCustomerByEmail(ctx context.Context, organizationID uuid.UUID, email string) (*models.Customer, error)

	CountCustomers(ctx context.Context, organizationID uuid.UUID) (int, error)
	CountQuotes(ctx context.Context, organizationID uuid.UUID) (int, error)

	CreatePerson(ctx context.Context, person *models.Person) error
	CreateBusiness(ctx context.Context, business *models.Business) error
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	CreateQuote(ctx context.Context, quote *models.Quote) error

	// FindQuoteCreator returns any active admin user in the organization, or
	// (nil, nil) when none exists.
	FindQuoteCreator(ctx context.Context, organizationID uuid.UUID) (*models.User, error)

	// MarkSessionConverted sets the session's conversion markers if and only
	// if they are still unset. It reports whether this call won the write.
	MarkSessionConverted(ctx context.Context, sessionID string, customerID, quoteID *uuid.UUID, at time.Time) (bool, error)

	IncrementTemplateConversions(ctx context.Context, templateID uuid.UUID) error
}
