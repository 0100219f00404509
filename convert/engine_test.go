// ABOUTME: Tests for the conversion engine against an in-memory store fake
// ABOUTME: Covers branching, dedup, numbering, idempotency, and failure results
package convert

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/intake/formdata"
	"github.com/harperreed/intake/models"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type memStore struct {
	sessions   map[string]*models.Session
	templates  map[uuid.UUID]*models.Template
	people     map[uuid.UUID]*models.Person
	businesses map[uuid.UUID]*models.Business
	customers  []*models.Customer
	quotes     []*models.Quote
	users      []*models.User

	createQuoteErr    error
	customerInsertErr []error // consumed per CreateCustomer call
}

func newMemStore() *memStore {
	return &memStore{
		sessions:   map[string]*models.Session{},
		templates:  map[uuid.UUID]*models.Template{},
		people:     map[uuid.UUID]*models.Person{},
		businesses: map[uuid.UUID]*models.Business{},
	}
}

func (s *memStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	return s.sessions[id], nil
}

func (s *memStore) GetTemplate(_ context.Context, id uuid.UUID) (*models.Template, error) {
	return s.templates[id], nil
}

func (s *memStore) FindCustomerByEmail(_ context.Context, organizationID uuid.UUID, email string) (*models.Customer, error) {
	for _, c := range s.customers {
		if c.OrganizationID != organizationID || c.DeletedAt != nil {
			continue
		}
		if c.PersonID != nil && s.people[*c.PersonID].Email == email {
			return c, nil
		}
		if c.BusinessID != nil && s.businesses[*c.BusinessID].Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (s *memStore) CountCustomers(_ context.Context, organizationID uuid.UUID) (int, error) {
	n := 0
	for _, c := range s.customers {
		if c.OrganizationID == organizationID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountQuotes(_ context.Context, organizationID uuid.UUID) (int, error) {
	n := 0
	for _, q := range s.quotes {
		if q.OrganizationID == organizationID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreatePerson(_ context.Context, p *models.Person) error {
	s.people[p.ID] = p
	return nil
}

func (s *memStore) CreateBusiness(_ context.Context, b *models.Business) error {
	s.businesses[b.ID] = b
	return nil
}

func (s *memStore) CreateCustomer(_ context.Context, c *models.Customer) error {
	if len(s.customerInsertErr) > 0 {
		err := s.customerInsertErr[0]
		s.customerInsertErr = s.customerInsertErr[1:]
		if err != nil {
			return err
		}
	}
	copied := *c
	s.customers = append(s.customers, &copied)
	return nil
}

func (s *memStore) CreateQuote(_ context.Context, q *models.Quote) error {
	if s.createQuoteErr != nil {
		return s.createQuoteErr
	}
	copied := *q
	s.quotes = append(s.quotes, &copied)
	return nil
}

func (s *memStore) FindQuoteCreator(_ context.Context, organizationID uuid.UUID) (*models.User, error) {
	for _, u := range s.users {
		if u.OrganizationID == organizationID && u.Role == models.RoleAdmin && u.Active {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memStore) MarkSessionConverted(_ context.Context, sessionID string, customerID, quoteID *uuid.UUID, at time.Time) (bool, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return false, fmt.Errorf("session not found")
	}
	if session.ConvertedAt != nil {
		return false, nil
	}
	session.ConvertedAt = &at
	session.CustomerID = customerID
	session.QuoteID = quoteID
	return true, nil
}

func (s *memStore) IncrementTemplateConversions(_ context.Context, templateID uuid.UUID) error {
	if t, ok := s.templates[templateID]; ok {
		t.Conversions++
	}
	return nil
}

// fixture wires a completed session, template with full mappings, and an
// admin user into a fresh store.
type fixture struct {
	store   *memStore
	engine  *Engine
	orgID   uuid.UUID
	session *models.Session
}

func newFixture(t *testing.T, data formdata.Tree) *fixture {
	t.Helper()
	store := newMemStore()
	orgID := uuid.New()

	template := &models.Template{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           "service-intake",
		Settings: models.ConversionSettings{
			CustomerMapping: map[string]string{},
			QuoteMapping:    map[string]string{},
		},
	}
	store.templates[template.ID] = template

	session := &models.Session{
		ID:             "01JMSESSION0000000000000TEST",
		OrganizationID: orgID,
		TemplateID:     template.ID,
		CurrentStep:    "SUBMISSION",
		Status:         models.SessionCompleted,
		FormData:       data,
	}
	store.sessions[session.ID] = session

	store.users = append(store.users, &models.User{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Email:          "admin@example.com",
		Role:           models.RoleAdmin,
		Active:         true,
	})

	return &fixture{
		store:   store,
		engine:  NewEngineAt(store, func() time.Time { return testNow }),
		orgID:   orgID,
		session: session,
	}
}

func (f *fixture) template() *models.Template {
	return f.store.templates[f.session.TemplateID]
}

func residentialData() formdata.Tree {
	return formdata.Tree{
		"email":       "lee@example.com",
		"firstName":   "Lee",
		"lastName":    "Nguyen",
		"phone":       "204-555-0147",
		"profileType": "RESIDENTIAL",
		"serviceType": "plumbing",
		"urgency":     "HIGH",
		"description": "Burst pipe in the basement",
	}
}

func TestConvertResidentialSession(t *testing.T) {
	f := newFixture(t, residentialData())

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)
	require.NotNil(t, result.CustomerID)
	require.NotNil(t, result.QuoteID)

	require.Len(t, f.store.customers, 1)
	customer := f.store.customers[0]
	assert.Equal(t, models.TierPersonal, customer.Tier)
	assert.Equal(t, models.CustomerProspect, customer.Status)
	assert.Equal(t, "CUST-000001", customer.Number)
	require.NotNil(t, customer.PersonID)
	assert.Nil(t, customer.BusinessID)
	assert.Equal(t, "Lee", f.store.people[*customer.PersonID].FirstName)

	require.Len(t, f.store.quotes, 1)
	quote := f.store.quotes[0]
	assert.Equal(t, "Q-000001", quote.Number)
	assert.Equal(t, models.QuoteDraft, quote.Status)
	assert.Equal(t, "Burst pipe in the basement", quote.Description)
	assert.Equal(t, testNow.Add(30*24*time.Hour), quote.ValidUntil)
	assert.Zero(t, quote.Total)
	assert.Contains(t, quote.RawFormData, "Burst pipe")

	// Markers recorded together.
	assert.NotNil(t, f.session.ConvertedAt)
	assert.Equal(t, result.CustomerID, f.session.CustomerID)
	assert.Equal(t, result.QuoteID, f.session.QuoteID)
	assert.Equal(t, 1, f.template().Conversions)
}

func TestConvertCommercialByBusinessName(t *testing.T) {
	f := newFixture(t, formdata.Tree{
		"email":        "ops@acmeplumbing.com",
		"profileType":  "COMMERCIAL",
		"businessName": "Acme Plumbing",
		"serviceType":  "plumbing",
		"urgency":      "LOW",
	})

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)

	customer := f.store.customers[0]
	assert.Equal(t, models.TierCommercial, customer.Tier)
	require.NotNil(t, customer.BusinessID)
	assert.Nil(t, customer.PersonID)
	assert.Equal(t, "Acme Plumbing", f.store.businesses[*customer.BusinessID].Name)

	// No mapped description falls back to "{serviceType} - {urgency}".
	assert.Equal(t, "plumbing - LOW", f.store.quotes[0].Description)
}

func TestConvertBusinessNameAloneImpliesCommercial(t *testing.T) {
	f := newFixture(t, formdata.Tree{
		"email":        "ops@acmeplumbing.com",
		"businessName": "Acme Plumbing",
		"serviceType":  "plumbing",
		"urgency":      "LOW",
	})

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, models.TierCommercial, f.store.customers[0].Tier)
}

func TestConvertDefaultsMissingPersonNames(t *testing.T) {
	f := newFixture(t, formdata.Tree{
		"email":       "lee@example.com",
		"firstName":   "Lee",
		"serviceType": "plumbing",
		"urgency":     "LOW",
	})

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)

	person := f.store.people[*f.store.customers[0].PersonID]
	assert.Equal(t, "Lee", person.FirstName)
	assert.Equal(t, "Customer", person.LastName)
}

func TestConvertIsIdempotent(t *testing.T) {
	f := newFixture(t, residentialData())

	first := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, first.Success)

	second := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, second.Success)
	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.Equal(t, first.QuoteID, second.QuoteID)

	assert.Len(t, f.store.customers, 1, "no additional records on re-convert")
	assert.Len(t, f.store.quotes, 1)
	assert.Equal(t, 1, f.template().Conversions)
}

func TestConvertMissingEmailFails(t *testing.T) {
	data := residentialData()
	delete(data, "email")
	f := newFixture(t, data)

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)

	assert.Nil(t, f.session.ConvertedAt, "failed conversion must not mark the session")
	assert.Empty(t, f.store.customers)
}

func TestConvertDedupByEmail(t *testing.T) {
	f := newFixture(t, residentialData())

	personID := uuid.New()
	f.store.people[personID] = &models.Person{ID: personID, Email: "lee@example.com"}
	existing := &models.Customer{
		ID:             uuid.New(),
		OrganizationID: f.orgID,
		Number:         "CUST-000001",
		Tier:           models.TierPersonal,
		PersonID:       &personID,
	}
	f.store.customers = append(f.store.customers, existing)

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, existing.ID, *result.CustomerID)
	assert.Len(t, f.store.customers, 1, "existing customer reused, not duplicated")
}

func TestConvertDedupIgnoresSoftDeleted(t *testing.T) {
	f := newFixture(t, residentialData())

	personID := uuid.New()
	deleted := testNow.Add(-time.Hour)
	f.store.people[personID] = &models.Person{ID: personID, Email: "lee@example.com"}
	f.store.customers = append(f.store.customers, &models.Customer{
		ID:             uuid.New(),
		OrganizationID: f.orgID,
		Number:         "CUST-000001",
		PersonID:       &personID,
		DeletedAt:      &deleted,
	})

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Len(t, f.store.customers, 2, "soft-deleted customer must not be reused")
	assert.Equal(t, "CUST-000002", f.store.customers[1].Number)
}

func TestConvertNoAdminFails(t *testing.T) {
	f := newFixture(t, residentialData())
	f.store.users = nil

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "no active admin")
	assert.Nil(t, f.session.ConvertedAt)
}

func TestConvertPreconditions(t *testing.T) {
	f := newFixture(t, residentialData())

	// Unknown session.
	result := f.engine.Convert(context.Background(), f.orgID, "nope")
	assert.False(t, result.Success)
	assert.Contains(t, result.Errors[0], "not found")

	// Tenant isolation.
	result = f.engine.Convert(context.Background(), uuid.New(), f.session.ID)
	assert.False(t, result.Success)
	assert.Contains(t, result.Errors[0], "organization")

	// Not completed.
	f.session.Status = models.SessionInProgress
	result = f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	assert.False(t, result.Success)
	assert.Contains(t, result.Errors[0], "completed")
	assert.Nil(t, f.session.ConvertedAt)
}

func TestConvertWithoutQuoteMapping(t *testing.T) {
	f := newFixture(t, residentialData())
	f.template().Settings.QuoteMapping = nil

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.NotNil(t, result.CustomerID)
	assert.Nil(t, result.QuoteID)
	assert.Empty(t, f.store.quotes)
}

func TestConvertMappingPathsWithFallback(t *testing.T) {
	f := newFixture(t, formdata.Tree{
		"contact": map[string]any{
			"emailAddress": "Lee@Example.com",
		},
		"firstName":   "Lee",
		"serviceType": "plumbing",
		"urgency":     "MEDIUM",
	})
	// email resolves through an explicit dot-path; firstName falls back to
	// the same-named top-level key.
	f.template().Settings.CustomerMapping = map[string]string{
		"email": "contact.emailAddress",
	}

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)

	person := f.store.people[*f.store.customers[0].PersonID]
	assert.Equal(t, "lee@example.com", person.Email, "mapped email is lowercased")
	assert.Equal(t, "Lee", person.FirstName)
}

func TestConvertSequenceNumbers(t *testing.T) {
	for n := 1; n <= 3; n++ {
		expected := fmt.Sprintf("CUST-%06d", n)

		f := newFixture(t, residentialData())
		for i := 1; i < n; i++ {
			f.store.customers = append(f.store.customers, &models.Customer{
				ID:             uuid.New(),
				OrganizationID: f.orgID,
				Number:         fmt.Sprintf("CUST-%06d", i),
			})
		}

		result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
		require.True(t, result.Success, "errors: %v", result.Errors)
		assert.Equal(t, expected, f.store.customers[n-1].Number)
	}
}

func TestConvertRetriesOnUniqueViolation(t *testing.T) {
	f := newFixture(t, residentialData())
	f.store.customerInsertErr = []error{
		fmt.Errorf("UNIQUE constraint failed: customers.number"),
	}

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, result.Success, "one unique violation should be retried: %v", result.Errors)
	assert.Len(t, f.store.customers, 1)
}

func TestConvertQuoteFailureLeavesSessionRetryable(t *testing.T) {
	f := newFixture(t, residentialData())
	f.store.createQuoteErr = fmt.Errorf("disk full")

	result := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	assert.False(t, result.Success)
	assert.Nil(t, f.session.ConvertedAt)

	// Retry after the fault clears: the customer created by the failed
	// attempt is reused via email dedup.
	f.store.createQuoteErr = nil
	retry := f.engine.Convert(context.Background(), f.orgID, f.session.ID)
	require.True(t, retry.Success, "errors: %v", retry.Errors)
	assert.Len(t, f.store.customers, 1)
	assert.Len(t, f.store.quotes, 1)
}
