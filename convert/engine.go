// ABOUTME: Conversion engine turning completed sessions into CRM records
// ABOUTME: Maps form data to a Customer and Quote with dedup and idempotency
package convert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/intake/formdata"
	"github.com/harperreed/intake/models"
)

const quoteValidity = 30 * 24 * time.Hour

// Result is the non-throwing outcome of a conversion. Errors is non-empty
// exactly when Success is false.
type Result struct {
	Success    bool       `json:"success"`
	CustomerID *uuid.UUID `json:"customerId,omitempty"`
	QuoteID    *uuid.UUID `json:"quoteId,omitempty"`
	Errors     []string   `json:"errors,omitempty"`
}

func failure(errs ...string) Result {
	return Result{Errors: errs}
}

// Engine converts completed sessions into customer and quote records using
// the owning template's conversion settings.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// NewEngineAt returns an engine with an injected clock, for tests.
func NewEngineAt(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// Convert runs the conversion for one session. It never returns an error:
// every failure mode lands in Result.Errors, and a failed attempt leaves the
// session unconverted so it can be retried. Re-converting an already
// converted session returns the recorded identifiers without side effects.
func (e *Engine) Convert(ctx context.Context, organizationID uuid.UUID, sessionID string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(fmt.Sprintf("conversion panicked: %v", r))
		}
	}()

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return failure(fmt.Sprintf("session lookup failed: %v", err))
	}
	if session == nil {
		return failure("session not found")
	}

	template, err := e.store.GetTemplate(ctx, session.TemplateID)
	if err != nil {
		return failure(fmt.Sprintf("template lookup failed: %v", err))
	}
	if template == nil || template.OrganizationID != organizationID {
		return failure("session does not belong to this organization")
	}

	if session.Status != models.SessionCompleted {
		return failure(fmt.Sprintf("session is %s, only completed sessions convert", session.Status))
	}

	if session.Converted() {
		return Result{Success: true, CustomerID: session.CustomerID, QuoteID: session.QuoteID}
	}

	tree := session.FormData
	if tree == nil {
		tree = formdata.Tree{}
	}
	settings := template.Settings

	var customerID *uuid.UUID
	if settings.CustomerMapping != nil {
		id, err := e.resolveCustomer(ctx, organizationID, tree, settings.CustomerMapping)
		if err != nil {
			return failure(err.Error())
		}
		customerID = &id
	}

	var quoteID *uuid.UUID
	if settings.QuoteMapping != nil && customerID != nil {
		id, err := e.createQuote(ctx, organizationID, *customerID, tree, settings.QuoteMapping)
		if err != nil {
			return failure(err.Error())
		}
		quoteID = &id
	}

	won, err := e.store.MarkSessionConverted(ctx, session.ID, customerID, quoteID, e.now())
	if err != nil {
		return failure(fmt.Sprintf("recording conversion failed: %v", err))
	}
	if !won {
		// A concurrent conversion got there first; return its result.
		converted, err := e.store.GetSession(ctx, sessionID)
		if err != nil || converted == nil {
			return failure("conversion raced and the winning result could not be read")
		}
		return Result{Success: true, CustomerID: converted.CustomerID, QuoteID: converted.QuoteID}
	}

	// The counter is advisory; the conversion itself is already recorded.
	_ = e.store.IncrementTemplateConversions(ctx, template.ID)

	return Result{Success: true, CustomerID: customerID, QuoteID: quoteID}
}

// mapped reads a field through the mapping table, falling back to a
// same-named top-level key when the table has no entry for it.
func mapped(tree formdata.Tree, mapping map[string]string, field string) (string, bool) {
	path, ok := mapping[field]
	if !ok {
		path = field
	}
	value, present := formdata.Get(tree, path)
	if !present {
		return "", false
	}
	s := formdata.Transform(value, "toString").(string)
	s = formdata.Transform(s, "trim").(string)
	if s == "" {
		return "", false
	}
	return s, true
}

func (e *Engine) resolveCustomer(ctx context.Context, organizationID uuid.UUID, tree formdata.Tree, mapping map[string]string) (uuid.UUID, error) {
	email, ok := mapped(tree, mapping, "email")
	if !ok {
		return uuid.Nil, fmt.Errorf("mapped email is required to create a customer")
	}
	email = formdata.Transform(email, "lowercase").(string)

	// Dedup: an existing, non-deleted customer with this email is reused.
	existing, err := e.store.FindCustomerByEmail(ctx, organizationID, email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("customer lookup failed: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	firstName, _ := mapped(tree, mapping, "firstName")
	lastName, _ := mapped(tree, mapping, "lastName")
	phone, _ := mapped(tree, mapping, "phone")
	businessName, _ := mapped(tree, mapping, "businessName")
	profileType, _ := mapped(tree, mapping, "profileType")

	now := e.now()
	customer := &models.Customer{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Status:         models.CustomerProspect,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if profileType == models.TierCommercial || businessName != "" {
		name := businessName
		if name == "" {
			name = "Unknown Business"
		}
		business := &models.Business{
			ID:        uuid.New(),
			Name:      name,
			Email:     email,
			Phone:     phone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.store.CreateBusiness(ctx, business); err != nil {
			return uuid.Nil, fmt.Errorf("creating business failed: %w", err)
		}
		customer.Tier = models.TierCommercial
		customer.BusinessID = &business.ID
	} else {
		// Partial data still produces a customer; a quote must remain
		// creatable.
		if firstName == "" {
			firstName = "Unknown"
		}
		if lastName == "" {
			lastName = "Customer"
		}
		person := &models.Person{
			ID:        uuid.New(),
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
			Phone:     phone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.store.CreatePerson(ctx, person); err != nil {
			return uuid.Nil, fmt.Errorf("creating person failed: %w", err)
		}
		customer.Tier = models.TierPersonal
		customer.PersonID = &person.ID
	}

	// Count-then-format allocation. The store's unique constraint on
	// (organization, number) turns a concurrent race into an insert error;
	// one recount-and-retry covers the common case.
	for attempt := 0; ; attempt++ {
		count, err := e.store.CountCustomers(ctx, organizationID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("counting customers failed: %w", err)
		}
		customer.Number = fmt.Sprintf("CUST-%06d", count+1)

		err = e.store.CreateCustomer(ctx, customer)
		if err == nil {
			return customer.ID, nil
		}
		if attempt > 0 || !isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("creating customer failed: %w", err)
		}
	}
}

func (e *Engine) createQuote(ctx context.Context, organizationID, customerID uuid.UUID, tree formdata.Tree, mapping map[string]string) (uuid.UUID, error) {
	description, _ := mapped(tree, mapping, "description")
	serviceType, _ := mapped(tree, mapping, "serviceType")
	urgency, _ := mapped(tree, mapping, "urgency")
	estimatedBudget, _ := mapped(tree, mapping, "estimatedBudget")

	if description == "" {
		description = fmt.Sprintf("%s - %s", serviceType, urgency)
	}

	var notes []string
	if serviceType != "" {
		notes = append(notes, "serviceType: "+serviceType)
	}
	if urgency != "" {
		notes = append(notes, "urgency: "+urgency)
	}
	if estimatedBudget != "" {
		notes = append(notes, "estimatedBudget: "+estimatedBudget)
	}

	creator, err := e.store.FindQuoteCreator(ctx, organizationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("quote creator lookup failed: %w", err)
	}
	if creator == nil {
		return uuid.Nil, fmt.Errorf("no active admin user to own the quote")
	}

	raw, err := formdata.Encode(tree)
	if err != nil {
		return uuid.Nil, fmt.Errorf("snapshotting form data failed: %w", err)
	}

	now := e.now()
	quote := &models.Quote{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		CustomerID:     customerID,
		CreatedByID:    creator.ID,
		Status:         models.QuoteDraft,
		Description:    description,
		Notes:          strings.Join(notes, "; "),
		ValidUntil:     now.Add(quoteValidity),
		RawFormData:    raw,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for attempt := 0; ; attempt++ {
		count, err := e.store.CountQuotes(ctx, organizationID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("counting quotes failed: %w", err)
		}
		quote.Number = fmt.Sprintf("Q-%06d", count+1)

		err = e.store.CreateQuote(ctx, quote)
		if err == nil {
			return quote.ID, nil
		}
		if attempt > 0 || !isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("creating quote failed: %w", err)
		}
	}
}

// isUniqueViolation matches sqlite's constraint error text. Good enough for
// the single store implementation; fakes can return the same text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
