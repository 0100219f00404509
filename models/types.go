// ABOUTME: Data models for intake sessions and CRM entities
// ABOUTME: Defines Session, Template, Customer, Person, Business, Quote, and User structs
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/intake/formdata"
)

// Session status constants.
const (
	SessionInProgress = "IN_PROGRESS"
	SessionCompleted  = "COMPLETED"
	SessionAbandoned  = "ABANDONED"
)

// Customer tier constants.
const (
	TierPersonal   = "PERSONAL"
	TierCommercial = "COMMERCIAL"
)

// Customer status constants.
const (
	CustomerProspect = "PROSPECT"
	CustomerActive   = "ACTIVE"
	CustomerInactive = "INACTIVE"
)

// Quote status constants.
const (
	QuoteDraft    = "DRAFT"
	QuoteSent     = "SENT"
	QuoteAccepted = "ACCEPTED"
	QuoteDeclined = "DECLINED"
)

// User role constants.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Session is one in-progress or completed intake flow. FormData accumulates
// validated step fields; the conversion markers (ConvertedAt, CustomerID,
// QuoteID) are set together exactly once and never cleared.
type Session struct {
	ID             string        `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	TemplateID     uuid.UUID     `json:"template_id"`
	CurrentStep    string        `json:"current_step"`
	Status         string        `json:"status"`
	FormData       formdata.Tree `json:"form_data"`
	ConvertedAt    *time.Time    `json:"converted_at,omitempty"`
	CustomerID     *uuid.UUID    `json:"customer_id,omitempty"`
	QuoteID        *uuid.UUID    `json:"quote_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Converted reports whether the session's conversion markers are set.
func (s *Session) Converted() bool {
	return s.ConvertedAt != nil
}

// ConversionSettings maps target record fields to dot-paths into a session's
// form data. A nil mapping disables that half of the conversion.
type ConversionSettings struct {
	CustomerMapping map[string]string `json:"customerMapping,omitempty"`
	QuoteMapping    map[string]string `json:"quoteMapping,omitempty"`
}

// Template owns the per-organization intake configuration, including the
// conversion settings applied when a completed session is converted.
type Template struct {
	ID             uuid.UUID          `json:"id"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	Name           string             `json:"name"`
	Settings       ConversionSettings `json:"settings"`
	Conversions    int                `json:"conversions"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type Person struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Business struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Customer owns exactly one of PersonID or BusinessID, never both.
type Customer struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Number         string     `json:"number"`
	Tier           string     `json:"tier"`
	Status         string     `json:"status"`
	PersonID       *uuid.UUID `json:"person_id,omitempty"`
	BusinessID     *uuid.UUID `json:"business_id,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Quote amounts are in cents and zero at creation; pricing is filled in
// downstream.
type Quote struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Number         string    `json:"number"`
	CustomerID     uuid.UUID `json:"customer_id"`
	CreatedByID    uuid.UUID `json:"created_by_id"`
	Status         string    `json:"status"`
	Description    string    `json:"description,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	ValidUntil     time.Time `json:"valid_until"`
	Subtotal       int64     `json:"subtotal"`
	Tax            int64     `json:"tax"`
	Total          int64     `json:"total"`
	RawFormData    string    `json:"raw_form_data,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	Role           string    `json:"role"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
