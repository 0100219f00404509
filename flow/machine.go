// ABOUTME: Session state machine for the intake flow
// ABOUTME: Start, Advance, and Complete enforce step order and merge validated data
package flow

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/intake/formdata"
	"github.com/harperreed/intake/models"
	"github.com/harperreed/intake/steps"
)

// StateError kinds.
const (
	KindOutOfOrder    = "out_of_order"
	KindNotInProgress = "not_in_progress"
)

// StateError is a rejected transition: wrong step, wrong status. Distinct
// from field validation failures so callers can report it separately.
type StateError struct {
	Kind    string
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

// Machine drives sessions through the fixed step order. It mutates the
// session only after the payload has fully validated; a rejected transition
// leaves the session unchanged. Persistence is the caller's job.
type Machine struct {
	guard *steps.Guard
	now   func() time.Time
	newID func() string
}

func NewMachine() *Machine {
	return &Machine{
		guard: steps.NewGuard(),
		now:   time.Now,
		newID: newSessionID,
	}
}

// NewMachineAt returns a machine with an injected clock, for tests.
func NewMachineAt(now func() time.Time) *Machine {
	return &Machine{
		guard: steps.NewGuardAt(now),
		now:   now,
		newID: newSessionID,
	}
}

func newSessionID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Start validates the untagged email-capture payload and returns a new
// IN_PROGRESS session positioned at the first tagged step.
func (m *Machine) Start(organizationID, templateID uuid.UUID, payload steps.EmailCapture) (*models.Session, error) {
	if err := m.guard.Check(payload.Website, payload.Timestamp); err != nil {
		return nil, err
	}

	seed, err := steps.ValidateEmailCapture(payload)
	if err != nil {
		return nil, err
	}

	now := m.now()
	return &models.Session{
		ID:             m.newID(),
		OrganizationID: organizationID,
		TemplateID:     templateID,
		CurrentStep:    steps.StepProfileType,
		Status:         models.SessionInProgress,
		FormData:       seed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Advance accepts a tagged step payload. The tag must match the session's
// expected next step exactly; validated fields merge into the form data at
// the top level and the session moves to the following step.
func (m *Machine) Advance(session *models.Session, envelope steps.Envelope) error {
	if session.Status != models.SessionInProgress {
		return &StateError{
			Kind:    KindNotInProgress,
			Message: fmt.Sprintf("session is %s, not accepting steps", session.Status),
		}
	}

	if err := m.guard.Check(envelope.Website, envelope.ClientTimestamp); err != nil {
		return err
	}

	if envelope.Step != session.CurrentStep {
		return &StateError{
			Kind:    KindOutOfOrder,
			Message: fmt.Sprintf("expected step %s, got %s", session.CurrentStep, envelope.Step),
		}
	}

	validated, err := steps.Validate(envelope.Step, envelope.Data, session.FormData)
	if err != nil {
		return err
	}

	if session.FormData == nil {
		session.FormData = formdata.Tree{}
	}
	formdata.Merge(session.FormData, validated)
	session.CurrentStep = steps.Next(envelope.Step)
	session.UpdatedAt = m.now()
	return nil
}

// Complete accepts the final consent payload. Only a session positioned at
// the submission pseudo-step can complete; both consents must be true.
func (m *Machine) Complete(session *models.Session, payload steps.Submission) error {
	if session.Status != models.SessionInProgress {
		return &StateError{
			Kind:    KindNotInProgress,
			Message: fmt.Sprintf("session is %s, not accepting steps", session.Status),
		}
	}

	if session.CurrentStep != steps.StepSubmission {
		return &StateError{
			Kind:    KindOutOfOrder,
			Message: fmt.Sprintf("expected step %s, session still at %s", steps.StepSubmission, session.CurrentStep),
		}
	}

	consents, err := steps.ValidateSubmission(payload)
	if err != nil {
		return err
	}

	formdata.Merge(session.FormData, consents)
	session.Status = models.SessionCompleted
	session.UpdatedAt = m.now()
	return nil
}

// Expire marks an IN_PROGRESS session idle since before cutoff as ABANDONED.
// It reports whether the session changed. Abandonment is one-way.
func (m *Machine) Expire(session *models.Session, cutoff time.Time) bool {
	if session.Status != models.SessionInProgress {
		return false
	}
	if !session.UpdatedAt.Before(cutoff) {
		return false
	}
	session.Status = models.SessionAbandoned
	session.UpdatedAt = m.now()
	return true
}
