// ABOUTME: Tests for the session state machine
// ABOUTME: Covers full flows, out-of-order rejection, and completion consent
package flow

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/intake/formdata"
	"github.com/harperreed/intake/models"
	"github.com/harperreed/intake/steps"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testMachine() *Machine {
	return NewMachineAt(func() time.Time { return testNow })
}

func startSession(t *testing.T, m *Machine) *models.Session {
	t.Helper()
	session, err := m.Start(uuid.New(), uuid.New(), steps.EmailCapture{
		Email:     "lee@example.com",
		Timestamp: testNow.UnixMilli(),
	})
	require.NoError(t, err)
	return session
}

func envelope(tag string, data formdata.Tree) steps.Envelope {
	return steps.Envelope{
		Step:            tag,
		Data:            data,
		ClientTimestamp: testNow.UnixMilli(),
	}
}

// allSteps holds valid data for each tagged step of a residential flow.
var allSteps = map[string]formdata.Tree{
	steps.StepProfileType: {"profileType": "RESIDENTIAL"},
	steps.StepProfileDetails: {
		"firstName":  "Lee",
		"lastName":   "Nguyen",
		"phone":      "204-555-0147",
		"postalCode": "R3C 4T3",
	},
	steps.StepServiceCategory: {"serviceType": "plumbing"},
	steps.StepServiceDetails: {
		"description": "Burst pipe in the basement",
		"urgency":     "HIGH",
	},
	steps.StepAdditionalInfo: {"notes": "Side door is unlocked"},
	steps.StepReview:         {"confirmed": true},
}

func TestStartSeedsEmail(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionInProgress, session.Status)
	assert.Equal(t, steps.StepProfileType, session.CurrentStep)
	assert.Equal(t, "lee@example.com", session.FormData["email"])
}

func TestStartRejectsHoneypot(t *testing.T) {
	m := testMachine()
	_, err := m.Start(uuid.New(), uuid.New(), steps.EmailCapture{
		Email:     "lee@example.com",
		Website:   "filled-by-bot",
		Timestamp: testNow.UnixMilli(),
	})
	assert.ErrorIs(t, err, steps.ErrAutomation)
}

func TestFullFlowCompletes(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)

	for _, tag := range steps.Order {
		require.NoError(t, m.Advance(session, envelope(tag, allSteps[tag])), "step %s", tag)
	}
	require.Equal(t, steps.StepSubmission, session.CurrentStep)

	err := m.Complete(session, steps.Submission{
		PrivacyPolicyAccepted: true,
		TermsAccepted:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, session.Status)

	// The form data holds the union of all submitted fields.
	for _, key := range []string{"email", "profileType", "firstName", "serviceType", "description", "notes", "confirmed", "privacyPolicyAccepted"} {
		_, ok := session.FormData[key]
		assert.True(t, ok, "form data missing %s", key)
	}
}

func TestAdvanceOutOfOrderLeavesSessionUnchanged(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)

	err := m.Advance(session, envelope(steps.StepServiceCategory, allSteps[steps.StepServiceCategory]))

	var serr *StateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, KindOutOfOrder, serr.Kind)

	assert.Equal(t, steps.StepProfileType, session.CurrentStep)
	assert.Len(t, session.FormData, 1, "only the seeded email should be present")
}

func TestAdvanceValidationFailureLeavesSessionUnchanged(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)

	err := m.Advance(session, envelope(steps.StepProfileType, formdata.Tree{"profileType": "OTHER"}))

	var verr *steps.ValidationError
	require.True(t, errors.As(err, &verr), "field failure should be a ValidationError, got %v", err)
	assert.Equal(t, steps.StepProfileType, session.CurrentStep)
}

func TestAdvanceRejectsStaleTimestamp(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)

	env := envelope(steps.StepProfileType, allSteps[steps.StepProfileType])
	env.ClientTimestamp = testNow.Add(-10 * time.Minute).UnixMilli()

	assert.ErrorIs(t, m.Advance(session, env), steps.ErrAutomation)
	assert.Equal(t, steps.StepProfileType, session.CurrentStep)
}

func TestAdvanceRejectsResubmittedStep(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)

	env := envelope(steps.StepProfileType, allSteps[steps.StepProfileType])
	require.NoError(t, m.Advance(session, env))

	err := m.Advance(session, env)
	var serr *StateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, KindOutOfOrder, serr.Kind)
}

func TestCompleteRequiresBothConsents(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)
	for _, tag := range steps.Order {
		require.NoError(t, m.Advance(session, envelope(tag, allSteps[tag])))
	}

	err := m.Complete(session, steps.Submission{PrivacyPolicyAccepted: true})
	var verr *steps.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, models.SessionInProgress, session.Status)
}

func TestCompleteBeforeReviewRejected(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)

	err := m.Complete(session, steps.Submission{PrivacyPolicyAccepted: true, TermsAccepted: true})
	var serr *StateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, KindOutOfOrder, serr.Kind)
}

func TestAdvanceCompletedSessionRejected(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)
	session.Status = models.SessionCompleted

	err := m.Advance(session, envelope(steps.StepProfileType, allSteps[steps.StepProfileType]))
	var serr *StateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, KindNotInProgress, serr.Kind)
}

func TestExpire(t *testing.T) {
	m := testMachine()
	session := startSession(t, m)
	session.UpdatedAt = testNow.Add(-48 * time.Hour)

	changed := m.Expire(session, testNow.Add(-24*time.Hour))
	assert.True(t, changed)
	assert.Equal(t, models.SessionAbandoned, session.Status)

	// One-way: expiring again is a no-op.
	assert.False(t, m.Expire(session, testNow))

	// Completed sessions never expire.
	done := startSession(t, m)
	done.Status = models.SessionCompleted
	done.UpdatedAt = testNow.Add(-48 * time.Hour)
	assert.False(t, m.Expire(done, testNow.Add(-24*time.Hour)))
}
