// ABOUTME: Intake session MCP tool handlers
// ABOUTME: Implements start_intake, submit_step, complete_intake, and session queries
package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/intake/db"
	"github.com/harperreed/intake/flow"
	"github.com/harperreed/intake/formdata"
	"github.com/harperreed/intake/models"
	"github.com/harperreed/intake/steps"
)

type SessionHandlers struct {
	store   *db.Store
	machine *flow.Machine
}

func NewSessionHandlers(store *db.Store) *SessionHandlers {
	return &SessionHandlers{store: store, machine: flow.NewMachine()}
}

type StartIntakeInput struct {
	OrganizationID  string `json:"organization_id" jsonschema:"Organization UUID (required)"`
	TemplateID      string `json:"template_id" jsonschema:"Intake template UUID (required)"`
	Email           string `json:"email" jsonschema:"Contact email address (required)"`
	Website         string `json:"website,omitempty" jsonschema:"Honeypot field, must be empty"`
	ClientTimestamp int64  `json:"timestamp" jsonschema:"Client time in epoch milliseconds"`
}

type SessionOutput struct {
	ID          string         `json:"id"`
	CurrentStep string         `json:"current_step"`
	Status      string         `json:"status"`
	FormData    map[string]any `json:"form_data,omitempty"`
	CustomerID  *string        `json:"customer_id,omitempty"`
	QuoteID     *string        `json:"quote_id,omitempty"`
	ConvertedAt *string        `json:"converted_at,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

func (h *SessionHandlers) StartIntake(ctx context.Context, request *mcp.CallToolRequest, input StartIntakeInput) (*mcp.CallToolResult, SessionOutput, error) {
	orgID, err := uuid.Parse(input.OrganizationID)
	if err != nil {
		return nil, SessionOutput{}, fmt.Errorf("invalid organization_id: %w", err)
	}
	templateID, err := uuid.Parse(input.TemplateID)
	if err != nil {
		return nil, SessionOutput{}, fmt.Errorf("invalid template_id: %w", err)
	}

	template, err := h.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, SessionOutput{}, fmt.Errorf("template lookup failed: %w", err)
	}
	if template == nil || template.OrganizationID != orgID {
		return nil, SessionOutput{}, fmt.Errorf("template not found in organization")
	}

	session, err := h.machine.Start(orgID, templateID, steps.EmailCapture{
		Email:     input.Email,
		Website:   input.Website,
		Timestamp: input.ClientTimestamp,
	})
	if err != nil {
		return nil, SessionOutput{}, err
	}

	if err := h.store.CreateSession(ctx, session); err != nil {
		return nil, SessionOutput{}, fmt.Errorf("failed to create session: %w", err)
	}

	return nil, sessionToOutput(session), nil
}

type SubmitStepInput struct {
	SessionID       string         `json:"session_id" jsonschema:"Session ID (required)"`
	Step            string         `json:"step" jsonschema:"Step tag, must match the session's expected next step"`
	Data            map[string]any `json:"data" jsonschema:"Step-specific field data"`
	Website         string         `json:"website,omitempty" jsonschema:"Honeypot field, must be empty"`
	ClientTimestamp int64          `json:"clientTimestamp" jsonschema:"Client time in epoch milliseconds"`
}

func (h *SessionHandlers) SubmitStep(ctx context.Context, request *mcp.CallToolRequest, input SubmitStepInput) (*mcp.CallToolResult, SessionOutput, error) {
	session, err := h.loadSession(ctx, input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}

	err = h.machine.Advance(session, steps.Envelope{
		Step:            input.Step,
		Data:            formdata.Tree(input.Data),
		Website:         input.Website,
		ClientTimestamp: input.ClientTimestamp,
	})
	if err != nil {
		return nil, SessionOutput{}, err
	}

	if err := h.store.UpdateSession(ctx, session); err != nil {
		return nil, SessionOutput{}, fmt.Errorf("failed to update session: %w", err)
	}

	return nil, sessionToOutput(session), nil
}

type CompleteIntakeInput struct {
	SessionID             string `json:"session_id" jsonschema:"Session ID (required)"`
	PrivacyPolicyAccepted bool   `json:"privacyPolicyAccepted" jsonschema:"Must be true"`
	TermsAccepted         bool   `json:"termsAccepted" jsonschema:"Must be true"`
	MarketingConsent      *bool  `json:"marketingConsent,omitempty" jsonschema:"Optional marketing opt-in"`
}

func (h *SessionHandlers) CompleteIntake(ctx context.Context, request *mcp.CallToolRequest, input CompleteIntakeInput) (*mcp.CallToolResult, SessionOutput, error) {
	session, err := h.loadSession(ctx, input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}

	err = h.machine.Complete(session, steps.Submission{
		PrivacyPolicyAccepted: input.PrivacyPolicyAccepted,
		TermsAccepted:         input.TermsAccepted,
		MarketingConsent:      input.MarketingConsent,
	})
	if err != nil {
		return nil, SessionOutput{}, err
	}

	if err := h.store.UpdateSession(ctx, session); err != nil {
		return nil, SessionOutput{}, fmt.Errorf("failed to update session: %w", err)
	}

	return nil, sessionToOutput(session), nil
}

type GetSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"Session ID (required)"`
}

func (h *SessionHandlers) GetSession(ctx context.Context, request *mcp.CallToolRequest, input GetSessionInput) (*mcp.CallToolResult, SessionOutput, error) {
	session, err := h.loadSession(ctx, input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, sessionToOutput(session), nil
}

type ListSessionsInput struct {
	OrganizationID string `json:"organization_id" jsonschema:"Organization UUID (required)"`
	Status         string `json:"status,omitempty" jsonschema:"Filter by status (IN_PROGRESS, COMPLETED, ABANDONED)"`
	Limit          int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 50)"`
}

type ListSessionsOutput struct {
	Sessions []SessionOutput `json:"sessions"`
}

func (h *SessionHandlers) ListSessions(ctx context.Context, request *mcp.CallToolRequest, input ListSessionsInput) (*mcp.CallToolResult, ListSessionsOutput, error) {
	orgID, err := uuid.Parse(input.OrganizationID)
	if err != nil {
		return nil, ListSessionsOutput{}, fmt.Errorf("invalid organization_id: %w", err)
	}

	sessions, err := h.store.ListSessions(ctx, orgID, input.Status, input.Limit)
	if err != nil {
		return nil, ListSessionsOutput{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	result := make([]SessionOutput, len(sessions))
	for i := range sessions {
		result[i] = sessionToOutput(&sessions[i])
	}
	return nil, ListSessionsOutput{Sessions: result}, nil
}

func (h *SessionHandlers) loadSession(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	session, err := h.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found")
	}
	return session, nil
}

func sessionToOutput(session *models.Session) SessionOutput {
	out := SessionOutput{
		ID:          session.ID,
		CurrentStep: session.CurrentStep,
		Status:      session.Status,
		FormData:    session.FormData,
		CreatedAt:   session.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   session.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if session.CustomerID != nil {
		s := session.CustomerID.String()
		out.CustomerID = &s
	}
	if session.QuoteID != nil {
		s := session.QuoteID.String()
		out.QuoteID = &s
	}
	if session.ConvertedAt != nil {
		s := session.ConvertedAt.Format("2006-01-02T15:04:05Z07:00")
		out.ConvertedAt = &s
	}
	return out
}
