// ABOUTME: Public intake JSON API server
// ABOUTME: Exposes start, step submission, completion, and session lookup over HTTP
package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/harperreed/intake/db"
	"github.com/harperreed/intake/flow"
	"github.com/harperreed/intake/formdata"
	"github.com/harperreed/intake/models"
	"github.com/harperreed/intake/steps"
)

type Server struct {
	store   *db.Store
	machine *flow.Machine
}

func NewServer(database *sql.DB) *Server {
	return &Server{
		store:   db.NewStore(database),
		machine: flow.NewMachine(),
	}
}

// Handler builds the route table. Split out from Start so tests can drive
// the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /intake/start", s.handleStart)
	mux.HandleFunc("POST /intake/{id}/step", s.handleStep)
	mux.HandleFunc("POST /intake/{id}/complete", s.handleComplete)
	mux.HandleFunc("GET /intake/{id}", s.handleGet)
	return mux
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting intake API at http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type startRequest struct {
	OrganizationID  string `json:"organizationId"`
	TemplateID      string `json:"templateId"`
	Email           string `json:"email"`
	Website         string `json:"website"`
	ClientTimestamp int64  `json:"clientTimestamp"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "organizationId must be a UUID")
		return
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "templateId must be a UUID")
		return
	}

	template, err := s.store.GetTemplate(r.Context(), templateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if template == nil || template.OrganizationID != orgID {
		writeError(w, http.StatusNotFound, "not_found", "template not found")
		return
	}

	session, err := s.machine.Start(orgID, templateID, steps.EmailCapture{
		Email:     req.Email,
		Website:   req.Website,
		Timestamp: req.ClientTimestamp,
	})
	if err != nil {
		writeFlowError(w, err)
		return
	}

	if err := s.store.CreateSession(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	writeSession(w, http.StatusCreated, session)
}

type stepRequest struct {
	Step            string         `json:"step"`
	Data            map[string]any `json:"data"`
	Website         string         `json:"website"`
	ClientTimestamp int64          `json:"clientTimestamp"`
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	err := s.machine.Advance(session, steps.Envelope{
		Step:            req.Step,
		Data:            formdata.Tree(req.Data),
		Website:         req.Website,
		ClientTimestamp: req.ClientTimestamp,
	})
	if err != nil {
		writeFlowError(w, err)
		return
	}

	if err := s.store.UpdateSession(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	writeSession(w, http.StatusOK, session)
}

type completeRequest struct {
	PrivacyPolicyAccepted bool  `json:"privacyPolicyAccepted"`
	TermsAccepted         bool  `json:"termsAccepted"`
	MarketingConsent      *bool `json:"marketingConsent"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	err := s.machine.Complete(session, steps.Submission{
		PrivacyPolicyAccepted: req.PrivacyPolicyAccepted,
		TermsAccepted:         req.TermsAccepted,
		MarketingConsent:      req.MarketingConsent,
	})
	if err != nil {
		writeFlowError(w, err)
		return
	}

	if err := s.store.UpdateSession(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	writeSession(w, http.StatusOK, session)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeSession(w, http.StatusOK, session)
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	id := r.PathValue("id")
	session, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return nil, false
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	return session, true
}

type sessionResponse struct {
	ID          string         `json:"id"`
	CurrentStep string         `json:"currentStep"`
	Status      string         `json:"status"`
	FormData    map[string]any `json:"formData,omitempty"`
}

func writeSession(w http.ResponseWriter, status int, session *models.Session) {
	writeJSON(w, status, sessionResponse{
		ID:          session.ID,
		CurrentStep: session.CurrentStep,
		Status:      session.Status,
		FormData:    session.FormData,
	})
}

type errorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message,omitempty"`
	Fields  []steps.FieldError `json:"fields,omitempty"`
}

// writeFlowError maps the step and flow error types onto HTTP statuses:
// validation and automation failures are 400, sequencing failures are 409.
func writeFlowError(w http.ResponseWriter, err error) {
	var validation *steps.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation_failed",
			Fields: validation.Fields,
		})
		return
	}

	if errors.Is(err, steps.ErrAutomation) {
		writeError(w, http.StatusBadRequest, "rejected", "submission rejected")
		return
	}

	var state *flow.StateError
	if errors.As(err, &state) {
		writeError(w, http.StatusConflict, state.Kind, state.Message)
		return
	}

	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
