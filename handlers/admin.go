// ABOUTME: Template and user MCP tool handlers
// ABOUTME: Implements add_template and add_user for intake configuration
package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/intake/db"
	"github.com/harperreed/intake/models"
)

type AdminHandlers struct {
	store *db.Store
}

func NewAdminHandlers(store *db.Store) *AdminHandlers {
	return &AdminHandlers{store: store}
}

type AddTemplateInput struct {
	OrganizationID  string            `json:"organization_id" jsonschema:"Organization UUID (required)"`
	Name            string            `json:"name" jsonschema:"Template name (required)"`
	CustomerMapping map[string]string `json:"customer_mapping,omitempty" jsonschema:"Customer field to form-data dot-path mapping; omit to disable customer creation"`
	QuoteMapping    map[string]string `json:"quote_mapping,omitempty" jsonschema:"Quote field to form-data dot-path mapping; omit to disable quote creation"`
}

type TemplateOutput struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Conversions    int    `json:"conversions"`
}

func (h *AdminHandlers) AddTemplate(ctx context.Context, request *mcp.CallToolRequest, input AddTemplateInput) (*mcp.CallToolResult, TemplateOutput, error) {
	if input.Name == "" {
		return nil, TemplateOutput{}, fmt.Errorf("name is required")
	}
	orgID, err := uuid.Parse(input.OrganizationID)
	if err != nil {
		return nil, TemplateOutput{}, fmt.Errorf("invalid organization_id: %w", err)
	}

	template := &models.Template{
		OrganizationID: orgID,
		Name:           input.Name,
		Settings: models.ConversionSettings{
			CustomerMapping: input.CustomerMapping,
			QuoteMapping:    input.QuoteMapping,
		},
	}
	if err := h.store.CreateTemplate(ctx, template); err != nil {
		return nil, TemplateOutput{}, fmt.Errorf("failed to create template: %w", err)
	}

	return nil, TemplateOutput{
		ID:             template.ID.String(),
		OrganizationID: template.OrganizationID.String(),
		Name:           template.Name,
		Conversions:    template.Conversions,
	}, nil
}

type AddUserInput struct {
	OrganizationID string `json:"organization_id" jsonschema:"Organization UUID (required)"`
	Email          string `json:"email" jsonschema:"User email (required)"`
	Name           string `json:"name,omitempty" jsonschema:"Display name"`
	Role           string `json:"role,omitempty" jsonschema:"Role: admin or member (default member)"`
}

type UserOutput struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func (h *AdminHandlers) AddUser(ctx context.Context, request *mcp.CallToolRequest, input AddUserInput) (*mcp.CallToolResult, UserOutput, error) {
	if input.Email == "" {
		return nil, UserOutput{}, fmt.Errorf("email is required")
	}
	orgID, err := uuid.Parse(input.OrganizationID)
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("invalid organization_id: %w", err)
	}

	role := input.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, UserOutput{}, fmt.Errorf("role must be admin or member")
	}

	user := &models.User{
		OrganizationID: orgID,
		Email:          input.Email,
		Name:           input.Name,
		Role:           role,
		Active:         true,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		return nil, UserOutput{}, fmt.Errorf("failed to create user: %w", err)
	}

	return nil, UserOutput{
		ID:     user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
		Active: user.Active,
	}, nil
}
