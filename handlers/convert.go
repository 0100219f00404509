// ABOUTME: Conversion MCP tool handler
// ABOUTME: Implements convert_session over the conversion engine
package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/intake/convert"
	"github.com/harperreed/intake/db"
)

type ConvertHandlers struct {
	engine *convert.Engine
}

func NewConvertHandlers(store *db.Store) *ConvertHandlers {
	return &ConvertHandlers{engine: convert.NewEngine(store)}
}

type ConvertSessionInput struct {
	OrganizationID string `json:"organization_id" jsonschema:"Organization UUID (required)"`
	SessionID      string `json:"session_id" jsonschema:"Completed session ID (required)"`
}

type ConvertSessionOutput struct {
	Success    bool     `json:"success"`
	CustomerID *string  `json:"customer_id,omitempty"`
	QuoteID    *string  `json:"quote_id,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// ConvertSession reports failure through the output rather than an error;
// only malformed input is a tool error.
func (h *ConvertHandlers) ConvertSession(ctx context.Context, request *mcp.CallToolRequest, input ConvertSessionInput) (*mcp.CallToolResult, ConvertSessionOutput, error) {
	orgID, err := uuid.Parse(input.OrganizationID)
	if err != nil {
		return nil, ConvertSessionOutput{}, fmt.Errorf("invalid organization_id: %w", err)
	}
	if input.SessionID == "" {
		return nil, ConvertSessionOutput{}, fmt.Errorf("session_id is required")
	}

	result := h.engine.Convert(ctx, orgID, input.SessionID)

	out := ConvertSessionOutput{
		Success: result.Success,
		Errors:  result.Errors,
	}
	if result.CustomerID != nil {
		s := result.CustomerID.String()
		out.CustomerID = &s
	}
	if result.QuoteID != nil {
		s := result.QuoteID.String()
		out.QuoteID = &s
	}
	return nil, out, nil
}
