// ABOUTME: MCP server subcommand
// ABOUTME: Starts the intake MCP server on stdio
package cli

import (
	"context"
	"database/sql"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/intake/db"
	"github.com/harperreed/intake/handlers"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(database *sql.DB) error {
	log.Println("Starting intake MCP server...")

	store := db.NewStore(database)

	sessionHandlers := handlers.NewSessionHandlers(store)
	convertHandlers := handlers.NewConvertHandlers(store)
	adminHandlers := handlers.NewAdminHandlers(store)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "intake",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_intake",
		Description: "Start a new intake session from an email capture",
	}, sessionHandlers.StartIntake)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_step",
		Description: "Submit the session's next step payload",
	}, sessionHandlers.SubmitStep)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_intake",
		Description: "Complete a session with the final consent payload",
	}, sessionHandlers.CompleteIntake)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_session",
		Description: "Fetch an intake session by ID",
	}, sessionHandlers.GetSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List an organization's intake sessions",
	}, sessionHandlers.ListSessions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_session",
		Description: "Convert a completed session into a customer and quote",
	}, convertHandlers.ConvertSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_template",
		Description: "Create an intake template with conversion mappings",
	}, adminHandlers.AddTemplate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_user",
		Description: "Create a user who can own converted quotes",
	}, adminHandlers.AddUser)

	return server.Run(context.Background(), &mcp.StdioTransport{})
}
