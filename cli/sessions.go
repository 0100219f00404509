// ABOUTME: Intake session CLI commands
// ABOUTME: Human-friendly commands for listing, inspecting, converting, and expiring sessions
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/harperreed/intake/convert"
	"github.com/harperreed/intake/db"
	"github.com/harperreed/intake/models"
)

// ListSessionsCommand lists an organization's sessions.
func ListSessionsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list-sessions", flag.ExitOnError)
	org := fs.String("org", "", "Organization ID (required)")
	status := fs.String("status", "", "Filter by status (IN_PROGRESS, COMPLETED, ABANDONED)")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	orgID, err := uuid.Parse(*org)
	if err != nil {
		return fmt.Errorf("--org is required and must be a UUID")
	}

	store := db.NewStore(database)
	sessions, err := store.ListSessions(context.Background(), orgID, *status, *limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	// Pretty print results
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTEP\tSTATUS\tCONVERTED\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t---------\t-------")

	for _, session := range sessions {
		converted := "-"
		if session.ConvertedAt != nil {
			converted = session.ConvertedAt.Format("2006-01-02")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			session.ID, session.CurrentStep, session.Status, converted,
			session.UpdatedAt.Format("2006-01-02 15:04"))
	}

	return w.Flush()
}

// ShowSessionCommand dumps one session including its form data tree.
func ShowSessionCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("show-session", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("session ID is required")
	}

	store := db.NewStore(database)
	session, err := store.GetSession(context.Background(), fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session not found")
	}

	fmt.Printf("Session:      %s\n", session.ID)
	fmt.Printf("Organization: %s\n", session.OrganizationID)
	fmt.Printf("Template:     %s\n", session.TemplateID)
	fmt.Printf("Step:         %s\n", session.CurrentStep)
	fmt.Printf("Status:       %s\n", session.Status)
	if session.ConvertedAt != nil {
		fmt.Printf("Converted:    %s\n", session.ConvertedAt.Format(time.RFC3339))
		if session.CustomerID != nil {
			fmt.Printf("Customer:     %s\n", session.CustomerID)
		}
		if session.QuoteID != nil {
			fmt.Printf("Quote:        %s\n", session.QuoteID)
		}
	}

	fmt.Println("\nForm data:")
	spew.Dump(session.FormData)
	return nil
}

// ConvertSessionCommand converts a completed session into CRM records.
func ConvertSessionCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	org := fs.String("org", "", "Organization ID (required)")
	_ = fs.Parse(args)

	orgID, err := uuid.Parse(*org)
	if err != nil {
		return fmt.Errorf("--org is required and must be a UUID")
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("session ID is required")
	}

	engine := convert.NewEngine(db.NewStore(database))
	result := engine.Convert(context.Background(), orgID, fs.Arg(0))

	if !result.Success {
		fmt.Println("Conversion failed:")
		for _, msg := range result.Errors {
			fmt.Printf("  - %s\n", msg)
		}
		return fmt.Errorf("conversion failed")
	}

	fmt.Println("Conversion succeeded")
	if result.CustomerID != nil {
		fmt.Printf("  Customer: %s\n", result.CustomerID)
	}
	if result.QuoteID != nil {
		fmt.Printf("  Quote:    %s\n", result.QuoteID)
	}
	return nil
}

// ExpireSessionsCommand abandons sessions idle past the cutoff.
func ExpireSessionsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("expire-sessions", flag.ExitOnError)
	age := fs.Duration("age", 72*time.Hour, "Idle age after which IN_PROGRESS sessions are abandoned")
	_ = fs.Parse(args)

	store := db.NewStore(database)
	n, err := store.ExpireSessions(context.Background(), time.Now().Add(-*age))
	if err != nil {
		return fmt.Errorf("failed to expire sessions: %w", err)
	}

	fmt.Printf("Abandoned %d session(s)\n", n)
	return nil
}

// AddTemplateCommand creates an intake template.
func AddTemplateCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add-template", flag.ExitOnError)
	org := fs.String("org", "", "Organization ID (required)")
	name := fs.String("name", "", "Template name (required)")
	withCustomer := fs.Bool("customer", true, "Enable customer conversion")
	withQuote := fs.Bool("quote", true, "Enable quote conversion")
	_ = fs.Parse(args)

	orgID, err := uuid.Parse(*org)
	if err != nil {
		return fmt.Errorf("--org is required and must be a UUID")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	template := &models.Template{
		OrganizationID: orgID,
		Name:           *name,
	}
	if *withCustomer {
		template.Settings.CustomerMapping = map[string]string{}
	}
	if *withQuote {
		template.Settings.QuoteMapping = map[string]string{}
	}

	if err := db.NewStore(database).CreateTemplate(context.Background(), template); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	fmt.Printf("Created template %s\n", template.ID)
	return nil
}

// AddUserCommand creates a user; quotes need an active admin to own them.
func AddUserCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add-user", flag.ExitOnError)
	org := fs.String("org", "", "Organization ID (required)")
	email := fs.String("email", "", "User email (required)")
	name := fs.String("name", "", "Display name")
	role := fs.String("role", models.RoleMember, "Role: admin or member")
	_ = fs.Parse(args)

	orgID, err := uuid.Parse(*org)
	if err != nil {
		return fmt.Errorf("--org is required and must be a UUID")
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *role != models.RoleAdmin && *role != models.RoleMember {
		return fmt.Errorf("--role must be admin or member")
	}

	user := &models.User{
		OrganizationID: orgID,
		Email:          *email,
		Name:           *name,
		Role:           *role,
		Active:         true,
	}
	if err := db.NewStore(database).CreateUser(context.Background(), user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created user %s (%s)\n", user.ID, user.Role)
	return nil
}
