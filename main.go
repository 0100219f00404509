// ABOUTME: Entry point for the intake MCP server, web API, and CLI
// ABOUTME: Routes to MCP server, HTTP server, or intake commands based on arguments
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/harperreed/intake/cli"
	"github.com/harperreed/intake/db"
	"github.com/harperreed/intake/web"
)

const version = "0.1.0"

func main() {
	// Optional .env for local overrides; missing file is fine
	_ = godotenv.Load()

	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/intake/intake.db)")
	port := flag.Int("port", 8080, "HTTP port for 'serve'")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("intake version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "mcp":
		database, err := db.OpenDatabase(getDatabasePath(*dbPath))
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		if err := cli.MCPCommand(database); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}

	case "serve":
		finalDBPath := getDatabasePath(*dbPath)
		database, err := db.OpenDatabase(finalDBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		log.Printf("Intake database: %s", finalDBPath)
		if err := web.NewServer(database).Start(*port); err != nil {
			log.Fatalf("Web server failed: %v", err)
		}

	case "intake":
		finalDBPath := getDatabasePath(*dbPath)
		database, err := db.OpenDatabase(finalDBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		log.Printf("Intake database: %s", finalDBPath)

		if *initOnly {
			log.Println("Database initialized successfully")
			os.Exit(0)
		}

		if len(commandArgs) == 0 {
			fmt.Println("Error: intake requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		intakeCommand := commandArgs[0]
		intakeArgs := commandArgs[1:]

		switch intakeCommand {
		case "list-sessions":
			if err := cli.ListSessionsCommand(database, intakeArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "show-session":
			if err := cli.ShowSessionCommand(database, intakeArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "convert":
			if err := cli.ConvertSessionCommand(database, intakeArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "expire-sessions":
			if err := cli.ExpireSessionsCommand(database, intakeArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "add-template":
			if err := cli.AddTemplateCommand(database, intakeArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "add-user":
			if err := cli.AddUserCommand(database, intakeArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown intake command: %s\n\n", intakeCommand)
			printUsage()
			os.Exit(1)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func getDatabasePath(dbPath string) string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("INTAKE_DB_PATH"); env != "" {
		return env
	}
	return filepath.Join(xdg.DataHome, "intake", "intake.db")
}

func printUsage() {
	fmt.Printf(`intake v%s - Multi-step intake form backend

USAGE:
  intake [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/intake/intake.db)
  --port <n>             HTTP port for 'serve' (default: 8080)
  --init                 Initialize database and exit (use with 'intake')

COMMANDS:
  mcp                    Start MCP server for Claude Desktop
  serve                  Start the public intake HTTP API
  intake                 Session and configuration commands

MCP SERVER:
  intake mcp             Start MCP server (for Claude Desktop integration)

INTAKE COMMANDS:
  intake intake list-sessions   List sessions
    --org <uuid>                  Organization ID (required)
    --status <status>             Filter: IN_PROGRESS, COMPLETED, ABANDONED
    --limit <n>                   Max results (default: 50)

  intake intake show-session <id>  Show one session with its form data

  intake intake convert --org <uuid> <id>  Convert a completed session

  intake intake expire-sessions  Abandon stale IN_PROGRESS sessions
    --age <duration>               Idle age cutoff (default: 72h)

  intake intake add-template    Create an intake template
    --org <uuid>                  Organization ID (required)
    --name <name>                 Template name (required)
    --customer=<bool>             Enable customer conversion (default: true)
    --quote=<bool>                Enable quote conversion (default: true)

  intake intake add-user        Create a user
    --org <uuid>                  Organization ID (required)
    --email <email>               User email (required)
    --name <name>                 Display name
    --role <role>                 admin or member (default: member)

EXAMPLES:
  # Start MCP server for Claude Desktop
  intake mcp

  # Serve the public intake API on port 8080
  intake serve

  # Create a template and an admin to own converted quotes
  intake intake add-template --org <uuid> --name "home-services"
  intake intake add-user --org <uuid> --email admin@example.com --role admin

  # Convert a completed session
  intake intake convert --org <uuid> 01J8ZQ3V9GVJ2M4W5X6Y7Z8A9B

`, version)
}
