// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	name TEXT NOT NULL,
	customer_mapping TEXT,
	quote_mapping TEXT,
	conversions INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_templates_org ON templates(organization_id);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	template_id TEXT NOT NULL,
	current_step TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('IN_PROGRESS', 'COMPLETED', 'ABANDONED')),
	form_data TEXT NOT NULL DEFAULT '{}',
	converted_at DATETIME,
	customer_id TEXT,
	quote_id TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (template_id) REFERENCES templates(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_org ON sessions(organization_id);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS people (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_people_email ON people(email);

CREATE TABLE IF NOT EXISTS businesses (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_businesses_email ON businesses(email);

CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	number TEXT NOT NULL,
	tier TEXT NOT NULL CHECK(tier IN ('PERSONAL', 'COMMERCIAL')),
	status TEXT NOT NULL CHECK(status IN ('PROSPECT', 'ACTIVE', 'INACTIVE')),
	person_id TEXT,
	business_id TEXT,
	deleted_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (person_id) REFERENCES people(id),
	FOREIGN KEY (business_id) REFERENCES businesses(id),
	CHECK ((person_id IS NULL) != (business_id IS NULL)),
	UNIQUE(organization_id, number)
);

CREATE INDEX IF NOT EXISTS idx_customers_org ON customers(organization_id);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	email TEXT NOT NULL,
	name TEXT,
	role TEXT NOT NULL CHECK(role IN ('admin', 'member')),
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_org_role ON users(organization_id, role);

CREATE TABLE IF NOT EXISTS quotes (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	number TEXT NOT NULL,
	customer_id TEXT NOT NULL,
	created_by_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('DRAFT', 'SENT', 'ACCEPTED', 'DECLINED')),
	description TEXT,
	notes TEXT,
	valid_until DATETIME NOT NULL,
	subtotal INTEGER NOT NULL DEFAULT 0,
	tax INTEGER NOT NULL DEFAULT 0,
	total INTEGER NOT NULL DEFAULT 0,
	raw_form_data TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (customer_id) REFERENCES customers(id),
	FOREIGN KEY (created_by_id) REFERENCES users(id),
	UNIQUE(organization_id, number)
);

CREATE INDEX IF NOT EXISTS idx_quotes_org ON quotes(organization_id);
CREATE INDEX IF NOT EXISTS idx_quotes_customer ON quotes(customer_id);

`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
