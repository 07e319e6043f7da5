package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aryan0dhankhar/eventcrm/pkg/database"
)

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS departments (
	id {{pk}},
	name VARCHAR(32) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
	id {{pk}},
	full_name VARCHAR(128) NOT NULL,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	department_id BIGINT NOT NULL REFERENCES departments(id),
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS clients (
	id {{pk}},
	full_name VARCHAR(128) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(32) NOT NULL DEFAULT '',
	company_name VARCHAR(128) NOT NULL DEFAULT '',
	sales_contact_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS contracts (
	id {{pk}},
	client_id BIGINT NOT NULL REFERENCES clients(id),
	sales_contact_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
	amount {{money}} NOT NULL,
	remaining_amount {{money}} NOT NULL,
	signed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id {{pk}},
	contract_id BIGINT NOT NULL REFERENCES contracts(id),
	client_id BIGINT NOT NULL REFERENCES clients(id),
	support_contact_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
	name VARCHAR(128) NOT NULL,
	start_date {{ts}} NOT NULL,
	end_date {{ts}} NOT NULL,
	location VARCHAR(255) NOT NULL DEFAULT '',
	attendees INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clients_sales_contact ON clients(sales_contact_id);
CREATE INDEX IF NOT EXISTS idx_contracts_client ON contracts(client_id);
CREATE INDEX IF NOT EXISTS idx_events_contract ON events(contract_id);
CREATE INDEX IF NOT EXISTS idx_events_support_contact ON events(support_contact_id);
`

// Schema renders the table definitions for dialect.
func Schema(dialect database.Dialect) string {
	r := strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "TIMESTAMP",
		"{{money}}", "REAL",
	)
	if dialect == database.DialectPostgres {
		r = strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{ts}}", "TIMESTAMPTZ",
			"{{money}}", "NUMERIC(12,2)",
		)
	}
	return r.Replace(schemaTemplate)
}

// EnsureSchema creates missing tables. It never alters existing ones.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect database.Dialect) error {
	for _, stmt := range strings.Split(Schema(dialect), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
