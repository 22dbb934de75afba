// Package sqlite opens the policy database and keeps its schema current.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// pragmas via DSN so every pooled connection gets them.
	// _txlock=immediate makes BEGIN take the write lock, so a transaction
	// that reads before it writes waits on busy_timeout instead of failing
	// with SQLITE_BUSY when it would upgrade.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_txlock=immediate", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Ping is used by the readiness probe.
func Ping(ctx context.Context, db *sql.DB) error {
	var one int
	return db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

func Migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS namespaces (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1,
	labels TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attribute_definitions (
	id TEXT PRIMARY KEY,
	namespace_id TEXT NOT NULL REFERENCES namespaces(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	rule TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	labels TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (namespace_id, name)
);

-- sort_order keeps the order values were defined in, which ranks HIERARCHY values.
CREATE TABLE IF NOT EXISTS attribute_values (
	id TEXT PRIMARY KEY,
	attribute_definition_id TEXT NOT NULL REFERENCES attribute_definitions(id) ON DELETE CASCADE,
	value TEXT NOT NULL,
	sort_order INTEGER NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	labels TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (attribute_definition_id, value)
);

CREATE INDEX IF NOT EXISTS idx_attribute_values_definition ON attribute_values(attribute_definition_id, sort_order);

CREATE TABLE IF NOT EXISTS attribute_value_members (
	value_id TEXT NOT NULL REFERENCES attribute_values(id) ON DELETE CASCADE,
	member_id TEXT NOT NULL REFERENCES attribute_values(id) ON DELETE CASCADE,
	PRIMARY KEY (value_id, member_id),
	CHECK (value_id <> member_id)
);

CREATE TABLE IF NOT EXISTS key_access_servers (
	id TEXT PRIMARY KEY,
	uri TEXT NOT NULL UNIQUE,
	public_key_remote TEXT NOT NULL DEFAULT '',
	public_key_local TEXT NOT NULL DEFAULT '',
	labels TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attribute_definition_key_access_grants (
	attribute_definition_id TEXT NOT NULL REFERENCES attribute_definitions(id) ON DELETE CASCADE,
	key_access_server_id TEXT NOT NULL REFERENCES key_access_servers(id) ON DELETE RESTRICT,
	PRIMARY KEY (attribute_definition_id, key_access_server_id)
);

CREATE TABLE IF NOT EXISTS attribute_value_key_access_grants (
	attribute_value_id TEXT NOT NULL REFERENCES attribute_values(id) ON DELETE CASCADE,
	key_access_server_id TEXT NOT NULL REFERENCES key_access_servers(id) ON DELETE RESTRICT,
	PRIMARY KEY (attribute_value_id, key_access_server_id)
);

-- condition holds the CBOR encoded subject sets.
CREATE TABLE IF NOT EXISTS subject_condition_sets (
	id TEXT PRIMARY KEY,
	condition BLOB NOT NULL,
	labels TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subject_mappings (
	id TEXT PRIMARY KEY,
	attribute_value_id TEXT NOT NULL REFERENCES attribute_values(id) ON DELETE CASCADE,
	subject_condition_set_id TEXT NOT NULL REFERENCES subject_condition_sets(id) ON DELETE RESTRICT,
	actions BLOB NOT NULL,
	labels TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_subject_mappings_value ON subject_mappings(attribute_value_id);
CREATE INDEX IF NOT EXISTS idx_subject_mappings_scs ON subject_mappings(subject_condition_set_id);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	// Databases created before key access servers had a display name.
	if err := ensureColumn(db, "key_access_servers", "name", "name TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_key_access_servers_name ON key_access_servers(name) WHERE name <> ''`); err != nil {
		return err
	}

	return nil
}

func ensureColumn(db *sql.DB, table, col, ddl string) error {
	cols, err := tableColumns(db, table)
	if err != nil {
		return err
	}
	if cols[col] {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", table, ddl))
	return err
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s);", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notnull   int
			dfltValue *string
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}
