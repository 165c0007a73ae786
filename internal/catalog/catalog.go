// Package catalog provides a read-only facade over the SQLite data source:
// schema introspection (tables, columns, sample values) and row-bounded
// query execution.
//
// The catalog snapshot is built once at construction and never mutated, so
// it is safely shared across concurrent pipeline requests without locking.
package catalog

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// Column describes a single column of a source table.
type Column struct {
	Name         string `json:"name"`
	DeclaredType string `json:"declared_type"`
	// SampleValues holds up to sampleValuesPerColumn representative non-NULL
	// values, used for term disambiguation and NLU vocabulary.
	SampleValues []any `json:"sample_values,omitempty"`
}

// Table describes a source table with its columns in declaration order.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// sampleValuesPerColumn bounds the introspection queries.
const sampleValuesPerColumn = 3

// Catalog is the read-only schema and execution facade over the data source.
type Catalog struct {
	db     *sql.DB
	tables []Table
	byName map[string]int // table name -> index into tables
}

// Open opens the SQLite database at path and builds the schema snapshot.
//
// The connection is configured for shared read access:
//   - WAL mode so readers never block a concurrent writer
//   - query_only so no statement executed through this handle can mutate
//   - 5-second busy timeout for lock contention
func Open(path string) (*Catalog, error) {
	// The driver would silently create a missing file; an empty database
	// is never what a read-only consumer wants.
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("database not found: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA query_only = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	cat, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cat, nil
}

// New builds a Catalog over an already-open database handle.
// The caller retains ownership of db configuration; used by tests with
// in-memory databases seeded beforehand.
func New(db *sql.DB) (*Catalog, error) {
	c := &Catalog{db: db, byName: make(map[string]int)}
	if err := c.introspect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Tables returns the schema snapshot in declaration order.
// The returned slice must not be modified.
func (c *Catalog) Tables() []Table {
	return c.tables
}

// Table returns the named table's schema, if present.
func (c *Catalog) Table(name string) (Table, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Table{}, false
	}
	return c.tables[i], true
}

// HasColumn reports whether the named table contains the named column.
func (c *Catalog) HasColumn(table, column string) bool {
	t, ok := c.Table(table)
	if !ok {
		return false
	}
	for _, col := range t.Columns {
		if col.Name == column {
			return true
		}
	}
	return false
}

// introspect builds the schema snapshot from sqlite_master and table_info.
func (c *Catalog) introspect() error {
	rows, err := c.db.Query(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate tables: %w", err)
	}

	for _, name := range names {
		table, err := c.introspectTable(name)
		if err != nil {
			return err
		}
		c.byName[name] = len(c.tables)
		c.tables = append(c.tables, table)
	}
	return nil
}

func (c *Catalog) introspectTable(name string) (Table, error) {
	rows, err := c.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(name)))
	if err != nil {
		return Table{}, fmt.Errorf("failed to introspect %s: %w", name, err)
	}
	defer rows.Close()

	table := Table{Name: name}
	for rows.Next() {
		var (
			cid        int
			colName    string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultVal, &pk); err != nil {
			return Table{}, fmt.Errorf("failed to scan column info for %s: %w", name, err)
		}
		table.Columns = append(table.Columns, Column{Name: colName, DeclaredType: colType})
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("failed to iterate columns for %s: %w", name, err)
	}

	for i := range table.Columns {
		samples, err := c.sampleColumn(name, table.Columns[i].Name)
		if err != nil {
			return Table{}, err
		}
		table.Columns[i].SampleValues = samples
	}
	return table, nil
}

// sampleColumn collects a few distinct non-NULL values for disambiguation.
// Identifiers come from introspection, never from user input.
func (c *Catalog) sampleColumn(table, column string) ([]any, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL LIMIT %d`,
		quoteIdent(column), quoteIdent(table), quoteIdent(column), sampleValuesPerColumn)

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var samples []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan sample for %s.%s: %w", table, column, err)
		}
		samples = append(samples, normalizeScanned(v))
	}
	return samples, rows.Err()
}

// quoteIdent double-quotes an identifier for SQLite.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
