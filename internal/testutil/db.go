package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/cohort/internal/catalog"
)

// bankSchema mirrors the bank-marketing dataset shape used throughout the
// test suite. Only the columns exercised by tests carry realistic values.
const bankSchema = `
CREATE TABLE bank_customers (
	age      INTEGER,
	job      TEXT,
	marital  TEXT,
	education TEXT,
	"default" TEXT,
	balance  INTEGER,
	housing  TEXT,
	loan     TEXT,
	contact  TEXT,
	day      INTEGER,
	month    TEXT,
	duration INTEGER,
	campaign INTEGER,
	pdays    INTEGER,
	previous INTEGER,
	poutcome TEXT,
	y        TEXT
);
`

// bankRows is a small deterministic slice of the dataset.
var bankRows = [][]any{
	{58, "management", "married", "tertiary", "no", 2143, "yes", "no", "unknown", 5, "may", 261, 1, -1, 0, "unknown", "no"},
	{44, "technician", "single", "secondary", "no", 29, "yes", "no", "unknown", 5, "may", 151, 1, -1, 0, "unknown", "no"},
	{33, "entrepreneur", "married", "secondary", "no", 2, "yes", "yes", "unknown", 5, "may", 76, 1, -1, 0, "unknown", "no"},
	{47, "blue-collar", "married", "unknown", "no", 1506, "yes", "no", "unknown", 5, "may", 92, 1, -1, 0, "unknown", "no"},
	{35, "management", "single", "tertiary", "no", 231, "yes", "no", "unknown", 5, "may", 139, 1, -1, 0, "unknown", "no"},
	{28, "services", "single", "secondary", "no", 5090, "no", "no", "cellular", 14, "jul", 1467, 2, -1, 0, "unknown", "yes"},
	{59, "admin.", "married", "secondary", "no", 2343, "yes", "no", "unknown", 5, "may", 1042, 1, -1, 0, "unknown", "yes"},
	{41, "retired", "divorced", "primary", "no", 121, "no", "no", "cellular", 17, "nov", 100, 2, -1, 0, "unknown", "no"},
}

// OpenBankDB creates an in-memory SQLite database seeded with the
// bank_customers fixture. Closed automatically via t.Cleanup.
func OpenBankDB(t *testing.T) *sql.DB {
	t.Helper()
	return openSeeded(t, ":memory:")
}

// WriteBankDB seeds the fixture into a file under t.TempDir and returns its
// path, for tests that exercise the on-disk open path.
func WriteBankDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bank.db")
	db := openSeeded(t, path)
	if err := db.Close(); err != nil {
		t.Fatalf("close fixture database: %v", err)
	}
	return path
}

func openSeeded(t *testing.T, dsn string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(bankSchema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}

	stmt := `INSERT INTO bank_customers VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	for i, row := range bankRows {
		if _, err := db.Exec(stmt, row...); err != nil {
			t.Fatalf("insert fixture row %d: %v", i, err)
		}
	}
	return db
}

// NewBankCatalog builds a Catalog over the seeded fixture database.
func NewBankCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.New(OpenBankDB(t))
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return cat
}
