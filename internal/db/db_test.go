package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "schedule.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "schedule.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "schedule.db")
				d, err := Open(path)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				if err := d.Close(); err != nil {
					t.Fatalf("setup close: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Error("database file was not created")
			}
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestForeignKeys(t *testing.T) {
	d := openTestDB(t)

	var fk int
	if err := d.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	_, err := d.Exec(
		`INSERT INTO visits (technician_id, client_id, visit_date, start_time, end_time, service_type)
		 VALUES (999, 999, '2030-01-01', '09:00:00', '10:00:00', 'repair')`,
	)
	if err == nil {
		t.Error("expected foreign key violation for unknown technician and client")
	}
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []string
	}{
		{
			name:  "technicians table exists",
			table: "technicians",
			cols:  []string{"id", "first_name", "last_name", "phone", "email", "specialty", "active", "created_at"},
		},
		{
			name:  "clients table exists",
			table: "clients",
			cols:  []string{"id", "first_name", "last_name", "company", "phone", "email", "address", "city", "created_at"},
		},
		{
			name:  "visits table exists",
			table: "visits",
			cols:  []string{"id", "technician_id", "client_id", "visit_date", "start_time", "end_time", "service_type", "description", "state", "notes", "created_at", "updated_at"},
		},
		{
			name:  "api_keys table exists",
			table: "api_keys",
			cols:  []string{"id", "name", "key_prefix", "key_hash", "created_at", "last_used_at"},
		},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tableColumns(t, d, tt.table)
			if len(cols) != len(tt.cols) {
				t.Fatalf("got %d columns, want %d: %v", len(cols), len(tt.cols), cols)
			}
			for i, want := range tt.cols {
				if cols[i] != want {
					t.Errorf("column %d = %q, want %q", i, cols[i], want)
				}
			}
		})
	}
}

func TestVisitConstraints(t *testing.T) {
	d := openTestDB(t)
	techID, clientID := seedReferences(t, d)

	insert := `INSERT INTO visits (technician_id, client_id, visit_date, start_time, end_time, service_type, state)
		VALUES (?, ?, ?, ?, ?, 'repair', ?)`

	tests := []struct {
		name       string
		date       string
		start, end string
		state      string
		wantErr    bool
	}{
		{"valid scheduled visit", "2030-01-01", "09:00:00", "10:00:00", "scheduled", false},
		{"completed state is valid", "2030-01-01", "11:00:00", "12:00:00", "completed", false},
		{"cancelled state is valid", "2030-01-01", "13:00:00", "14:00:00", "cancelled", false},
		{"unknown state is invalid", "2030-01-01", "09:00:00", "10:00:00", "pending", true},
		{"end equal to start is invalid", "2030-01-01", "09:00:00", "09:00:00", "scheduled", true},
		{"end before start is invalid", "2030-01-01", "10:00:00", "09:00:00", "scheduled", true},
		{"short time is invalid", "2030-01-01", "9:00", "10:00:00", "scheduled", true},
		{"short date is invalid", "2030-1-1", "09:00:00", "10:00:00", "scheduled", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Exec(insert, techID, clientID, tt.date, tt.start, tt.end, tt.state)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTechnicianEmailUnique(t *testing.T) {
	d := openTestDB(t)
	seedReferences(t, d)

	_, err := d.Exec(
		`INSERT INTO technicians (first_name, last_name, phone, email, specialty) VALUES (?, ?, ?, ?, ?)`,
		"Other", "Tech", "555-0101", "ana@example.com", "hvac",
	)
	if err == nil {
		t.Error("expected unique constraint violation on email")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.db")

	// Open twice: migrations should not fail on second run
	d1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := d1.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (idempotency): %v", err)
	}
	if err := d2.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(p) != "schedule.db" {
		t.Errorf("expected filename schedule.db, got %s", filepath.Base(p))
	}

	dir := filepath.Base(filepath.Dir(p))
	if dir != "fsched" {
		t.Errorf("expected directory fsched, got %s", dir)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return d
}

// seedReferences inserts one technician and one client.
func seedReferences(t *testing.T, d *sql.DB) (int64, int64) {
	t.Helper()
	res, err := d.Exec(
		`INSERT INTO technicians (first_name, last_name, phone, email, specialty) VALUES (?, ?, ?, ?, ?)`,
		"Ana", "Ruiz", "555-0100", "ana@example.com", "electrical",
	)
	if err != nil {
		t.Fatalf("insert technician: %v", err)
	}
	techID, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("technician id: %v", err)
	}

	res, err = d.Exec(
		`INSERT INTO clients (first_name, last_name, phone, address) VALUES (?, ?, ?, ?)`,
		"Luis", "Gomez", "555-0200", "1 Main St",
	)
	if err != nil {
		t.Fatalf("insert client: %v", err)
	}
	clientID, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("client id: %v", err)
	}
	return techID, clientID
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}
