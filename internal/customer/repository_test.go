package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/evcraddock/field-scheduler/internal/db"
	"github.com/evcraddock/field-scheduler/internal/visit"
)

func TestCreateAndGet(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	saved, err := repo.Create(ctx, &Customer{
		FirstName: "Luis",
		LastName:  "Gomez",
		Company:   "Gomez Bakery",
		Phone:     "555-0200",
		Address:   " 1 Main St ",
		City:      "Springfield",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected non-zero ID")
	}

	got, err := repo.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Address != "1 Main St" {
		t.Errorf("address = %q, want %q", got.Address, "1 Main St")
	}
	if got.DisplayName() != "Luis Gomez (Gomez Bakery)" {
		t.Errorf("display name = %q", got.DisplayName())
	}
	if got.Email != "" {
		t.Errorf("email = %q, want empty", got.Email)
	}
}

func TestGetNotFound(t *testing.T) {
	repo, _ := testRepo(t)

	if _, err := repo.Get(context.Background(), 9999); !errors.Is(err, visit.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateValidation(t *testing.T) {
	base := Customer{FirstName: "L", LastName: "G", Phone: "1", Address: "A"}
	tests := []struct {
		name   string
		mutate func(c *Customer)
		field  string
	}{
		{"missing first name", func(c *Customer) { c.FirstName = "" }, "first_name"},
		{"missing last name", func(c *Customer) { c.LastName = " " }, "last_name"},
		{"missing phone", func(c *Customer) { c.Phone = "" }, "phone"},
		{"missing address", func(c *Customer) { c.Address = "" }, "address"},
		{"invalid email", func(c *Customer) { c.Email = "luis@" }, "email"},
	}

	repo, _ := testRepo(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			_, err := repo.Create(context.Background(), &c)
			var verr *visit.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestListWithVisitSummary(t *testing.T) {
	repo, d := testRepo(t)
	ctx := context.Background()

	luis := mustCreate(t, repo, "Luis", "Gomez", "")
	mustCreate(t, repo, "Ada", "Byrne", "")

	techID := insertTechnician(t, d)
	insertVisit(t, d, techID, luis.ID, "2030-06-15")
	insertVisit(t, d, techID, luis.ID, "2030-07-01")

	customers, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("got %d, want 2", len(customers))
	}
	if customers[0].LastName != "Byrne" {
		t.Errorf("first = %q, want Byrne", customers[0].LastName)
	}
	if customers[0].VisitCount != 0 || customers[0].LastVisit != "" {
		t.Errorf("Byrne summary = %d / %q, want 0 / empty", customers[0].VisitCount, customers[0].LastVisit)
	}
	if customers[1].VisitCount != 2 || customers[1].LastVisit != "2030-07-01" {
		t.Errorf("Gomez summary = %d / %q, want 2 / 2030-07-01", customers[1].VisitCount, customers[1].LastVisit)
	}
}

func TestSearch(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, "Luis", "Gomez", "Gomez Bakery")
	mustCreate(t, repo, "Ada", "Byrne", "Acme 100% Plumbing")
	mustCreate(t, repo, "Maria", "Lopez", "")

	tests := []struct {
		term string
		want int
	}{
		{"gomez", 1},
		{"GOMEZ", 1},
		{"bakery", 1},
		{"luis gomez", 1},
		{"lo", 1},
		{"100%", 1},
		{"%", 0},
		{"zz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := repo.Search(ctx, tt.term)
			if tt.term == "%" {
				var verr *visit.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("err = %v, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Search(%q) = %d results, want %d", tt.term, len(got), tt.want)
			}
		})
	}
}

func TestSearchLimit(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	for i := 0; i < SearchLimit+5; i++ {
		mustCreate(t, repo, fmt.Sprintf("Client%02d", i), "Smith", "")
	}

	got, err := repo.Search(ctx, "smith")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != SearchLimit {
		t.Errorf("got %d results, want %d", len(got), SearchLimit)
	}
}

func TestUpdate(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	c := mustCreate(t, repo, "Luis", "Gomez", "")
	c.City = "Shelbyville"
	c.Email = "luis@example.com"

	updated, err := repo.Update(ctx, c)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.City != "Shelbyville" || updated.Email != "luis@example.com" {
		t.Errorf("update not applied: %+v", updated)
	}

	c.ID = 9999
	if _, err := repo.Update(ctx, c); !errors.Is(err, visit.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo, d := testRepo(t)
	ctx := context.Background()

	free := mustCreate(t, repo, "Ada", "Byrne", "")
	booked := mustCreate(t, repo, "Luis", "Gomez", "")
	insertVisit(t, d, insertTechnician(t, d), booked.ID, "2030-06-15")

	if err := repo.Delete(ctx, booked.ID); !errors.Is(err, visit.ErrConflict) {
		t.Fatalf("delete booked err = %v, want ErrConflict", err)
	}
	if err := repo.Delete(ctx, free.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, free.ID); !errors.Is(err, visit.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, free.ID); !errors.Is(err, visit.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func mustCreate(t *testing.T, repo *Repository, first, last, company string) *Customer {
	t.Helper()
	c, err := repo.Create(context.Background(), &Customer{
		FirstName: first, LastName: last, Company: company, Phone: "555-0200", Address: "1 Main St",
	})
	if err != nil {
		t.Fatalf("create %s %s: %v", first, last, err)
	}
	return c
}

func insertTechnician(t *testing.T, d *sql.DB) int64 {
	t.Helper()
	res, err := d.Exec(
		`INSERT INTO technicians (first_name, last_name, phone, email, specialty)
		 VALUES ('Ana', 'Ruiz', '555-0100', 'ana@example.com', 'electrical')`,
	)
	if err != nil {
		t.Fatalf("insert technician: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

func insertVisit(t *testing.T, d *sql.DB, techID, clientID int64, date string) {
	t.Helper()
	_, err := d.Exec(
		`INSERT INTO visits (technician_id, client_id, visit_date, start_time, end_time, service_type)
		 VALUES (?, ?, ?, '09:00:00', '10:00:00', 'repair')`,
		techID, clientID, date,
	)
	if err != nil {
		t.Fatalf("insert visit: %v", err)
	}
}

func testRepo(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewRepository(d), d
}
