package technician

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/evcraddock/field-scheduler/internal/visit"
)

// Repository provides CRUD operations for technicians.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a technician repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, first_name, last_name, phone, email, specialty, active, created_at`

func scanTechnician(row interface{ Scan(...any) error }) (*Technician, error) {
	var t Technician
	err := row.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Phone, &t.Email, &t.Specialty, &t.Active, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create adds a new active technician and returns it with its generated ID.
func (r *Repository) Create(ctx context.Context, t *Technician) (*Technician, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO technicians (first_name, last_name, phone, email, specialty) VALUES (?, ?, ?, ?, ?)`,
		t.FirstName, t.LastName, t.Phone, t.Email, t.Specialty,
	)
	if err != nil {
		return nil, writeErr("inserting technician", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, &visit.StoreError{Op: "getting insert id", Err: err}
	}

	return r.Get(ctx, id)
}

// Get returns a technician by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Technician, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM technicians WHERE id = ?", id)
	t, err := scanTechnician(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &visit.NotFoundError{Resource: "technician", ID: id}
	}
	if err != nil {
		return nil, &visit.StoreError{Op: fmt.Sprintf("querying technician %d", id), Err: err}
	}
	return t, nil
}

// List returns technicians ordered by name. Inactive technicians are
// included only when all is true.
func (r *Repository) List(ctx context.Context, all bool) (techs []*Technician, err error) {
	query := "SELECT " + selectColumns + " FROM technicians"
	if !all {
		query += " WHERE active = 1"
	}
	query += " ORDER BY last_name, first_name, id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &visit.StoreError{Op: "listing technicians", Err: err}
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = &visit.StoreError{Op: "closing rows", Err: closeErr}
		}
	}()

	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, &visit.StoreError{Op: "scanning technician", Err: err}
		}
		techs = append(techs, t)
	}

	if err := rows.Err(); err != nil {
		return nil, &visit.StoreError{Op: "iterating technicians", Err: err}
	}

	return techs, nil
}

// Update replaces the contact and specialty fields of a technician. The
// active flag is left alone; use Deactivate.
func (r *Repository) Update(ctx context.Context, t *Technician) (*Technician, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE technicians SET first_name = ?, last_name = ?, phone = ?, email = ?, specialty = ? WHERE id = ?`,
		t.FirstName, t.LastName, t.Phone, t.Email, t.Specialty, t.ID,
	)
	if err := affectedOne(result, err, "updating technician", t.ID); err != nil {
		return nil, err
	}

	return r.Get(ctx, t.ID)
}

// Deactivate marks a technician inactive. Existing visits are kept but no
// new ones can be booked.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "UPDATE technicians SET active = 0 WHERE id = ?", id)
	return affectedOne(result, err, "deactivating technician", id)
}

func affectedOne(result sql.Result, err error, op string, id int64) error {
	if err != nil {
		return writeErr(op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return &visit.StoreError{Op: "checking rows affected", Err: err}
	}
	if rows == 0 {
		return &visit.NotFoundError{Resource: "technician", ID: id}
	}
	return nil
}

// writeErr maps a unique email violation to a conflict.
func writeErr(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return &visit.ConflictError{Reason: "a technician with that email already exists"}
	}
	return &visit.StoreError{Op: op, Err: err}
}
