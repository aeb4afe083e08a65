package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/evcraddock/field-scheduler/internal/visit"
)

const (
	// MinSearchLength is the shortest accepted search term.
	MinSearchLength = 2
	// SearchLimit caps the number of search results.
	SearchLimit = 20
)

// Repository provides CRUD operations for clients.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a client repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `c.id, c.first_name, c.last_name, c.company, c.phone, c.email, c.address, c.city, c.created_at`

func scanCustomer(row interface{ Scan(...any) error }, extra ...any) (*Customer, error) {
	var c Customer
	dest := append([]any{&c.ID, &c.FirstName, &c.LastName, &c.Company, &c.Phone, &c.Email, &c.Address, &c.City, &c.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create adds a new client and returns it with its generated ID.
func (r *Repository) Create(ctx context.Context, c *Customer) (*Customer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (first_name, last_name, company, phone, email, address, city) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.FirstName, c.LastName, c.Company, c.Phone, c.Email, c.Address, c.City,
	)
	if err != nil {
		return nil, &visit.StoreError{Op: "inserting client", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, &visit.StoreError{Op: "getting insert id", Err: err}
	}

	return r.Get(ctx, id)
}

// Get returns a client by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM clients c WHERE c.id = ?", id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &visit.NotFoundError{Resource: "client", ID: id}
	}
	if err != nil {
		return nil, &visit.StoreError{Op: fmt.Sprintf("querying client %d", id), Err: err}
	}
	return c, nil
}

// List returns every client ordered by name, with the number of visits
// booked for them and the date of their latest one.
func (r *Repository) List(ctx context.Context) ([]*Customer, error) {
	return r.query(ctx, "listing clients",
		`SELECT `+selectColumns+`, COUNT(v.id), COALESCE(MAX(v.visit_date), '')
		 FROM clients c
		 LEFT JOIN visits v ON v.client_id = c.id
		 GROUP BY c.id
		 ORDER BY c.last_name, c.first_name, c.id`)
}

// Search returns up to SearchLimit clients whose name or company contains
// term, ignoring case.
func (r *Repository) Search(ctx context.Context, term string) ([]*Customer, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinSearchLength {
		return nil, &visit.ValidationError{Field: "q", Message: fmt.Sprintf("must be at least %d characters", MinSearchLength)}
	}

	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	return r.query(ctx, "searching clients",
		`SELECT `+selectColumns+`, COUNT(v.id), COALESCE(MAX(v.visit_date), '')
		 FROM clients c
		 LEFT JOIN visits v ON v.client_id = c.id
		 WHERE lower(c.first_name) LIKE ?1 ESCAPE '\'
		    OR lower(c.last_name) LIKE ?1 ESCAPE '\'
		    OR lower(c.first_name || ' ' || c.last_name) LIKE ?1 ESCAPE '\'
		    OR lower(c.company) LIKE ?1 ESCAPE '\'
		 GROUP BY c.id
		 ORDER BY c.last_name, c.first_name, c.id
		 LIMIT ?2`,
		pattern, SearchLimit)
}

func (r *Repository) query(ctx context.Context, op, query string, args ...any) (customers []*Customer, err error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &visit.StoreError{Op: op, Err: err}
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = &visit.StoreError{Op: "closing rows", Err: closeErr}
		}
	}()

	for rows.Next() {
		var count int
		var last string
		c, err := scanCustomer(rows, &count, &last)
		if err != nil {
			return nil, &visit.StoreError{Op: "scanning client", Err: err}
		}
		c.VisitCount = count
		c.LastVisit = last
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, &visit.StoreError{Op: op, Err: err}
	}

	return customers, nil
}

// Update replaces the fields of a client.
func (r *Repository) Update(ctx context.Context, c *Customer) (*Customer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE clients SET first_name = ?, last_name = ?, company = ?, phone = ?, email = ?, address = ?, city = ?
		 WHERE id = ?`,
		c.FirstName, c.LastName, c.Company, c.Phone, c.Email, c.Address, c.City, c.ID,
	)
	if err := affectedOne(result, err, "updating client", c.ID); err != nil {
		return nil, err
	}

	return r.Get(ctx, c.ID)
}

// Delete removes a client. Clients with visits on record cannot be deleted.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &visit.StoreError{Op: "beginning transaction", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var visits int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM visits WHERE client_id = ?", id).Scan(&visits); err != nil {
		return &visit.StoreError{Op: "counting client visits", Err: err}
	}
	if visits > 0 {
		return &visit.ConflictError{Reason: fmt.Sprintf("client has %d visits on record", visits)}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err := affectedOne(result, err, "deleting client", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &visit.StoreError{Op: "committing transaction", Err: err}
	}
	return nil
}

func affectedOne(result sql.Result, err error, op string, id int64) error {
	if err != nil {
		return &visit.StoreError{Op: op, Err: err}
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return &visit.StoreError{Op: "checking rows affected", Err: err}
	}
	if rows == 0 {
		return &visit.NotFoundError{Resource: "client", ID: id}
	}
	return nil
}

// escapeLike escapes LIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
