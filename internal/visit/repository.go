package visit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the SQLite implementation of Store.
//
// WithTechnicianLock relies on the database being opened by db.Open, whose
// DSN makes every transaction BEGIN IMMEDIATE: the write lock is taken before
// the overlap check runs, so two bookings can never both pass it.
type Repository struct {
	db *sql.DB
	queries
}

// NewRepository creates a visit repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, queries: queries{q: db}}
}

type queries struct {
	q querier
}

const selectVisit = `SELECT v.id, v.technician_id, v.client_id, v.visit_date, v.start_time, v.end_time,
	v.service_type, v.description, v.state, v.notes, v.created_at, v.updated_at,
	COALESCE(t.first_name, ''), COALESCE(t.last_name, ''), COALESCE(t.specialty, ''),
	COALESCE(c.first_name, ''), COALESCE(c.last_name, ''), COALESCE(c.company, ''),
	COALESCE(c.phone, ''), COALESCE(c.address, '')
	FROM visits v
	LEFT JOIN technicians t ON t.id = v.technician_id
	LEFT JOIN clients c ON c.id = v.client_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*Visit, error) {
	var (
		v                Visit
		date, start, end string
		tech             TechnicianSummary
		cli              ClientSummary
	)
	err := row.Scan(&v.ID, &v.TechnicianID, &v.ClientID, &date, &start, &end,
		&v.ServiceType, &v.Description, &v.State, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
		&tech.FirstName, &tech.LastName, &tech.Specialty,
		&cli.FirstName, &cli.LastName, &cli.Company, &cli.Phone, &cli.Address)
	if err != nil {
		return nil, err
	}
	if v.Date, err = ParseDate(date); err != nil {
		return nil, fmt.Errorf("visit %d: %w", v.ID, err)
	}
	if v.Start, err = ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("visit %d: %w", v.ID, err)
	}
	if v.End, err = ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("visit %d: %w", v.ID, err)
	}
	tech.ID = v.TechnicianID
	cli.ID = v.ClientID
	v.Technician = &tech
	v.Client = &cli
	return &v, nil
}

// Create inserts a new visit.
func (r queries) Create(ctx context.Context, v *Visit) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO visits (technician_id, client_id, visit_date, start_time, end_time, service_type, description, state, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.TechnicianID, v.ClientID, v.Date.String(), FormatTime(v.Start), FormatTime(v.End),
		v.ServiceType, v.Description, v.State, v.Notes,
	)
	if err != nil {
		return 0, storeErr("inserting visit", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storeErr("getting insert id", err)
	}
	return id, nil
}

// Get returns a visit by ID.
func (r queries) Get(ctx context.Context, id int64) (*Visit, error) {
	v, err := scanVisit(r.q.QueryRowContext(ctx, selectVisit+" WHERE v.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "visit", ID: id}
	}
	if err != nil {
		return nil, storeErr("reading visit", err)
	}
	return v, nil
}

// GetState returns the current state of a visit.
func (r queries) GetState(ctx context.Context, id int64) (State, error) {
	var s State
	err := r.q.QueryRowContext(ctx, "SELECT state FROM visits WHERE id = ?", id).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &NotFoundError{Resource: "visit", ID: id}
	}
	if err != nil {
		return "", storeErr("reading visit state", err)
	}
	return s, nil
}

// SetState changes the state of a visit.
func (r queries) SetState(ctx context.Context, id int64, s State) error {
	result, err := r.q.ExecContext(ctx,
		"UPDATE visits SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", s, id)
	return affectedOne(result, err, "updating visit state", id)
}

// Update replaces the mutable fields of a visit.
func (r queries) Update(ctx context.Context, v *Visit) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE visits SET technician_id = ?, client_id = ?, visit_date = ?, start_time = ?, end_time = ?,
		 service_type = ?, description = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		v.TechnicianID, v.ClientID, v.Date.String(), FormatTime(v.Start), FormatTime(v.End),
		v.ServiceType, v.Description, v.Notes, v.ID,
	)
	return affectedOne(result, err, "updating visit", v.ID)
}

// Delete removes a visit by ID.
func (r queries) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM visits WHERE id = ?", id)
	return affectedOne(result, err, "deleting visit", id)
}

// HasOverlap checks the technician's non-cancelled visits on date against
// the half-open interval [start, end).
func (r queries) HasOverlap(ctx context.Context, technicianID int64, date civil.Date, start, end civil.Time, excludeID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM visits
		     WHERE technician_id = ? AND visit_date = ? AND state != 'cancelled'
		       AND start_time < ? AND end_time > ? AND id != ?
		 )`,
		technicianID, date.String(), FormatTime(end), FormatTime(start), excludeID,
	).Scan(&exists)
	if err != nil {
		return false, storeErr("checking overlap", err)
	}
	return exists, nil
}

// TechnicianActive reports whether a technician is active.
func (r queries) TechnicianActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := r.q.QueryRowContext(ctx, "SELECT active FROM technicians WHERE id = ?", id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, &NotFoundError{Resource: "technician", ID: id}
	}
	if err != nil {
		return false, storeErr("reading technician", err)
	}
	return active, nil
}

// ClientExists reports whether a client exists.
func (r queries) ClientExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM clients WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, storeErr("reading client", err)
	}
	return exists, nil
}

// ListByDateRange returns visits dated within [start, end].
func (r *Repository) ListByDateRange(ctx context.Context, start, end civil.Date) (visits []*Visit, err error) {
	rows, err := r.db.QueryContext(ctx,
		selectVisit+" WHERE v.visit_date BETWEEN ? AND ? ORDER BY v.visit_date, v.start_time, v.id",
		start.String(), end.String(),
	)
	if err != nil {
		return nil, storeErr("listing visits", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = storeErr("closing rows", closeErr)
		}
	}()

	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, storeErr("scanning visit", err)
		}
		visits = append(visits, v)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating visits", err)
	}

	return visits, nil
}

// StatsByTechnician aggregates non-cancelled visits per active technician.
func (r *Repository) StatsByTechnician(ctx context.Context, start, end civil.Date) (stats []TechnicianStats, err error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.first_name, t.last_name,
		        COUNT(v.id) AS total,
		        COALESCE(SUM(CASE WHEN v.state = 'completed' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN v.state = 'scheduled' THEN 1 ELSE 0 END), 0)
		 FROM technicians t
		 LEFT JOIN visits v ON v.technician_id = t.id
		      AND v.visit_date BETWEEN ? AND ?
		      AND v.state != 'cancelled'
		 WHERE t.active = 1
		 GROUP BY t.id, t.first_name, t.last_name
		 ORDER BY total DESC, t.id`,
		start.String(), end.String(),
	)
	if err != nil {
		return nil, storeErr("querying stats", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = storeErr("closing rows", closeErr)
		}
	}()

	for rows.Next() {
		var s TechnicianStats
		if err := rows.Scan(&s.TechnicianID, &s.FirstName, &s.LastName, &s.Total, &s.Completed, &s.Scheduled); err != nil {
			return nil, storeErr("scanning stats", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating stats", err)
	}

	return stats, nil
}

// WithTechnicianLock runs fn inside an immediate transaction. SQLite has a
// single writer, so the lock already covers every technician.
func (r *Repository) WithTechnicianLock(ctx context.Context, _ []int64, fn func(q Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("beginning transaction", err)
	}

	if err := fn(queries{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

// affectedOne turns an Exec result into a NotFoundError when no row matched.
func affectedOne(result sql.Result, err error, op string, id int64) error {
	if err != nil {
		return storeErr(op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr("checking rows affected", err)
	}
	if rows == 0 {
		return &NotFoundError{Resource: "visit", ID: id}
	}
	return nil
}
