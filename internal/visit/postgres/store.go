// Package postgres implements visit.Store on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evcraddock/field-scheduler/internal/visit"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a visit.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	queries
}

// NewStore creates a store on pool. Call Migrate before first use.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, queries: queries{q: pool}}
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Migrate creates the schedule tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// queries runs single-visit statements. forUpdate is set inside a
// technician lock so reads of the visit row also lock it.
type queries struct {
	q         querier
	forUpdate bool
}

const selectVisit = `SELECT v.id, v.technician_id, v.client_id,
	to_char(v.visit_date, 'YYYY-MM-DD'), to_char(v.start_time, 'HH24:MI:SS'), to_char(v.end_time, 'HH24:MI:SS'),
	v.service_type, v.description, v.state, v.notes, v.created_at, v.updated_at,
	COALESCE(t.first_name, ''), COALESCE(t.last_name, ''), COALESCE(t.specialty, ''),
	COALESCE(c.first_name, ''), COALESCE(c.last_name, ''), COALESCE(c.company, ''),
	COALESCE(c.phone, ''), COALESCE(c.address, '')
	FROM visits v
	LEFT JOIN technicians t ON t.id = v.technician_id
	LEFT JOIN clients c ON c.id = v.client_id`

func scanVisit(row pgx.Row) (*visit.Visit, error) {
	var (
		v                visit.Visit
		state            string
		date, start, end string
		tech             visit.TechnicianSummary
		cli              visit.ClientSummary
	)
	err := row.Scan(&v.ID, &v.TechnicianID, &v.ClientID, &date, &start, &end,
		&v.ServiceType, &v.Description, &state, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
		&tech.FirstName, &tech.LastName, &tech.Specialty,
		&cli.FirstName, &cli.LastName, &cli.Company, &cli.Phone, &cli.Address)
	if err != nil {
		return nil, err
	}
	v.State = visit.State(state)
	if v.Date, err = visit.ParseDate(date); err != nil {
		return nil, fmt.Errorf("visit %d: %w", v.ID, err)
	}
	if v.Start, err = visit.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("visit %d: %w", v.ID, err)
	}
	if v.End, err = visit.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("visit %d: %w", v.ID, err)
	}
	tech.ID = v.TechnicianID
	cli.ID = v.ClientID
	v.Technician = &tech
	v.Client = &cli
	return &v, nil
}

func (r queries) Create(ctx context.Context, v *visit.Visit) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`INSERT INTO visits (technician_id, client_id, visit_date, start_time, end_time, service_type, description, state, notes)
		 VALUES ($1, $2, $3::date, $4::time, $5::time, $6, $7, $8, $9)
		 RETURNING id`,
		v.TechnicianID, v.ClientID, v.Date.String(), visit.FormatTime(v.Start), visit.FormatTime(v.End),
		v.ServiceType, v.Description, string(v.State), v.Notes,
	).Scan(&id)
	if err != nil {
		return 0, storeErr("inserting visit", err)
	}
	return id, nil
}

func (r queries) Get(ctx context.Context, id int64) (*visit.Visit, error) {
	query := selectVisit + " WHERE v.id = $1"
	if r.forUpdate {
		query += " FOR UPDATE OF v"
	}
	v, err := scanVisit(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &visit.NotFoundError{Resource: "visit", ID: id}
	}
	if err != nil {
		return nil, storeErr("reading visit", err)
	}
	return v, nil
}

func (r queries) GetState(ctx context.Context, id int64) (visit.State, error) {
	query := "SELECT state FROM visits WHERE id = $1"
	if r.forUpdate {
		query += " FOR UPDATE"
	}
	var s string
	err := r.q.QueryRow(ctx, query, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", &visit.NotFoundError{Resource: "visit", ID: id}
	}
	if err != nil {
		return "", storeErr("reading visit state", err)
	}
	return visit.State(s), nil
}

func (r queries) SetState(ctx context.Context, id int64, s visit.State) error {
	tag, err := r.q.Exec(ctx, "UPDATE visits SET state = $1, updated_at = now() WHERE id = $2", string(s), id)
	return affectedOne(tag, err, "updating visit state", id)
}

func (r queries) Update(ctx context.Context, v *visit.Visit) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE visits SET technician_id = $1, client_id = $2, visit_date = $3::date, start_time = $4::time,
		 end_time = $5::time, service_type = $6, description = $7, notes = $8, updated_at = now()
		 WHERE id = $9`,
		v.TechnicianID, v.ClientID, v.Date.String(), visit.FormatTime(v.Start), visit.FormatTime(v.End),
		v.ServiceType, v.Description, v.Notes, v.ID,
	)
	return affectedOne(tag, err, "updating visit", v.ID)
}

func (r queries) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, "DELETE FROM visits WHERE id = $1", id)
	return affectedOne(tag, err, "deleting visit", id)
}

func (r queries) HasOverlap(ctx context.Context, technicianID int64, date civil.Date, start, end civil.Time, excludeID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM visits
		     WHERE technician_id = $1 AND visit_date = $2::date AND state <> 'cancelled'
		       AND start_time < $3::time AND end_time > $4::time AND id <> $5
		 )`,
		technicianID, date.String(), visit.FormatTime(end), visit.FormatTime(start), excludeID,
	).Scan(&exists)
	if err != nil {
		return false, storeErr("checking overlap", err)
	}
	return exists, nil
}

func (r queries) TechnicianActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := r.q.QueryRow(ctx, "SELECT active FROM technicians WHERE id = $1", id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, &visit.NotFoundError{Resource: "technician", ID: id}
	}
	if err != nil {
		return false, storeErr("reading technician", err)
	}
	return active, nil
}

func (r queries) ClientExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, storeErr("reading client", err)
	}
	return exists, nil
}

// ListByDateRange returns visits dated within [start, end].
func (s *Store) ListByDateRange(ctx context.Context, start, end civil.Date) ([]*visit.Visit, error) {
	rows, err := s.pool.Query(ctx,
		selectVisit+" WHERE v.visit_date BETWEEN $1::date AND $2::date ORDER BY v.visit_date, v.start_time, v.id",
		start.String(), end.String(),
	)
	if err != nil {
		return nil, storeErr("listing visits", err)
	}
	defer rows.Close()

	var visits []*visit.Visit
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
func (s *Store) StatsByTechnician(ctx context.Context, start, end civil.Date) ([]visit.TechnicianStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.first_name, t.last_name,
		        COUNT(v.id) AS total,
		        COUNT(v.id) FILTER (WHERE v.state = 'completed'),
		        COUNT(v.id) FILTER (WHERE v.state = 'scheduled')
		 FROM technicians t
		 LEFT JOIN visits v ON v.technician_id = t.id
		      AND v.visit_date BETWEEN $1::date AND $2::date
		      AND v.state <> 'cancelled'
		 WHERE t.active
		 GROUP BY t.id, t.first_name, t.last_name
		 ORDER BY total DESC, t.id`,
		start.String(), end.String(),
	)
	if err != nil {
		return nil, storeErr("querying stats", err)
	}
	defer rows.Close()

	var stats []visit.TechnicianStats
	for rows.Next() {
		var st visit.TechnicianStats
		var total, completed, scheduled int64
		if err := rows.Scan(&st.TechnicianID, &st.FirstName, &st.LastName, &total, &completed, &scheduled); err != nil {
			return nil, storeErr("scanning stats", err)
		}
		st.Total, st.Completed, st.Scheduled = int(total), int(completed), int(scheduled)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating stats", err)
	}
	return stats, nil
}

// WithTechnicianLock runs fn in a transaction holding a transaction-scoped
// advisory lock on every technician id. Ids are locked in ascending order
// so two callers never wait on each other in a cycle.
func (s *Store) WithTechnicianLock(ctx context.Context, technicianIDs []int64, fn func(q visit.Queries) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr("beginning transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	ids := slices.Clone(technicianIDs)
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", id); err != nil {
			return storeErr("locking technician", err)
		}
	}

	if err = fn(queries{q: tx, forUpdate: true}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

// affectedOne turns a command tag into a NotFoundError when no row matched.
func affectedOne(tag pgconn.CommandTag, err error, op string, id int64) error {
	if err != nil {
		return storeErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return &visit.NotFoundError{Resource: "visit", ID: id}
	}
	return nil
}

func storeErr(op string, err error) error {
	var nf *visit.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	return &visit.StoreError{Op: op, Err: err}
}

var _ visit.Store = (*Store)(nil)
