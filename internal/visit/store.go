package visit

import (
	"context"

	"cloud.google.com/go/civil"
)

// Queries are the single-visit operations a Store runs either directly or
// inside a technician lock.
type Queries interface {
	// Create persists v and returns its assigned ID.
	Create(ctx context.Context, v *Visit) (int64, error)
	// Get returns a visit with technician and client summaries.
	Get(ctx context.Context, id int64) (*Visit, error)
	// GetState returns the state of a visit, or a NotFoundError.
	GetState(ctx context.Context, id int64) (State, error)
	SetState(ctx context.Context, id int64, s State) error
	// Update replaces the mutable fields of v, leaving its state untouched.
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, id int64) error
	// HasOverlap reports whether a non-cancelled visit of technicianID on
	// date intersects [start, end). excludeID, when non-zero, is ignored.
	HasOverlap(ctx context.Context, technicianID int64, date civil.Date, start, end civil.Time, excludeID int64) (bool, error)
	// TechnicianActive reports whether the technician is active, or returns
	// a NotFoundError.
	TechnicianActive(ctx context.Context, id int64) (bool, error)
	// ClientExists reports whether the client exists.
	ClientExists(ctx context.Context, id int64) (bool, error)
}

// Store is the persistence contract of the scheduling engine.
type Store interface {
	Queries

	// ListByDateRange returns visits dated within [start, end], ordered by
	// date then start time, with technician and client summaries attached.
	ListByDateRange(ctx context.Context, start, end civil.Date) ([]*Visit, error)

	// StatsByTechnician counts non-cancelled visits in [start, end] for
	// every active technician, ordered by total descending. Technicians
	// without visits appear with zero counts.
	StatsByTechnician(ctx context.Context, start, end civil.Date) ([]TechnicianStats, error)

	// WithTechnicianLock runs fn in one transaction that excludes any other
	// WithTechnicianLock call for the same technicians until it returns.
	// fn's error rolls the transaction back and is returned unchanged.
	WithTechnicianLock(ctx context.Context, technicianIDs []int64, fn func(q Queries) error) error
}
