package visit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/evcraddock/field-scheduler/internal/visit"

// Request holds the caller-supplied fields of a visit. There is no state
// field: new visits are always scheduled and updates never change state.
type Request struct {
	TechnicianID int64  `json:"technician_id"`
	ClientID     int64  `json:"client_id"`
	VisitDate    string `json:"visit_date"` // YYYY-MM-DD
	StartTime    string `json:"start_time"` // HH:MM[:SS]
	EndTime      string `json:"end_time"`
	ServiceType  string `json:"service_type"`
	Description  string `json:"description,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Service is the scheduling engine. It is the only gate between callers and
// the Store: every business rule on visits is enforced here.
type Service struct {
	store  Store
	now    func() time.Time
	tracer trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the source of the current date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a scheduling engine backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates req and books a new scheduled visit.
func (s *Service) Create(ctx context.Context, req Request) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "visit.Create",
		trace.WithAttributes(attribute.Int64("technician.id", req.TechnicianID)))
	defer span.End()

	if err := req.checkRequired(); err != nil {
		return 0, fail(span, err)
	}
	date, err := req.date()
	if err != nil {
		return 0, fail(span, err)
	}
	if date.Before(Today(s.now())) {
		return 0, fail(span, invalid("visit_date", "must not be in the past"))
	}
	v, err := req.build(date)
	if err != nil {
		return 0, fail(span, err)
	}
	v.State = Scheduled

	var id int64
	err = s.store.WithTechnicianLock(ctx, []int64{v.TechnicianID}, func(q Queries) error {
		if err := checkReferences(ctx, q, v); err != nil {
			return err
		}
		if err := checkOverlap(ctx, q, v); err != nil {
			return err
		}
		var err error
		id, err = q.Create(ctx, v)
		return err
	})
	if err != nil {
		return 0, fail(span, err)
	}

	span.SetAttributes(attribute.Int64("visit.id", id))
	slog.InfoContext(ctx, "visit created", "id", id, "technician_id", v.TechnicianID, "date", v.Date.String())
	return id, nil
}

// Update replaces the fields of visit id. Cancelled visits cannot be edited.
// A visit may keep a past date, but cannot be moved onto one.
func (s *Service) Update(ctx context.Context, id int64, req Request) error {
	ctx, span := s.tracer.Start(ctx, "visit.Update", trace.WithAttributes(attribute.Int64("visit.id", id)))
	defer span.End()

	if id <= 0 {
		return fail(span, invalid("id", "is required"))
	}

	state, err := s.store.GetState(ctx, id)
	if err != nil {
		return fail(span, err)
	}
	if state == Cancelled {
		return fail(span, conflict("cannot edit a cancelled visit"))
	}

	if err := req.checkRequired(); err != nil {
		return fail(span, err)
	}
	date, err := req.date()
	if err != nil {
		return fail(span, err)
	}
	v, err := req.build(date)
	if err != nil {
		return fail(span, err)
	}
	v.ID = id
	today := Today(s.now())

	err = s.store.WithTechnicianLock(ctx, []int64{v.TechnicianID}, func(q Queries) error {
		current, err := q.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.State == Cancelled {
			return conflict("cannot edit a cancelled visit")
		}
		if v.Date != current.Date && v.Date.Before(today) {
			return invalid("visit_date", "cannot move a visit to a past date")
		}
		if err := checkReferences(ctx, q, v); err != nil {
			return err
		}
		if err := checkOverlap(ctx, q, v); err != nil {
			return err
		}
		return q.Update(ctx, v)
	})
	if err != nil {
		return fail(span, err)
	}

	slog.InfoContext(ctx, "visit updated", "id", id, "technician_id", v.TechnicianID, "date", v.Date.String())
	return nil
}

// Cancel moves a visit to the cancelled state.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.transition(ctx, "visit.Cancel", id, Cancelled, func(from State) error {
		if from == Cancelled {
			return conflict("visit is already cancelled")
		}
		return nil
	})
}

// Complete marks a scheduled visit as done.
func (s *Service) Complete(ctx context.Context, id int64) error {
	return s.transition(ctx, "visit.Complete", id, Completed, func(from State) error {
		if from != Scheduled {
			return conflict("only scheduled visits can be completed")
		}
		return nil
	})
}

// transition applies a state change after allow accepts the current state.
// The read and the write share one transaction.
func (s *Service) transition(ctx context.Context, name string, id int64, to State, allow func(from State) error) error {
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attribute.Int64("visit.id", id)))
	defer span.End()

	if id <= 0 {
		return fail(span, invalid("id", "is required"))
	}

	var from State
	err := s.store.WithTechnicianLock(ctx, nil, func(q Queries) error {
		var err error
		if from, err = q.GetState(ctx, id); err != nil {
			return err
		}
		if err := allow(from); err != nil {
			return err
		}
		return q.SetState(ctx, id, to)
	})
	if err != nil {
		return fail(span, err)
	}

	slog.InfoContext(ctx, "visit state changed", "id", id, "from", string(from), "to", string(to))
	return nil
}

// DeletePermanently removes a cancelled visit.
func (s *Service) DeletePermanently(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "visit.DeletePermanently", trace.WithAttributes(attribute.Int64("visit.id", id)))
	defer span.End()

	if id <= 0 {
		return fail(span, invalid("id", "is required"))
	}

	err := s.store.WithTechnicianLock(ctx, nil, func(q Queries) error {
		state, err := q.GetState(ctx, id)
		if err != nil {
			return err
		}
		if state != Cancelled {
			return conflict("only cancelled visits may be permanently deleted")
		}
		return q.Delete(ctx, id)
	})
	if err != nil {
		return fail(span, err)
	}

	slog.InfoContext(ctx, "visit deleted", "id", id)
	return nil
}

// Get returns a single visit in record form.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "visit.Get", trace.WithAttributes(attribute.Int64("visit.id", id)))
	defer span.End()

	if id <= 0 {
		return Record{}, fail(span, invalid("id", "is required"))
	}
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, fail(span, err)
	}
	return v.Flatten(), nil
}

// ListByRange returns the visits dated within [startDate, endDate] ordered by
// date and start time.
func (s *Service) ListByRange(ctx context.Context, startDate, endDate string) ([]Record, error) {
	ctx, span := s.tracer.Start(ctx, "visit.ListByRange")
	defer span.End()

	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, fail(span, err)
	}
	if end.Before(start) {
		return nil, fail(span, invalid("end_date", "must not be before start_date"))
	}

	visits, err := s.store.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, fail(span, err)
	}

	records := make([]Record, 0, len(visits))
	for _, v := range visits {
		records = append(records, v.Flatten())
	}
	return records, nil
}

// Statistics returns per-technician visit counts for [startDate, endDate].
func (s *Service) Statistics(ctx context.Context, startDate, endDate string) ([]TechnicianStats, error) {
	ctx, span := s.tracer.Start(ctx, "visit.Statistics")
	defer span.End()

	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, fail(span, err)
	}

	stats, err := s.store.StatsByTechnician(ctx, start, end)
	if err != nil {
		return nil, fail(span, err)
	}
	if stats == nil {
		stats = make([]TechnicianStats, 0)
	}
	return stats, nil
}

// checkRequired rejects requests with missing fields, naming the first one.
func (r Request) checkRequired() error {
	switch {
	case r.TechnicianID <= 0:
		return invalid("technician_id", "is required")
	case r.ClientID <= 0:
		return invalid("client_id", "is required")
	case strings.TrimSpace(r.VisitDate) == "":
		return invalid("visit_date", "is required")
	case strings.TrimSpace(r.StartTime) == "":
		return invalid("start_time", "is required")
	case strings.TrimSpace(r.EndTime) == "":
		return invalid("end_time", "is required")
	case strings.TrimSpace(r.ServiceType) == "":
		return invalid("service_type", "is required")
	}
	return nil
}

func (r Request) date() (civil.Date, error) {
	d, err := ParseDate(r.VisitDate)
	if err != nil {
		return civil.Date{}, invalid("visit_date", err.Error())
	}
	return d, nil
}

// build parses the time fields and constructs the visit.
func (r Request) build(date civil.Date) (*Visit, error) {
	start, err := ParseTimeOfDay(r.StartTime)
	if err != nil {
		return nil, invalid("start_time", err.Error())
	}
	end, err := ParseTimeOfDay(r.EndTime)
	if err != nil {
		return nil, invalid("end_time", err.Error())
	}
	if !TimeBefore(start, end) {
		return nil, invalid("end_time", "must be after start_time")
	}

	return &Visit{
		TechnicianID: r.TechnicianID,
		ClientID:     r.ClientID,
		Date:         date,
		Start:        start,
		End:          end,
		ServiceType:  strings.TrimSpace(r.ServiceType),
		Description:  strings.TrimSpace(r.Description),
		Notes:        strings.TrimSpace(r.Notes),
	}, nil
}

func parseRange(startDate, endDate string) (civil.Date, civil.Date, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return civil.Date{}, civil.Date{}, invalid("start_date", err.Error())
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return civil.Date{}, civil.Date{}, invalid("end_date", err.Error())
	}
	return start, end, nil
}

func checkReferences(ctx context.Context, q Queries, v *Visit) error {
	active, err := q.TechnicianActive(ctx, v.TechnicianID)
	if err != nil {
		return err
	}
	if !active {
		return conflict("technician is inactive")
	}

	exists, err := q.ClientExists(ctx, v.ClientID)
	if err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Resource: "client", ID: v.ClientID}
	}
	return nil
}

func checkOverlap(ctx context.Context, q Queries, v *Visit) error {
	overlap, err := q.HasOverlap(ctx, v.TechnicianID, v.Date, v.Start, v.End, v.ID)
	if err != nil {
		return err
	}
	if overlap {
		return conflict("technician already has a visit in that time slot")
	}
	return nil
}

// fail records err on the span and makes sure it carries an error kind.
func fail(span trace.Span, err error) error {
	err = storeErr("visit store", err)
	span.RecordError(err)
	if errors.Is(err, ErrStore) {
		span.SetStatus(codes.Error, "store failure")
	}
	return err
}
