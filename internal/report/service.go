package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timeforged/timeforged/internal/activity"
)

// DefaultRange is the span reported when no start is given.
const DefaultRange = 7 * 24 * time.Hour

// ErrInvalidRange is returned when from is after to.
var ErrInvalidRange = errors.New("invalid range: from is after to")

// Source loads events for a query, ordered by timestamp and id.
type Source interface {
	QueryEvents(ctx context.Context, q activity.Query) ([]activity.Event, error)
}

// Request selects the events a report covers. Zero From or To fall back
// to the default range ending now.
type Request struct {
	UserID  uuid.UUID
	From    time.Time
	To      time.Time
	Project string
}

// Service answers report requests from a Source.
type Service struct {
	source Source
	engine Engine
	now    func() time.Time
}

// NewService creates a Service with the given idle timeout.
func NewService(source Source, idle time.Duration) *Service {
	return &Service{
		source: source,
		engine: NewEngine(idle),
		now:    time.Now,
	}
}

// Engine returns the service's engine.
func (s *Service) Engine() Engine {
	return s.engine
}

// Resolve fills in the default range and validates it.
func (s *Service) Resolve(req Request) (activity.Query, error) {
	to := req.To
	if to.IsZero() {
		to = s.now()
	}
	from := req.From
	if from.IsZero() {
		from = to.Add(-DefaultRange)
	}
	if from.After(to) {
		return activity.Query{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return activity.Query{
		UserID:  req.UserID,
		From:    from.UTC(),
		To:      to.UTC(),
		Project: req.Project,
	}, nil
}

func (s *Service) load(ctx context.Context, req Request) (activity.Query, []activity.Event, error) {
	q, err := s.Resolve(req)
	if err != nil {
		return q, nil, err
	}
	events, err := s.source.QueryEvents(ctx, q)
	if err != nil {
		return q, nil, fmt.Errorf("failed to load events: %w", err)
	}
	return q, events, nil
}

// Summary returns totals by project, language and day.
func (s *Service) Summary(ctx context.Context, req Request) (*activity.Summary, error) {
	q, events, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.engine.Summary(events, q.From, q.To), nil
}

// Sessions returns the sessions in the range.
func (s *Service) Sessions(ctx context.Context, req Request) ([]activity.Session, error) {
	_, events, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.engine.Sessions(events), nil
}

// Activity returns the hour-of-day breakdown for the range.
func (s *Service) Activity(ctx context.Context, req Request) ([]activity.HourlyActivity, error) {
	_, events, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.engine.ByHour(events), nil
}
