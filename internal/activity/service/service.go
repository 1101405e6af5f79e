package service

import (
	"context"
	"time"

	"github.com/tenantly/authweb/internal/activity"
	"github.com/tenantly/authweb/internal/activity/repository"
	"github.com/tenantly/authweb/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository is the storage used by the activity service.
type Repository interface {
	Insert(ctx context.Context, e *activity.Event) error
	Recent(ctx context.Context, limit int) ([]*activity.Event, error)
	CountSince(ctx context.Context, kind activity.Kind, since time.Time) (int64, error)
}

// Summary is what the dashboard shows.
type Summary struct {
	LoginsLastDay         int64
	LogoutsLastDay        int64
	RegistrationsLastWeek int64
	PasswordChangesWeek   int64
	Recent                []*activity.Event
}

// Service records auth events and summarizes them.
type Service struct {
	repo Repository
	now  func() time.Time
}

func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() *Service {
	return New(repository.NewMemoryRepo(0))
}

// NewMongoService returns a Service backed by a MongoDB collection.
func NewMongoService(ctx context.Context, col *mongo.Collection) (*Service, error) {
	repo := repository.NewMongoRepo(col)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return New(repo), nil
}

// Record stores an event. Failures are logged and never fail the caller's request.
func (s *Service) Record(ctx context.Context, e activity.Event) {
	if e.At.IsZero() {
		e.At = s.now().UTC()
	}
	if err := s.repo.Insert(ctx, &e); err != nil {
		logger.Warnf("activity: record %s for %s: %v", e.Kind, e.Email, err)
	}
}

// Dashboard returns counters and the most recent events.
func (s *Service) Dashboard(ctx context.Context, recent int) (*Summary, error) {
	now := s.now().UTC()
	day, week := now.Add(-24*time.Hour), now.Add(-7*24*time.Hour)

	var sum Summary
	counters := []struct {
		kind  activity.Kind
		since time.Time
		dst   *int64
	}{
		{activity.KindLogin, day, &sum.LoginsLastDay},
		{activity.KindLogout, day, &sum.LogoutsLastDay},
		{activity.KindRegister, week, &sum.RegistrationsLastWeek},
		{activity.KindPasswordChange, week, &sum.PasswordChangesWeek},
	}
	for _, c := range counters {
		n, err := s.repo.CountSince(ctx, c.kind, c.since)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	events, err := s.repo.Recent(ctx, recent)
	if err != nil {
		return nil, err
	}
	sum.Recent = events
	return &sum, nil
}
