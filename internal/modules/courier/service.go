// README: Courier directory service: registration, position reports, and the
// rating feedback loop.
package courier

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/apperr"
	"dispatch/internal/bus"
	"dispatch/internal/geo"
	"dispatch/internal/keylock"
	"dispatch/internal/types"
)

// Directory is the store contract the service (and the ranking engine) reads.
type Directory interface {
	Register(ctx context.Context, id types.ID) error
	Score(ctx context.Context, id types.ID) (float64, bool, error)
	SetScore(ctx context.Context, id types.ID, score float64) error
	ReportPosition(ctx context.Context, id types.ID, pt types.Point, at time.Time) error
	Position(ctx context.Context, id types.ID) (types.Point, time.Time, bool, error)
	Stats(ctx context.Context, id types.ID) (Stats, error)
	SaveStats(ctx context.Context, id types.ID, st Stats) error
}

// Publisher is the slice of the notification bus the service needs.
type Publisher interface {
	Publish(ctx context.Context, ev bus.Event) error
}

type Service struct {
	store Directory
	bus   Publisher
	log   *slog.Logger

	// locks serializes each courier's stats read-modify-write; ratings for the
	// same courier must not interleave even when they come from different
	// orders.
	locks *keylock.Table
}

func NewService(store Directory, publisher Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		bus:   publisher,
		log:   log,
		locks: keylock.New(),
	}
}

// Register adds a courier to the directory with the default rating.
func (s *Service) Register(ctx context.Context, id types.ID) error {
	if id == "" {
		return apperr.Invalid
	}
	return s.store.Register(ctx, id)
}

// ReportPosition records a courier's own location report and announces it.
// First-time reporters are registered with the default rating.
func (s *Service) ReportPosition(ctx context.Context, id types.ID, pt types.Point) error {
	if id == "" || pt.Lng < -180 || pt.Lng > 180 || pt.Lat < -90 || pt.Lat > 90 {
		return apperr.Invalid
	}
	if err := s.store.Register(ctx, id); err != nil {
		return err
	}
	if err := s.store.ReportPosition(ctx, id, pt, time.Now()); err != nil {
		return err
	}
	return s.bus.Publish(ctx, bus.Event{
		Type:      bus.EventPositionUpdated,
		CourierID: id,
		Position:  &pt,
	})
}

// ApplyRating folds one delivery rating (1 to 5) into the courier's cumulative
// stats and refreshes the comparable rating used for ranking. Returns the new
// average.
func (s *Service) ApplyRating(ctx context.Context, id types.ID, rating int) (float64, error) {
	if rating < 1 || rating > 5 {
		return 0, apperr.Invalid
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.store.Stats(ctx, id)
	if err != nil {
		return 0, err
	}
	st.TotalRating += float64(rating)
	st.Deliveries++
	st.Average = geo.Round2(st.TotalRating / float64(st.Deliveries))

	if err := s.store.SaveStats(ctx, id, st); err != nil {
		return 0, err
	}
	if err := s.store.SetScore(ctx, id, st.Average); err != nil {
		return 0, err
	}
	s.log.Info("courier rated", "courier_id", string(id), "rating", rating, "avg", st.Average)

	err = s.bus.Publish(ctx, bus.Event{
		Type:      bus.EventDriverRated,
		CourierID: id,
		Rating:    st.Average,
	})
	return st.Average, err
}

// Stats returns the courier's cumulative delivery stats.
func (s *Service) Stats(ctx context.Context, id types.ID) (Stats, error) {
	return s.store.Stats(ctx, id)
}

// Profile assembles the directory's full view of one courier.
func (s *Service) Profile(ctx context.Context, id types.ID) (Courier, error) {
	score, ok, err := s.store.Score(ctx, id)
	if err != nil {
		return Courier{}, err
	}
	if !ok {
		return Courier{}, apperr.NotFound
	}
	st, err := s.store.Stats(ctx, id)
	if err != nil {
		return Courier{}, err
	}
	c := Courier{ID: id, Rating: score, Stats: st}
	pt, at, ok, err := s.store.Position(ctx, id)
	if err != nil {
		return Courier{}, err
	}
	if ok {
		c.Position = &pt
		c.PositionAt = at
	}
	return c, nil
}

// Score returns the comparable rating for ranking; ok is false for unknown couriers.
func (s *Service) Score(ctx context.Context, id types.ID) (float64, bool, error) {
	return s.store.Score(ctx, id)
}

// Position returns the last-known position for ranking; ok is false when the
// courier never reported one.
func (s *Service) Position(ctx context.Context, id types.ID) (types.Point, time.Time, bool, error) {
	return s.store.Position(ctx, id)
}
