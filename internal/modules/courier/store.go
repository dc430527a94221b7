// README: Courier store backed by Redis: score ZSET, position GEO set, stats hashes.
package courier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/apperr"
	"dispatch/internal/types"
)

const (
	scoresKey    = "couriers:scores"
	positionsKey = "couriers:positions"
)

func statsKey(id types.ID) string {
	return fmt.Sprintf("courier:stats:%s", id)
}

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Register adds the courier to the score set with the default rating. A courier
// that already has a score keeps it.
func (s *Store) Register(ctx context.Context, id types.ID) error {
	err := s.rdb.ZAddNX(ctx, scoresKey, redis.Z{Score: DefaultRating, Member: string(id)}).Err()
	if err != nil {
		return storeErr("register courier", err)
	}
	return nil
}

// Score returns the courier's comparable rating; ok is false when the courier
// has no score entry.
func (s *Store) Score(ctx context.Context, id types.ID) (float64, bool, error) {
	score, err := s.rdb.ZScore(ctx, scoresKey, string(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeErr("read score", err)
	}
	return score, true, nil
}

// SetScore overwrites the courier's comparable rating.
func (s *Store) SetScore(ctx context.Context, id types.ID, score float64) error {
	if err := s.rdb.ZAdd(ctx, scoresKey, redis.Z{Score: score, Member: string(id)}).Err(); err != nil {
		return storeErr("set score", err)
	}
	return nil
}

// ReportPosition records the courier's position and its timestamp.
func (s *Store) ReportPosition(ctx context.Context, id types.ID, pt types.Point, at time.Time) error {
	pipe := s.rdb.Pipeline()
	pipe.GeoAdd(ctx, positionsKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pt.Lng,
		Latitude:  pt.Lat,
	})
	pipe.HSet(ctx, statsKey(id), "position_at", at.UTC().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("report position", err)
	}
	return nil
}

// Position returns the courier's last-known position; ok is false when the
// courier has never reported one.
func (s *Store) Position(ctx context.Context, id types.ID) (types.Point, time.Time, bool, error) {
	pos, err := s.rdb.GeoPos(ctx, positionsKey, string(id)).Result()
	if err != nil {
		return types.Point{}, time.Time{}, false, storeErr("read position", err)
	}
	if len(pos) == 0 || pos[0] == nil {
		return types.Point{}, time.Time{}, false, nil
	}

	var at time.Time
	raw, err := s.rdb.HGet(ctx, statsKey(id), "position_at").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return types.Point{}, time.Time{}, false, storeErr("read position timestamp", err)
	}
	if raw != "" {
		at, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return types.Point{Lng: pos[0].Longitude, Lat: pos[0].Latitude}, at, true, nil
}

// Stats returns the courier's cumulative rating record; a courier that was
// never rated has the zero Stats.
func (s *Store) Stats(ctx context.Context, id types.ID) (Stats, error) {
	fields, err := s.rdb.HGetAll(ctx, statsKey(id)).Result()
	if err != nil {
		return Stats{}, storeErr("read stats", err)
	}
	var st Stats
	st.TotalRating, _ = strconv.ParseFloat(fields["total_rating"], 64)
	st.Deliveries, _ = strconv.Atoi(fields["num_deliveries"])
	st.Average, _ = strconv.ParseFloat(fields["avg_rating"], 64)
	return st, nil
}

// SaveStats writes the cumulative rating record.
func (s *Store) SaveStats(ctx context.Context, id types.ID, st Stats) error {
	err := s.rdb.HSet(ctx, statsKey(id), map[string]any{
		"total_rating":   strconv.FormatFloat(st.TotalRating, 'f', -1, 64),
		"num_deliveries": strconv.Itoa(st.Deliveries),
		"avg_rating":     strconv.FormatFloat(st.Average, 'f', -1, 64),
	}).Err()
	if err != nil {
		return storeErr("save stats", err)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperr.Unavailable, op, err)
}
