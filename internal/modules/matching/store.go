// README: Candidate registry backed by a Redis list per order (append-only,
// insertion-ordered, cleared in one step).
package matching

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/apperr"
	"dispatch/internal/types"
)

func candidatesKey(orderID types.ID) string {
	return fmt.Sprintf("candidates:%s", orderID)
}

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Add appends a courier to the order's candidate list. Duplicate interest
// appends redundantly; ranking dedupes on read.
func (s *Store) Add(ctx context.Context, orderID, courierID types.ID) error {
	if err := s.rdb.RPush(ctx, candidatesKey(orderID), string(courierID)).Err(); err != nil {
		return fmt.Errorf("%w: add candidate: %v", apperr.Unavailable, err)
	}
	return nil
}

// List returns the candidates in registration order.
func (s *Store) List(ctx context.Context, orderID types.ID) ([]types.ID, error) {
	raw, err := s.rdb.LRange(ctx, candidatesKey(orderID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list candidates: %v", apperr.Unavailable, err)
	}
	ids := make([]types.ID, len(raw))
	for i, v := range raw {
		ids[i] = types.ID(v)
	}
	return ids, nil
}

// Count returns the number of registered interests (duplicates included).
func (s *Store) Count(ctx context.Context, orderID types.ID) (int64, error) {
	n, err := s.rdb.LLen(ctx, candidatesKey(orderID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: count candidates: %v", apperr.Unavailable, err)
	}
	return n, nil
}

// Clear drops the order's candidate list in one step.
func (s *Store) Clear(ctx context.Context, orderID types.ID) error {
	if err := s.rdb.Del(ctx, candidatesKey(orderID)).Err(); err != nil {
		return fmt.Errorf("%w: clear candidates: %v", apperr.Unavailable, err)
	}
	return nil
}
