// README: Order store backed by Redis hashes, one record per order plus a
// TTL'd mirror of the active window for external inspection.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/apperr"
	"dispatch/internal/types"
	"dispatch/internal/window"
)

func orderKey(id types.ID) string {
	return fmt.Sprintf("order:%s", id)
}

func windowKey(id types.ID) string {
	return fmt.Sprintf("window:%s", id)
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Create(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	fields := map[string]any{
		"id":              string(o.ID),
		"client":          string(o.ClientID),
		"restaurant":      string(o.RestaurantID),
		"restaurant_lon":  strconv.FormatFloat(o.Restaurant.Lng, 'f', -1, 64),
		"restaurant_lat":  strconv.FormatFloat(o.Restaurant.Lat, 'f', -1, 64),
		"items":           string(items),
		"status":          string(o.Status),
		"assigned_driver": "",
		"created_at":      o.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := s.rdb.HSet(ctx, orderKey(o.ID), fields).Err(); err != nil {
		return storeErr("create order", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	fields, err := s.rdb.HGetAll(ctx, orderKey(id)).Result()
	if err != nil {
		return nil, storeErr("get order", err)
	}
	if len(fields) == 0 {
		return nil, apperr.NotFound
	}
	return orderFromFields(fields)
}

func (s *RedisStore) SetStatus(ctx context.Context, id types.ID, status Status) error {
	if err := s.rdb.HSet(ctx, orderKey(id), "status", string(status)).Err(); err != nil {
		return storeErr("set status", err)
	}
	return nil
}

// Assign commits the courier and the assigned status in one write.
func (s *RedisStore) Assign(ctx context.Context, id, courierID types.ID) error {
	err := s.rdb.HSet(ctx, orderKey(id),
		"status", string(StatusAssigned),
		"assigned_driver", string(courierID),
	).Err()
	if err != nil {
		return storeErr("assign order", err)
	}
	return nil
}

func (s *RedisStore) SetClientRating(ctx context.Context, id types.ID, rating int) error {
	if err := s.rdb.HSet(ctx, orderKey(id), "client_rating", strconv.Itoa(rating)).Err(); err != nil {
		return storeErr("set client rating", err)
	}
	return nil
}

// SetWindow mirrors the order's active window. The TTL matches the window so
// the record disappears on its own even if the process dies.
func (s *RedisStore) SetWindow(ctx context.Context, id types.ID, kind window.Kind, expiresAt time.Time, ttl time.Duration) error {
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, windowKey(id),
		"kind", string(kind),
		"expires_at", expiresAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, windowKey(id), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("set window", err)
	}
	return nil
}

func (s *RedisStore) Window(ctx context.Context, id types.ID) (window.Kind, time.Time, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, windowKey(id)).Result()
	if err != nil {
		return "", time.Time{}, false, storeErr("get window", err)
	}
	if len(fields) == 0 {
		return "", time.Time{}, false, nil
	}
	expires, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return "", time.Time{}, false, err
	}
	return window.Kind(fields["kind"]), expires, true, nil
}

func (s *RedisStore) ClearWindow(ctx context.Context, id types.ID) error {
	if err := s.rdb.Del(ctx, windowKey(id)).Err(); err != nil {
		return storeErr("clear window", err)
	}
	return nil
}

// List scans every order record. Listings filter in memory; the fleet of
// orders a single dispatch core coordinates is small.
func (s *RedisStore) List(ctx context.Context) ([]*Order, error) {
	var orders []*Order
	iter := s.rdb.Scan(ctx, 0, "order:*", 0).Iterator()
	for iter.Next(ctx) {
		fields, err := s.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, storeErr("list orders", err)
		}
		if len(fields) == 0 {
			continue
		}
		o, err := orderFromFields(fields)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := iter.Err(); err != nil {
		return nil, storeErr("list orders", err)
	}
	return orders, nil
}

func orderFromFields(fields map[string]string) (*Order, error) {
	o := &Order{
		ID:           types.ID(fields["id"]),
		ClientID:     types.ID(fields["client"]),
		RestaurantID: types.ID(fields["restaurant"]),
		Status:       Status(fields["status"]),
	}
	o.Restaurant.Lng, _ = strconv.ParseFloat(fields["restaurant_lon"], 64)
	o.Restaurant.Lat, _ = strconv.ParseFloat(fields["restaurant_lat"], 64)

	if raw := fields["items"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &o.Items); err != nil {
			return nil, fmt.Errorf("order %s: decode items: %w", o.ID, err)
		}
	}
	if v := fields["assigned_driver"]; v != "" {
		d := types.ID(v)
		o.AssignedDriver = &d
	}
	if v := fields["client_rating"]; v != "" {
		r, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("order %s: decode rating: %w", o.ID, err)
		}
		o.ClientRating = &r
	}
	if v := fields["created_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("order %s: decode created_at: %w", o.ID, err)
		}
		o.CreatedAt = t
	}
	return o, nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, redis.Nil) {
		return apperr.NotFound
	}
	return fmt.Errorf("%w: %s: %v", apperr.Unavailable, op, err)
}
