// README: In-memory doubles for the storage and bus contracts, used by tests
// that wire whole services without Redis.
package testutil

import (
	"context"
	"sync"
	"time"

	"dispatch/internal/apperr"
	"dispatch/internal/bus"
	"dispatch/internal/modules/courier"
	"dispatch/internal/modules/order"
	"dispatch/internal/types"
	"dispatch/internal/window"
)

type storedWindow struct {
	kind      window.Kind
	expiresAt time.Time
}

// OrderStore is an in-memory order.Store.
type OrderStore struct {
	mu      sync.Mutex
	orders  map[types.ID]*order.Order
	windows map[types.ID]storedWindow
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:  make(map[types.ID]*order.Order),
		windows: make(map[types.ID]storedWindow),
	}
}

func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id types.ID) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.NotFound
	}
	cp := *o
	return &cp, nil
}

func (s *OrderStore) SetStatus(ctx context.Context, id types.ID, status order.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return apperr.NotFound
	}
	o.Status = status
	return nil
}

func (s *OrderStore) Assign(ctx context.Context, id, courierID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return apperr.NotFound
	}
	o.Status = order.StatusAssigned
	o.AssignedDriver = &courierID
	return nil
}

func (s *OrderStore) SetClientRating(ctx context.Context, id types.ID, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return apperr.NotFound
	}
	o.ClientRating = &rating
	return nil
}

func (s *OrderStore) SetWindow(ctx context.Context, id types.ID, kind window.Kind, expiresAt time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[id] = storedWindow{kind: kind, expiresAt: expiresAt}
	return nil
}

func (s *OrderStore) Window(ctx context.Context, id types.ID) (window.Kind, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[id]
	if !ok {
		return "", time.Time{}, false, nil
	}
	return w.kind, w.expiresAt, true, nil
}

func (s *OrderStore) ClearWindow(ctx context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, id)
	return nil
}

func (s *OrderStore) List(ctx context.Context) ([]*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

// Candidates is an in-memory order.Candidates.
type Candidates struct {
	mu    sync.Mutex
	lists map[types.ID][]types.ID
}

func NewCandidates() *Candidates {
	return &Candidates{lists: make(map[types.ID][]types.ID)}
}

func (c *Candidates) Add(ctx context.Context, orderID, courierID types.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[orderID] = append(c.lists[orderID], courierID)
	return nil
}

func (c *Candidates) List(ctx context.Context, orderID types.ID) ([]types.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.ID(nil), c.lists[orderID]...), nil
}

func (c *Candidates) Count(ctx context.Context, orderID types.ID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.lists[orderID])), nil
}

func (c *Candidates) Clear(ctx context.Context, orderID types.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, orderID)
	return nil
}

// CourierDirectory is an in-memory courier.Directory.
type CourierDirectory struct {
	mu        sync.Mutex
	scores    map[types.ID]float64
	positions map[types.ID]types.Point
	reported  map[types.ID]time.Time
	stats     map[types.ID]courier.Stats
}

func NewCourierDirectory() *CourierDirectory {
	return &CourierDirectory{
		scores:    make(map[types.ID]float64),
		positions: make(map[types.ID]types.Point),
		reported:  make(map[types.ID]time.Time),
		stats:     make(map[types.ID]courier.Stats),
	}
}

func (d *CourierDirectory) Register(ctx context.Context, id types.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.scores[id]; !ok {
		d.scores[id] = courier.DefaultRating
	}
	return nil
}

func (d *CourierDirectory) Score(ctx context.Context, id types.ID) (float64, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.scores[id]
	return v, ok, nil
}

func (d *CourierDirectory) SetScore(ctx context.Context, id types.ID, score float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scores[id] = score
	return nil
}

func (d *CourierDirectory) ReportPosition(ctx context.Context, id types.ID, pt types.Point, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.positions[id] = pt
	d.reported[id] = at
	return nil
}

func (d *CourierDirectory) Position(ctx context.Context, id types.ID) (types.Point, time.Time, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pt, ok := d.positions[id]
	return pt, d.reported[id], ok, nil
}

func (d *CourierDirectory) Stats(ctx context.Context, id types.ID) (courier.Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats[id], nil
}

func (d *CourierDirectory) SaveStats(ctx context.Context, id types.ID, st courier.Stats) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats[id] = st
	return nil
}

// Bus records every notification instead of publishing to Redis. It satisfies
// both services' publisher contracts.
type Bus struct {
	mu          sync.Mutex
	Events      []bus.Event
	Statuses    map[types.ID][]string
	Assignments map[types.ID][]types.ID
	Announced   []types.ID
}

func NewBus() *Bus {
	return &Bus{
		Statuses:    make(map[types.ID][]string),
		Assignments: make(map[types.ID][]types.ID),
	}
}

func (b *Bus) Publish(ctx context.Context, ev bus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, ev)
	return nil
}

func (b *Bus) PublishOrderStatus(ctx context.Context, orderID types.ID, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Statuses[orderID] = append(b.Statuses[orderID], status)
	return nil
}

func (b *Bus) PublishAssignment(ctx context.Context, courierID, orderID types.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Assignments[courierID] = append(b.Assignments[courierID], orderID)
	return nil
}

func (b *Bus) AnnounceOrder(ctx context.Context, orderID types.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Announced = append(b.Announced, orderID)
	return nil
}

// HasEvent reports whether an event of the given type was published.
func (b *Bus) HasEvent(typ string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ev := range b.Events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}
