package order_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dispatch/internal/apperr"
	"dispatch/internal/bus"
	"dispatch/internal/config"
	"dispatch/internal/modules/matching"
	"dispatch/internal/modules/order"
	"dispatch/internal/types"
	"dispatch/internal/window"
)

type memWindow struct {
	kind      window.Kind
	expiresAt time.Time
}

type memStore struct {
	mu      sync.Mutex
	orders  map[types.ID]*order.Order
	windows map[types.ID]memWindow
}

func newMemStore() *memStore {
	return &memStore{
		orders:  make(map[types.ID]*order.Order),
		windows: make(map[types.ID]memWindow),
	}
}

func (m *memStore) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memStore) Get(ctx context.Context, id types.ID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) SetStatus(ctx context.Context, id types.ID, status order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return apperr.NotFound
	}
	o.Status = status
	return nil
}

func (m *memStore) Assign(ctx context.Context, id, courierID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return apperr.NotFound
	}
	o.Status = order.StatusAssigned
	o.AssignedDriver = &courierID
	return nil
}

func (m *memStore) SetClientRating(ctx context.Context, id types.ID, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return apperr.NotFound
	}
	o.ClientRating = &rating
	return nil
}

func (m *memStore) SetWindow(ctx context.Context, id types.ID, kind window.Kind, expiresAt time.Time, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[id] = memWindow{kind: kind, expiresAt: expiresAt}
	return nil
}

func (m *memStore) Window(ctx context.Context, id types.ID) (window.Kind, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return "", time.Time{}, false, nil
	}
	return w.kind, w.expiresAt, true, nil
}

func (m *memStore) ClearWindow(ctx context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, id)
	return nil
}

func (m *memStore) List(ctx context.Context) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

type memCandidates struct {
	mu    sync.Mutex
	lists map[types.ID][]types.ID
}

func newMemCandidates() *memCandidates {
	return &memCandidates{lists: make(map[types.ID][]types.ID)}
}

func (m *memCandidates) Add(ctx context.Context, orderID, courierID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[orderID] = append(m.lists[orderID], courierID)
	return nil
}

func (m *memCandidates) List(ctx context.Context, orderID types.ID) ([]types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ID(nil), m.lists[orderID]...), nil
}

func (m *memCandidates) Count(ctx context.Context, orderID types.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[orderID])), nil
}

func (m *memCandidates) Clear(ctx context.Context, orderID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, orderID)
	return nil
}

type memDirectory struct {
	mu        sync.Mutex
	scores    map[types.ID]float64
	positions map[types.ID]types.Point
}

func (m *memDirectory) Score(ctx context.Context, id types.ID) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.scores[id]
	return v, ok, nil
}

func (m *memDirectory) Position(ctx context.Context, id types.ID) (types.Point, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	return p, time.Time{}, ok, nil
}

type ratingCall struct {
	courierID types.ID
	rating    int
}

type memRater struct {
	mu    sync.Mutex
	calls []ratingCall
}

func (m *memRater) ApplyRating(ctx context.Context, id types.ID, rating int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ratingCall{courierID: id, rating: rating})
	return float64(rating), nil
}

type recordingBus struct {
	mu          sync.Mutex
	events      []bus.Event
	statuses    []string
	assignments []types.ID
	announced   []types.ID
}

func (b *recordingBus) Publish(ctx context.Context, ev bus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) PublishOrderStatus(ctx context.Context, orderID types.ID, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, status)
	return nil
}

func (b *recordingBus) PublishAssignment(ctx context.Context, courierID, orderID types.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assignments = append(b.assignments, courierID)
	return nil
}

func (b *recordingBus) AnnounceOrder(ctx context.Context, orderID types.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.announced = append(b.announced, orderID)
	return nil
}

func (b *recordingBus) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

func (b *recordingBus) hasEvent(typ string) bool {
	for _, t := range b.eventTypes() {
		if t == typ {
			return true
		}
	}
	return false
}

type fixture struct {
	svc        *order.Service
	store      *memStore
	candidates *memCandidates
	directory  *memDirectory
	rater      *memRater
	bus        *recordingBus
}

func newFixture(t *testing.T, windows config.WindowConfig) *fixture {
	t.Helper()
	f := &fixture{
		store:      newMemStore(),
		candidates: newMemCandidates(),
		directory: &memDirectory{
			scores:    make(map[types.ID]float64),
			positions: make(map[types.ID]types.Point),
		},
		rater: &memRater{},
		bus:   &recordingBus{},
	}
	f.svc = order.NewService(
		f.store,
		f.candidates,
		matching.NewEngine(f.directory),
		f.rater,
		f.bus,
		order.NopJournal{},
		windows,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	t.Cleanup(f.svc.Shutdown)
	return f
}

// longWindows keeps timers from firing during tests that drive transitions
// manually.
func longWindows() config.WindowConfig {
	return config.WindowConfig{Acceptance: time.Hour, Decision: time.Hour}
}

func createOrder(t *testing.T, f *fixture) types.ID {
	t.Helper()
	id, err := f.svc.Create(context.Background(), order.CreateCommand{
		ClientID:     "client-1",
		RestaurantID: "resto-1",
		Restaurant:   types.Point{Lng: 2.3522, Lat: 48.8566},
		Items:        []string{"pizza"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestLifecycleManualDecision(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	o, err := f.svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if o.Status != order.StatusPending {
		t.Fatalf("status = %s, want %s", o.Status, order.StatusPending)
	}
	if len(f.bus.announced) != 1 || f.bus.announced[0] != id {
		t.Fatalf("announced = %v, want [%s]", f.bus.announced, id)
	}

	expiresAt, err := f.svc.MarkReady(ctx, id)
	if err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("acceptance expiry not in the future")
	}
	if kind, _, ok := f.svc.WindowStatus(ctx, id); !ok || kind != window.Acceptance {
		t.Fatalf("WindowStatus = (%s, %v), want acceptance window", kind, ok)
	}

	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-b"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}

	if err := f.svc.Decide(ctx, order.DecideCommand{OrderID: id, CourierID: "courier-b"}); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	o, _ = f.svc.Get(ctx, id)
	if o.Status != order.StatusAssigned || o.AssignedDriver == nil || *o.AssignedDriver != "courier-b" {
		t.Fatalf("after decide: status=%s driver=%v", o.Status, o.AssignedDriver)
	}
	if n, _ := f.candidates.Count(ctx, id); n != 0 {
		t.Fatalf("candidate list not cleared, count=%d", n)
	}
	if _, _, ok := f.svc.WindowStatus(ctx, id); ok {
		t.Fatal("window still active after assignment")
	}
	if len(f.bus.assignments) != 1 || f.bus.assignments[0] != "courier-b" {
		t.Fatalf("assignments = %v, want [courier-b]", f.bus.assignments)
	}

	if err := f.svc.MarkDelivered(ctx, id); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if err := f.svc.Rate(ctx, order.RateCommand{OrderID: id, ClientID: "client-1", Rating: 5}); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if len(f.rater.calls) != 1 || f.rater.calls[0].courierID != "courier-b" || f.rater.calls[0].rating != 5 {
		t.Fatalf("rater calls = %v", f.rater.calls)
	}
}

func TestInterestOutsideAcceptanceWindow(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"})
	if !errors.Is(err, apperr.WindowClosed) {
		t.Fatalf("interest before ready: err = %v, want WindowClosed", err)
	}

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("interest during window: %v", err)
	}
	if err := f.svc.Decide(ctx, order.DecideCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	err = f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-b"})
	if !errors.Is(err, apperr.WindowClosed) {
		t.Fatalf("interest after assignment: err = %v, want WindowClosed", err)
	}
}

func TestInterestAfterAcceptanceExpiry(t *testing.T) {
	f := newFixture(t, config.WindowConfig{Acceptance: 30 * time.Millisecond, Decision: time.Hour})
	ctx := context.Background()
	id := createOrder(t, f)

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}

	waitFor(t, func() bool {
		kind, _, ok := f.svc.WindowStatus(ctx, id)
		return ok && kind == window.Decision
	})

	err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-b"})
	if !errors.Is(err, apperr.WindowClosed) {
		t.Fatalf("interest during decision window: err = %v, want WindowClosed", err)
	}
	if n, _ := f.candidates.Count(ctx, id); n != 1 {
		t.Fatalf("candidate count = %d, want 1", n)
	}
}

func TestAutoAssignmentPicksBestScore(t *testing.T) {
	f := newFixture(t, config.WindowConfig{Acceptance: 30 * time.Millisecond, Decision: 30 * time.Millisecond})
	ctx := context.Background()
	id := createOrder(t, f)

	restaurant := types.Point{Lng: 2.3522, Lat: 48.8566}
	f.directory.scores["near"] = 4.8
	f.directory.positions["near"] = restaurant
	f.directory.scores["far"] = 5.0
	f.directory.positions["far"] = types.Point{Lng: 2.3522, Lat: 48.9016}

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "far"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "near"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}

	waitFor(t, func() bool {
		o, err := f.svc.Get(ctx, id)
		return err == nil && o.Status == order.StatusAssigned
	})

	o, _ := f.svc.Get(ctx, id)
	if o.AssignedDriver == nil || *o.AssignedDriver != "near" {
		t.Fatalf("auto-assigned %v, want near", o.AssignedDriver)
	}
	if !f.bus.hasEvent(bus.EventAutoAssignment) {
		t.Fatalf("events = %v, missing %s", f.bus.eventTypes(), bus.EventAutoAssignment)
	}
	if !f.bus.hasEvent(bus.EventManagerDecisionStarted) {
		t.Fatalf("events = %v, missing %s", f.bus.eventTypes(), bus.EventManagerDecisionStarted)
	}
	if n, _ := f.candidates.Count(ctx, id); n != 0 {
		t.Fatalf("candidate list not cleared, count=%d", n)
	}
}

func TestDecideAfterAutoAssignmentFails(t *testing.T) {
	f := newFixture(t, config.WindowConfig{Acceptance: 20 * time.Millisecond, Decision: 20 * time.Millisecond})
	ctx := context.Background()
	id := createOrder(t, f)
	f.directory.scores["courier-a"] = 5.0

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}

	waitFor(t, func() bool {
		o, err := f.svc.Get(ctx, id)
		return err == nil && o.Status == order.StatusAssigned
	})

	err := f.svc.Decide(ctx, order.DecideCommand{OrderID: id, CourierID: "courier-a"})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("decide after auto-assignment: err = %v, want InvalidState", err)
	}
}

func TestConcurrentDecidesAssignExactlyOnce(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	couriers := []types.ID{"c1", "c2", "c3", "c4", "c5"}
	for _, c := range couriers {
		if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: c}); err != nil {
			t.Fatalf("RegisterInterest(%s): %v", c, err)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, len(couriers))
	for i, c := range couriers {
		wg.Add(1)
		go func(i int, c types.ID) {
			defer wg.Done()
			errs[i] = f.svc.Decide(ctx, order.DecideCommand{OrderID: id, CourierID: c})
		}(i, c)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, apperr.InvalidState) {
			t.Fatalf("unexpected decide error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}

	o, _ := f.svc.Get(ctx, id)
	if o.Status != order.StatusAssigned || o.AssignedDriver == nil {
		t.Fatalf("after race: status=%s driver=%v", o.Status, o.AssignedDriver)
	}
	if len(f.bus.assignments) != 1 {
		t.Fatalf("assignment notifications = %d, want 1", len(f.bus.assignments))
	}
}

func TestDecideRequiresCandidate(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}

	err := f.svc.Decide(ctx, order.DecideCommand{OrderID: id, CourierID: "outsider"})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("decide with non-candidate: err = %v, want InvalidState", err)
	}
}

func TestCancelClearsStateAndStopsWindow(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}

	if err := f.svc.Cancel(ctx, order.CancelCommand{OrderID: id, ClientID: "client-1"}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	o, _ := f.svc.Get(ctx, id)
	if o.Status != order.StatusCancelled {
		t.Fatalf("status = %s, want %s", o.Status, order.StatusCancelled)
	}
	if n, _ := f.candidates.Count(ctx, id); n != 0 {
		t.Fatalf("candidate list not cleared, count=%d", n)
	}
	if _, _, ok := f.svc.WindowStatus(ctx, id); ok {
		t.Fatal("window still active after cancel")
	}

	err := f.svc.Decide(ctx, order.DecideCommand{OrderID: id, CourierID: "courier-a"})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("decide after cancel: err = %v, want InvalidState", err)
	}
}

func TestCancelGuards(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	err := f.svc.Cancel(ctx, order.CancelCommand{OrderID: id, ClientID: "someone-else"})
	if !errors.Is(err, apperr.NotOwner) {
		t.Fatalf("cancel by non-owner: err = %v, want NotOwner", err)
	}

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}
	if err := f.svc.Decide(ctx, order.DecideCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	err = f.svc.Cancel(ctx, order.CancelCommand{OrderID: id, ClientID: "client-1"})
	if !errors.Is(err, apperr.AlreadyAssigned) {
		t.Fatalf("cancel after assignment: err = %v, want AlreadyAssigned", err)
	}
}

func TestNoCandidatesLeavesOrderReadyAndReopenWorks(t *testing.T) {
	f := newFixture(t, config.WindowConfig{Acceptance: 25 * time.Millisecond, Decision: time.Hour})
	ctx := context.Background()
	id := createOrder(t, f)

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	waitFor(t, func() bool { return f.bus.hasEvent(bus.EventNoCandidates) })

	o, _ := f.svc.Get(ctx, id)
	if o.Status != order.StatusReady {
		t.Fatalf("status = %s, want %s", o.Status, order.StatusReady)
	}
	if _, _, ok := f.svc.WindowStatus(ctx, id); ok {
		t.Fatal("window active after no-candidate expiry")
	}
	if f.bus.hasEvent(bus.EventManagerDecisionStarted) {
		t.Fatal("decision window opened with zero candidates")
	}

	if _, err := f.svc.Reopen(ctx, id); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if kind, _, ok := f.svc.WindowStatus(ctx, id); !ok || kind != window.Acceptance {
		t.Fatalf("WindowStatus after reopen = (%s, %v), want acceptance", kind, ok)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("interest after reopen: %v", err)
	}
}

func TestReopenGuards(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	if _, err := f.svc.Reopen(ctx, id); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("reopen pending order: err = %v, want InvalidState", err)
	}

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if _, err := f.svc.Reopen(ctx, id); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("reopen with live window: err = %v, want InvalidState", err)
	}
}

func TestWindowStatusFallsBackToMirror(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	// A mirror record with no scheduler entry, as left behind by a process
	// that died with the window open.
	expiresAt := time.Now().Add(30 * time.Minute)
	if err := f.store.SetWindow(ctx, id, window.Acceptance, expiresAt, 30*time.Minute); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}

	kind, remaining, ok := f.svc.WindowStatus(ctx, id)
	if !ok || kind != window.Acceptance {
		t.Fatalf("WindowStatus = (%s, %v), want acceptance from mirror", kind, ok)
	}
	if remaining <= 0 || remaining > 30*time.Minute {
		t.Fatalf("remaining = %v, want within (0, 30m]", remaining)
	}

	// An expired mirror record reports no window.
	if err := f.store.SetWindow(ctx, id, window.Acceptance, time.Now().Add(-time.Second), time.Minute); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if _, _, ok := f.svc.WindowStatus(ctx, id); ok {
		t.Fatal("expired mirror reported as active")
	}
}

func TestRatingRules(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()
	id := createOrder(t, f)

	if err := f.svc.Rate(ctx, order.RateCommand{OrderID: id, ClientID: "client-1", Rating: 0}); !errors.Is(err, apperr.Invalid) {
		t.Fatalf("rating 0: err = %v, want Invalid", err)
	}
	if err := f.svc.Rate(ctx, order.RateCommand{OrderID: id, ClientID: "client-1", Rating: 4}); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("rating pending order: err = %v, want InvalidState", err)
	}

	if _, err := f.svc.MarkReady(ctx, id); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}
	if err := f.svc.Decide(ctx, order.DecideCommand{OrderID: id, CourierID: "courier-a"}); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if err := f.svc.MarkDelivered(ctx, id); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	if err := f.svc.Rate(ctx, order.RateCommand{OrderID: id, ClientID: "intruder", Rating: 4}); !errors.Is(err, apperr.NotOwner) {
		t.Fatalf("rating by non-owner: err = %v, want NotOwner", err)
	}
	if err := f.svc.Rate(ctx, order.RateCommand{OrderID: id, ClientID: "client-1", Rating: 4}); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if err := f.svc.Rate(ctx, order.RateCommand{OrderID: id, ClientID: "client-1", Rating: 5}); !errors.Is(err, apperr.AlreadyRated) {
		t.Fatalf("second rating: err = %v, want AlreadyRated", err)
	}
	if len(f.rater.calls) != 1 {
		t.Fatalf("rater calls = %d, want 1", len(f.rater.calls))
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t, longWindows())
	ctx := context.Background()

	createOrder(t, f)
	second := createOrder(t, f)
	if _, err := f.svc.MarkReady(ctx, second); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := f.svc.RegisterInterest(ctx, order.InterestCommand{OrderID: second, CourierID: "courier-a"}); err != nil {
		t.Fatalf("RegisterInterest: %v", err)
	}

	mine, err := f.svc.ListByClient(ctx, "client-1")
	if err != nil {
		t.Fatalf("ListByClient: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("client orders = %d, want 2", len(mine))
	}

	queue, err := f.svc.ListRestaurantQueue(ctx, "resto-1")
	if err != nil {
		t.Fatalf("ListRestaurantQueue: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("restaurant queue = %d, want 2", len(queue))
	}

	open, err := f.svc.ListOpenForInterest(ctx)
	if err != nil {
		t.Fatalf("ListOpenForInterest: %v", err)
	}
	if len(open) != 1 || open[0].ID != second {
		t.Fatalf("open orders = %v, want only %s", open, second)
	}

	board, err := f.svc.PendingDecisions(ctx)
	if err != nil {
		t.Fatalf("PendingDecisions: %v", err)
	}
	if len(board) != 1 || board[0].Order.ID != second || len(board[0].Candidates) != 1 {
		t.Fatalf("decision board = %+v", board)
	}

	if err := f.svc.Decide(ctx, order.DecideCommand{OrderID: second, CourierID: "courier-a"}); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	assigned, err := f.svc.ListAssigned(ctx, "courier-a")
	if err != nil {
		t.Fatalf("ListAssigned: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != second {
		t.Fatalf("assigned = %v, want only %s", assigned, second)
	}
}
