// README: Assignment coordinator: the order lifecycle state machine, window
// handling, and the manual-decision / auto-assignment paths.
package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/apperr"
	"dispatch/internal/bus"
	"dispatch/internal/config"
	"dispatch/internal/keylock"
	"dispatch/internal/modules/matching"
	"dispatch/internal/types"
	"dispatch/internal/window"
)

// Store is the order record contract.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	SetStatus(ctx context.Context, id types.ID, status Status) error
	Assign(ctx context.Context, id, courierID types.ID) error
	SetClientRating(ctx context.Context, id types.ID, rating int) error
	SetWindow(ctx context.Context, id types.ID, kind window.Kind, expiresAt time.Time, ttl time.Duration) error
	Window(ctx context.Context, id types.ID) (window.Kind, time.Time, bool, error)
	ClearWindow(ctx context.Context, id types.ID) error
	List(ctx context.Context) ([]*Order, error)
}

// Candidates is the candidate registry contract.
type Candidates interface {
	Add(ctx context.Context, orderID, courierID types.ID) error
	List(ctx context.Context, orderID types.ID) ([]types.ID, error)
	Count(ctx context.Context, orderID types.ID) (int64, error)
	Clear(ctx context.Context, orderID types.ID) error
}

// Ranker orders an order's candidates for display and automatic selection.
type Ranker interface {
	Rank(ctx context.Context, restaurant types.Point, candidates []types.ID) ([]matching.RankedCandidate, error)
	Best(ctx context.Context, restaurant types.Point, candidates []types.ID) (matching.RankedCandidate, bool, error)
}

// Rater is the slice of the courier directory the rating feedback loop needs.
type Rater interface {
	ApplyRating(ctx context.Context, id types.ID, rating int) (float64, error)
}

// Publisher is the notification bus contract.
type Publisher interface {
	Publish(ctx context.Context, ev bus.Event) error
	PublishOrderStatus(ctx context.Context, orderID types.ID, status string) error
	PublishAssignment(ctx context.Context, courierID, orderID types.ID) error
	AnnounceOrder(ctx context.Context, orderID types.ID) error
}

type Service struct {
	store      Store
	candidates Candidates
	ranker     Ranker
	couriers   Rater
	bus        Publisher
	journal    Journal
	cfg        config.WindowConfig
	log        *slog.Logger

	windows *window.Scheduler

	// locks serializes every mutation of one order's status, candidate list,
	// and window; operations on different orders proceed in parallel.
	locks *keylock.Table
}

func NewService(
	store Store,
	candidates Candidates,
	ranker Ranker,
	couriers Rater,
	publisher Publisher,
	journal Journal,
	cfg config.WindowConfig,
	log *slog.Logger,
) *Service {
	if journal == nil {
		journal = NopJournal{}
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		store:      store,
		candidates: candidates,
		ranker:     ranker,
		couriers:   couriers,
		bus:        publisher,
		journal:    journal,
		cfg:        cfg,
		log:        log,
		locks:      keylock.New(),
	}
	s.windows = window.NewScheduler(s.onWindowExpired)
	return s
}

// Shutdown stops every open window timer.
func (s *Service) Shutdown() {
	s.windows.Shutdown()
}

type CreateCommand struct {
	ClientID     types.ID
	RestaurantID types.ID
	Restaurant   types.Point
	Items        []string
}

type InterestCommand struct {
	OrderID   types.ID
	CourierID types.ID
}

type DecideCommand struct {
	OrderID   types.ID
	CourierID types.ID
}

type RateCommand struct {
	OrderID  types.ID
	ClientID types.ID
	Rating   int
}

type CancelCommand struct {
	OrderID  types.ID
	ClientID types.ID
}

// Create registers a new order in StatusPending and announces it.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.ClientID == "" || cmd.RestaurantID == "" {
		return "", apperr.Invalid
	}
	if cmd.Restaurant.Lng < -180 || cmd.Restaurant.Lng > 180 ||
		cmd.Restaurant.Lat < -90 || cmd.Restaurant.Lat > 90 {
		return "", apperr.Invalid
	}

	id := newID()
	o := &Order{
		ID:           id,
		ClientID:     cmd.ClientID,
		RestaurantID: cmd.RestaurantID,
		Restaurant:   cmd.Restaurant,
		Items:        cmd.Items,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}
	if err := s.store.Create(ctx, o); err != nil {
		return "", err
	}
	_ = s.journal.Append(ctx, Event{
		OrderID:    id,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "client",
		ActorID:    &cmd.ClientID,
		CreatedAt:  o.CreatedAt,
	})

	if err := s.bus.AnnounceOrder(ctx, id); err != nil {
		return "", err
	}
	if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventOrderCreated, OrderID: id}); err != nil {
		return "", err
	}
	if err := s.bus.PublishOrderStatus(ctx, id, string(StatusPending)); err != nil {
		return "", err
	}
	return id, nil
}

// MarkReady transitions the order to StatusReady and opens its acceptance
// window. Returns the window's expiry time.
func (s *Service) MarkReady(ctx context.Context, orderID types.ID) (time.Time, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return time.Time{}, err
	}
	if !CanTransition(o.Status, StatusReady) {
		return time.Time{}, apperr.InvalidState
	}
	if err := s.store.SetStatus(ctx, orderID, StatusReady); err != nil {
		return time.Time{}, err
	}
	_ = s.journal.Append(ctx, Event{
		OrderID:    orderID,
		FromStatus: o.Status,
		ToStatus:   StatusReady,
		ActorType:  "restaurant",
		CreatedAt:  time.Now(),
	})

	expiresAt := s.openWindow(ctx, orderID, window.Acceptance, s.cfg.Acceptance)
	s.log.Info("acceptance window opened", "order_id", string(orderID), "expires_at", expiresAt)

	if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventOrderReady, OrderID: orderID, Status: string(StatusReady)}); err != nil {
		return time.Time{}, err
	}
	if err := s.bus.PublishOrderStatus(ctx, orderID, string(StatusReady)); err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// RegisterInterest appends a courier to the order's candidate list while the
// acceptance window is open.
func (s *Service) RegisterInterest(ctx context.Context, cmd InterestCommand) error {
	if cmd.CourierID == "" {
		return apperr.Invalid
	}

	unlock := s.locks.Lock(cmd.OrderID)
	defer unlock()

	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	kind, _, open := s.windows.Active(cmd.OrderID)
	if o.Status != StatusReady || !open || kind != window.Acceptance {
		return apperr.WindowClosed
	}
	if err := s.candidates.Add(ctx, cmd.OrderID, cmd.CourierID); err != nil {
		return err
	}
	return s.bus.Publish(ctx, bus.Event{
		Type:      bus.EventDriverInterest,
		OrderID:   cmd.OrderID,
		CourierID: cmd.CourierID,
	})
}

// Decide is the dispatcher's manual pick. The chosen courier must be a current
// candidate; the decision loses against an auto-assignment that committed first.
func (s *Service) Decide(ctx context.Context, cmd DecideCommand) error {
	unlock := s.locks.Lock(cmd.OrderID)
	defer unlock()

	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if o.Status != StatusReady {
		return apperr.InvalidState
	}
	ids, err := s.candidates.List(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if !contains(ids, cmd.CourierID) {
		return apperr.InvalidState
	}
	return s.assign(ctx, o, cmd.CourierID, "manager", false)
}

// MarkDelivered completes the delivery.
func (s *Service) MarkDelivered(ctx context.Context, orderID types.ID) error {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusDelivered) {
		return apperr.InvalidState
	}
	if err := s.store.SetStatus(ctx, orderID, StatusDelivered); err != nil {
		return err
	}
	_ = s.journal.Append(ctx, Event{
		OrderID:    orderID,
		FromStatus: o.Status,
		ToStatus:   StatusDelivered,
		ActorType:  "courier",
		ActorID:    o.AssignedDriver,
		CreatedAt:  time.Now(),
	})

	if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventOrderDelivered, OrderID: orderID, Status: string(StatusDelivered)}); err != nil {
		return err
	}
	return s.bus.PublishOrderStatus(ctx, orderID, string(StatusDelivered))
}

// Rate records the client's one-time rating of a delivered order and feeds it
// into the courier's average.
func (s *Service) Rate(ctx context.Context, cmd RateCommand) error {
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return apperr.Invalid
	}

	unlock := s.locks.Lock(cmd.OrderID)
	defer unlock()

	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if o.ClientID != cmd.ClientID {
		return apperr.NotOwner
	}
	if o.Status != StatusDelivered {
		return apperr.InvalidState
	}
	if o.ClientRating != nil {
		return apperr.AlreadyRated
	}
	if o.AssignedDriver == nil {
		// Delivered implies a committed courier; a record without one is corrupt.
		return apperr.InvalidState
	}
	if err := s.store.SetClientRating(ctx, cmd.OrderID, cmd.Rating); err != nil {
		return err
	}
	_, err = s.couriers.ApplyRating(ctx, *o.AssignedDriver, cmd.Rating)
	return err
}

// Cancel is the client's withdrawal, allowed only before a courier is committed.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	unlock := s.locks.Lock(cmd.OrderID)
	defer unlock()

	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if o.ClientID != cmd.ClientID {
		return apperr.NotOwner
	}
	if o.Status == StatusAssigned || o.Status == StatusDelivered {
		return apperr.AlreadyAssigned
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return apperr.InvalidState
	}

	if err := s.store.SetStatus(ctx, cmd.OrderID, StatusCancelled); err != nil {
		return err
	}
	s.windows.Cancel(cmd.OrderID)
	if err := s.store.ClearWindow(ctx, cmd.OrderID); err != nil {
		return err
	}
	if err := s.candidates.Clear(ctx, cmd.OrderID); err != nil {
		return err
	}
	_ = s.journal.Append(ctx, Event{
		OrderID:    cmd.OrderID,
		FromStatus: o.Status,
		ToStatus:   StatusCancelled,
		ActorType:  "client",
		ActorID:    &cmd.ClientID,
		CreatedAt:  time.Now(),
	})

	if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventOrderCancelled, OrderID: cmd.OrderID, Status: string(StatusCancelled)}); err != nil {
		return err
	}
	return s.bus.PublishOrderStatus(ctx, cmd.OrderID, string(StatusCancelled))
}

// Reopen restarts the acceptance window of an order left Ready with no timer
// after a no-candidate expiry. There is no automatic re-trigger; this is the
// dispatcher's explicit recovery path.
func (s *Service) Reopen(ctx context.Context, orderID types.ID) (time.Time, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return time.Time{}, err
	}
	if o.Status != StatusReady {
		return time.Time{}, apperr.InvalidState
	}
	if _, _, open := s.windows.Active(orderID); open {
		return time.Time{}, apperr.InvalidState
	}

	expiresAt := s.openWindow(ctx, orderID, window.Acceptance, s.cfg.Acceptance)
	s.log.Info("acceptance window reopened", "order_id", string(orderID), "expires_at", expiresAt)

	if err := s.bus.AnnounceOrder(ctx, orderID); err != nil {
		return time.Time{}, err
	}
	if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventOrderReady, OrderID: orderID, Status: string(StatusReady)}); err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// Get returns the order record.
func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// assign commits the courier, clears the registry and any window, and fans out
// notifications. Caller must hold the order's lock.
func (s *Service) assign(ctx context.Context, o *Order, courierID types.ID, actor string, auto bool) error {
	if err := s.store.Assign(ctx, o.ID, courierID); err != nil {
		return err
	}
	s.windows.Cancel(o.ID)
	if err := s.store.ClearWindow(ctx, o.ID); err != nil {
		return err
	}
	if err := s.candidates.Clear(ctx, o.ID); err != nil {
		return err
	}
	_ = s.journal.Append(ctx, Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   StatusAssigned,
		ActorType:  actor,
		ActorID:    &courierID,
		CreatedAt:  time.Now(),
	})
	s.log.Info("order assigned",
		"order_id", string(o.ID),
		"courier_id", string(courierID),
		"auto", auto,
	)

	if auto {
		if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventAutoAssignment, OrderID: o.ID, CourierID: courierID}); err != nil {
			return err
		}
	}
	if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventDriverAssigned, OrderID: o.ID, CourierID: courierID, Status: string(StatusAssigned)}); err != nil {
		return err
	}
	if err := s.bus.PublishAssignment(ctx, courierID, o.ID); err != nil {
		return err
	}
	return s.bus.PublishOrderStatus(ctx, o.ID, string(StatusAssigned))
}

func (s *Service) openWindow(ctx context.Context, orderID types.ID, kind window.Kind, d time.Duration) time.Time {
	expiresAt := s.windows.Open(orderID, kind, d)
	if err := s.store.SetWindow(ctx, orderID, kind, expiresAt, d); err != nil {
		// The mirror record is observability only; the in-process timer is
		// authoritative.
		s.log.Error("mirror window record failed", "order_id", string(orderID), "err", err)
	}
	return expiresAt
}

// onWindowExpired runs on the scheduler's timer goroutine. Failures are
// swallowed: an order that vanished before its window fired is terminal.
func (s *Service) onWindowExpired(orderID types.ID, kind window.Kind) {
	ctx := context.Background()

	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		if !errors.Is(err, apperr.NotFound) {
			s.log.Error("window expiry lookup failed", "order_id", string(orderID), "err", err)
		}
		return
	}
	if o.Status != StatusReady {
		// The order advanced (or was cancelled) before the callback started.
		return
	}

	switch kind {
	case window.Acceptance:
		s.onAcceptanceExpired(ctx, o)
	case window.Decision:
		s.onDecisionExpired(ctx, o)
	}
}

func (s *Service) onAcceptanceExpired(ctx context.Context, o *Order) {
	n, err := s.candidates.Count(ctx, o.ID)
	if err != nil {
		s.log.Error("candidate count failed", "order_id", string(o.ID), "err", err)
		return
	}
	if n == 0 {
		if err := s.store.ClearWindow(ctx, o.ID); err != nil {
			s.log.Error("clear window failed", "order_id", string(o.ID), "err", err)
		}
		s.log.Warn("no candidates at window close", "order_id", string(o.ID))
		if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventNoCandidates, OrderID: o.ID}); err != nil {
			s.log.Error("publish failed", "order_id", string(o.ID), "err", err)
		}
		return
	}

	expiresAt := s.openWindow(ctx, o.ID, window.Decision, s.cfg.Decision)
	s.log.Info("decision window opened",
		"order_id", string(o.ID),
		"candidates", n,
		"expires_at", expiresAt,
	)
	if err := s.bus.Publish(ctx, bus.Event{Type: bus.EventManagerDecisionStarted, OrderID: o.ID}); err != nil {
		s.log.Error("publish failed", "order_id", string(o.ID), "err", err)
	}
}

func (s *Service) onDecisionExpired(ctx context.Context, o *Order) {
	ids, err := s.candidates.List(ctx, o.ID)
	if err != nil {
		s.log.Error("candidate list failed", "order_id", string(o.ID), "err", err)
		return
	}
	best, ok, err := s.ranker.Best(ctx, o.Restaurant, ids)
	if err != nil {
		s.log.Error("ranking failed", "order_id", string(o.ID), "err", err)
		return
	}
	if !ok {
		// A decision window only opens with candidates; an empty registry here
		// means the order was cleared under us.
		return
	}
	if err := s.assign(ctx, o, best.CourierID, "system", true); err != nil {
		s.log.Error("auto-assignment failed", "order_id", string(o.ID), "err", err)
	}
}

// WindowStatus reports the active window's kind and remaining duration. The
// scheduler is authoritative; the store's TTL'd mirror answers for a window
// opened by a previous process, whose timer did not survive the restart.
func (s *Service) WindowStatus(ctx context.Context, orderID types.ID) (window.Kind, time.Duration, bool) {
	kind, expiresAt, ok := s.windows.Active(orderID)
	if !ok {
		var err error
		kind, expiresAt, ok, err = s.store.Window(ctx, orderID)
		if err != nil || !ok {
			return "", 0, false
		}
	}
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return "", 0, false
	}
	return kind, remaining, true
}

func contains(ids []types.ID, id types.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func newID() types.ID {
	return types.ID(uuid.NewString()[:8])
}
