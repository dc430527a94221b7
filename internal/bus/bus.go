// README: Notification bus backed by Redis pub/sub; one channel per order, one per
// courier, a global tagged-event channel, and a new-order announcement channel.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/apperr"
	"dispatch/internal/types"
)

// Event tags published on the global channel.
const (
	EventOrderCreated           = "order_created"
	EventOrderReady             = "order_ready"
	EventDriverInterest         = "driver_interest"
	EventManagerDecisionStarted = "manager_decision_started"
	EventNoCandidates           = "no_candidates"
	EventAutoAssignment         = "auto_assignment"
	EventDriverAssigned         = "driver_assigned"
	EventOrderDelivered         = "order_delivered"
	EventOrderCancelled         = "order_cancelled"
	EventDriverRated            = "driver_rated"
	EventPositionUpdated        = "position_updated"
)

const (
	eventsChannel    = "events"
	newOrdersChannel = "orders:new"
)

// Event is the envelope published on the global channel.
type Event struct {
	Type      string       `json:"type"`
	OrderID   types.ID     `json:"order_id,omitempty"`
	CourierID types.ID     `json:"courier_id,omitempty"`
	Status    string       `json:"status,omitempty"`
	Rating    float64      `json:"rating,omitempty"`
	Position  *types.Point `json:"position,omitempty"`
	At        time.Time    `json:"at"`
}

type Bus struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

func orderChannel(orderID types.ID) string {
	return fmt.Sprintf("notify:order:%s", orderID)
}

func driverChannel(courierID types.ID) string {
	return fmt.Sprintf("notify:driver:%s", courierID)
}

// Publish emits a tagged event on the global channel.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("%w: publish %s: %v", apperr.Unavailable, ev.Type, err)
	}
	return nil
}

// PublishOrderStatus pushes a status string to the order's own channel.
func (b *Bus) PublishOrderStatus(ctx context.Context, orderID types.ID, status string) error {
	if err := b.rdb.Publish(ctx, orderChannel(orderID), status).Err(); err != nil {
		return fmt.Errorf("%w: publish order status: %v", apperr.Unavailable, err)
	}
	return nil
}

// PublishAssignment pushes an assigned order id to the courier's own channel.
func (b *Bus) PublishAssignment(ctx context.Context, courierID, orderID types.ID) error {
	if err := b.rdb.Publish(ctx, driverChannel(courierID), string(orderID)).Err(); err != nil {
		return fmt.Errorf("%w: publish assignment: %v", apperr.Unavailable, err)
	}
	return nil
}

// AnnounceOrder broadcasts a freshly created order id to listening couriers
// and restaurants.
func (b *Bus) AnnounceOrder(ctx context.Context, orderID types.ID) error {
	if err := b.rdb.Publish(ctx, newOrdersChannel, string(orderID)).Err(); err != nil {
		return fmt.Errorf("%w: announce order: %v", apperr.Unavailable, err)
	}
	return nil
}

// closer signals the bridge goroutine to stop. Closing the PubSub alone is not
// enough: a bridge blocked on a send to an unread C would never observe its
// source channel closing.
type closer struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

func newCloser(pubsub *redis.PubSub) *closer {
	return &closer{pubsub: pubsub, done: make(chan struct{})}
}

func (c *closer) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.pubsub.Close()
}

// bridge forwards pub/sub payloads into out until the subscription, the
// stream, or the caller's context ends. A send abandoned by Close or ctx is
// dropped; C is closed either way.
func bridge[T any](ctx context.Context, c *closer, out chan<- T, decode func(payload string) (T, bool)) {
	defer close(out)
	for msg := range c.pubsub.Channel() {
		v, ok := decode(msg.Payload)
		if !ok {
			continue
		}
		select {
		case out <- v:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// StatusStream delivers the status strings of a single order in publish order.
type StatusStream struct {
	*closer
	C <-chan string
}

// SubscribeOrder opens a stream of status strings for one order. The consumer
// blocks on C until an event arrives or it calls Close.
func (b *Bus) SubscribeOrder(ctx context.Context, orderID types.ID) *StatusStream {
	c := newCloser(b.rdb.Subscribe(ctx, orderChannel(orderID)))
	out := make(chan string)
	go bridge(ctx, c, out, func(payload string) (string, bool) {
		return payload, true
	})
	return &StatusStream{closer: c, C: out}
}

// AssignmentStream delivers the ids of orders assigned to one courier.
type AssignmentStream struct {
	*closer
	C <-chan types.ID
}

// SubscribeDriver opens a stream of assigned order ids for one courier.
func (b *Bus) SubscribeDriver(ctx context.Context, courierID types.ID) *AssignmentStream {
	c := newCloser(b.rdb.Subscribe(ctx, driverChannel(courierID)))
	out := make(chan types.ID)
	go bridge(ctx, c, out, func(payload string) (types.ID, bool) {
		return types.ID(payload), true
	})
	return &AssignmentStream{closer: c, C: out}
}

// EventStream delivers every tagged event in the system.
type EventStream struct {
	*closer
	C <-chan Event
}

// SubscribeEvents opens the global tagged-event stream.
func (b *Bus) SubscribeEvents(ctx context.Context) *EventStream {
	c := newCloser(b.rdb.Subscribe(ctx, eventsChannel))
	out := make(chan Event)
	go bridge(ctx, c, out, func(payload string) (Event, bool) {
		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return Event{}, false
		}
		return ev, true
	})
	return &EventStream{closer: c, C: out}
}

// SubscribeNewOrders opens the stream of announced order ids.
func (b *Bus) SubscribeNewOrders(ctx context.Context) *AssignmentStream {
	c := newCloser(b.rdb.Subscribe(ctx, newOrdersChannel))
	out := make(chan types.ID)
	go bridge(ctx, c, out, func(payload string) (types.ID, bool) {
		return types.ID(payload), true
	})
	return &AssignmentStream{closer: c, C: out}
}
