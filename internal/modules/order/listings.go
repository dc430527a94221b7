// README: Read-side listings for the client, restaurant, courier, and
// dispatcher views.
package order

import (
	"context"
	"sort"
	"time"

	"dispatch/internal/modules/matching"
	"dispatch/internal/types"
	"dispatch/internal/window"
)

// DecisionItem is one row of the dispatcher's pending board: the order, its
// ranked candidates, and the window currently running for it.
type DecisionItem struct {
	Order      *Order                     `json:"order"`
	Candidates []matching.RankedCandidate `json:"candidates"`
	Window     window.Kind                `json:"window"`
	ExpiresAt  time.Time                  `json:"expires_at"`
}

// ListByClient returns the client's orders, newest first by creation time.
func (s *Service) ListByClient(ctx context.Context, clientID types.ID) ([]*Order, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Order, 0)
	for _, o := range all {
		if o.ClientID == clientID {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListRestaurantQueue returns the restaurant's orders still in the kitchen
// pipeline, i.e. pending or ready.
func (s *Service) ListRestaurantQueue(ctx context.Context, restaurantID types.ID) ([]*Order, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Order, 0)
	for _, o := range all {
		if o.RestaurantID != restaurantID {
			continue
		}
		if o.Status == StatusPending || o.Status == StatusReady {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListOpenForInterest returns orders a courier can still volunteer for: ready
// with a running acceptance window.
func (s *Service) ListOpenForInterest(ctx context.Context) ([]*Order, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Order, 0)
	for _, o := range all {
		if o.Status != StatusReady {
			continue
		}
		kind, _, open := s.windows.Active(o.ID)
		if open && kind == window.Acceptance {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListAssigned returns the courier's open deliveries.
func (s *Service) ListAssigned(ctx context.Context, courierID types.ID) ([]*Order, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Order, 0)
	for _, o := range all {
		if o.Status == StatusAssigned && o.AssignedDriver != nil && *o.AssignedDriver == courierID {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// PendingDecisions returns the dispatcher's board: every ready order with an
// open window and at least one candidate, ranked.
func (s *Service) PendingDecisions(ctx context.Context) ([]DecisionItem, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DecisionItem, 0)
	for _, o := range all {
		if o.Status != StatusReady {
			continue
		}
		kind, expiresAt, open := s.windows.Active(o.ID)
		if !open {
			continue
		}
		ids, err := s.candidates.List(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		ranked, err := s.ranker.Rank(ctx, o.Restaurant, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, DecisionItem{
			Order:      o,
			Candidates: ranked,
			Window:     kind,
			ExpiresAt:  expiresAt,
		})
	}
	return out, nil
}

func sortNewestFirst(orders []*Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
