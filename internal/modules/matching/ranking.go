// README: Ranking engine: combines rating and distance-to-restaurant into one
// total order over an order's candidates.
package matching

import (
	"context"
	"sort"
	"time"

	"dispatch/internal/geo"
	"dispatch/internal/types"
)

// Directory is the read-only slice of the courier directory the engine needs.
type Directory interface {
	Score(ctx context.Context, id types.ID) (float64, bool, error)
	Position(ctx context.Context, id types.ID) (types.Point, time.Time, bool, error)
}

type Engine struct {
	directory Directory
}

func NewEngine(directory Directory) *Engine {
	return &Engine{directory: directory}
}

// Rank scores each candidate against the restaurant's coordinate and returns
// them in descending score order. Duplicate registrations collapse to the
// earliest one, so ties keep first-interest-wins order (the sort is stable).
func (e *Engine) Rank(ctx context.Context, restaurant types.Point, candidates []types.ID) ([]RankedCandidate, error) {
	seen := make(map[types.ID]struct{}, len(candidates))
	ranked := make([]RankedCandidate, 0, len(candidates))

	for _, id := range candidates {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		rating, _, err := e.directory.Score(ctx, id)
		if err != nil {
			return nil, err
		}
		rc := RankedCandidate{CourierID: id, Rating: rating}

		pos, _, hasPos, err := e.directory.Position(ctx, id)
		if err != nil {
			return nil, err
		}
		if hasPos {
			rc.Position = &pos
			rc.DistanceKm = geo.HaversineKm(restaurant, pos)
			rc.Score = rating * rating / (rc.DistanceKm + 1)
		} else {
			// Distance-agnostic fallback for couriers with no reported position.
			rc.Score = rating
		}
		ranked = append(ranked, rc)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

// Best returns the automatic-assignment choice, the top of the ranking.
func (e *Engine) Best(ctx context.Context, restaurant types.Point, candidates []types.ID) (RankedCandidate, bool, error) {
	ranked, err := e.Rank(ctx, restaurant, candidates)
	if err != nil || len(ranked) == 0 {
		return RankedCandidate{}, false, err
	}
	return ranked[0], true, nil
}
