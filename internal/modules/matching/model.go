// README: Candidate ranking records shown to the dispatcher and used for
// automatic fallback.
package matching

import "dispatch/internal/types"

// RankedCandidate is one courier's entry on the decision board, ordered by
// descending combined score.
type RankedCandidate struct {
	CourierID types.ID `json:"courier_id"`
	// Rating is the courier's comparable rating (0 when unknown to the directory).
	Rating float64 `json:"rating"`
	// Position is nil when the courier has never reported a location; DistanceKm
	// is only meaningful when Position is set.
	Position   *types.Point `json:"position,omitempty"`
	DistanceKm float64      `json:"distance_km"`
	// Score is rating²/(distance+1), or just the rating when the position is
	// unknown.
	Score float64 `json:"score"`
}
