// README: Courier directory records: rating stats and last-known position.
package courier

import (
	"time"

	"dispatch/internal/types"
)

// DefaultRating is the comparable rating a courier starts with.
const DefaultRating = 5.0

// Stats is the cumulative rating record behind a courier's average.
type Stats struct {
	TotalRating float64 `json:"total_rating"`
	Deliveries  int     `json:"num_deliveries"`
	Average     float64 `json:"avg_rating"`
}

// Courier is the directory's view of one courier.
type Courier struct {
	ID         types.ID     `json:"courier_id"`
	Rating     float64      `json:"rating"`
	Stats      Stats        `json:"stats"`
	Position   *types.Point `json:"position,omitempty"`
	PositionAt time.Time    `json:"position_at,omitzero"`
}
