// README: Haversine tests against known distances.
package geo

import (
	"math"
	"testing"

	"dispatch/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lng: 2.333, Lat: 48.865},
			b:         types.Point{Lng: 2.333, Lat: 48.865},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "Notre-Dame to Eiffel Tower (~4km)",
			a:         types.Point{Lng: 2.3499, Lat: 48.8530},
			b:         types.Point{Lng: 2.2945, Lat: 48.8584},
			wantKm:    4.1,
			tolerance: 0.3,
		},
		{
			name:      "Paris to Marseille (~660km)",
			a:         types.Point{Lng: 2.3522, Lat: 48.8566},
			b:         types.Point{Lng: 5.3698, Lat: 43.2965},
			wantKm:    660,
			tolerance: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	a := types.Point{Lng: 2.25, Lat: 48.82}
	b := types.Point{Lng: 2.40, Lat: 48.90}
	d1 := HaversineKm(a, b)
	d2 := HaversineKm(b, a)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestHaversineKm_RoundedToTwoDecimals(t *testing.T) {
	a := types.Point{Lng: 2.333, Lat: 48.865}
	b := types.Point{Lng: 2.40, Lat: 48.87}
	got := HaversineKm(a, b)
	if got != Round2(got) {
		t.Errorf("distance %f is not rounded to 2 decimals", got)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.0}, // 1.005 is stored as slightly below 1.005
		{4.166666, 4.17},
		{23.04, 23.04},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
