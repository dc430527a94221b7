// README: Common identifier and coordinate value objects used across modules.
package types

// ID is an opaque entity identifier (orders, clients, couriers, restaurants).
type ID string

// Point is a WGS84 coordinate.
type Point struct {
	Lng float64 `json:"lon"`
	Lat float64 `json:"lat"`
}
