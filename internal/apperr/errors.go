// README: Shared error taxonomy; every operation reports one of these sentinels.
package apperr

import "errors"

// NotFound indicates that the requested order or courier does not exist.
var NotFound = errors.New("not found")

// InvalidState is returned when an operation is illegal for the order's current status.
var InvalidState = errors.New("invalid state")

// WindowClosed is returned when interest or a decision arrives outside its window.
var WindowClosed = errors.New("window closed")

// NotOwner is returned when an actor operates on an order it does not own.
var NotOwner = errors.New("not owner")

// AlreadyRated is returned on a second rating attempt for the same order.
var AlreadyRated = errors.New("already rated")

// AlreadyAssigned is returned when cancelling an order that has a committed courier.
var AlreadyAssigned = errors.New("already assigned")

// Invalid is returned when the input fails validation (range, missing coordinates).
var Invalid = errors.New("invalid input")

// Unavailable indicates loss of the coordination store or the notification bus.
// It is deliberately distinct from NotFound: a dead store is fatal, a missing
// record is not.
var Unavailable = errors.New("unavailable")
