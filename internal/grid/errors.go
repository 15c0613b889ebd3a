package grid

import "errors"

// Domain errors for grid construction and point location.
var (
	// ErrOutsideDomain indicates a point that no element contains.
	ErrOutsideDomain = errors.New("grid: point outside discretized domain")

	// ErrDegenerateElement indicates an element that is not a non-empty
	// axis-aligned rectangle.
	ErrDegenerateElement = errors.New("grid: element is not an axis-aligned rectangle")

	// ErrUnknownNode indicates a record referencing a node id that does not exist.
	ErrUnknownNode = errors.New("grid: unknown node id")

	// ErrUnknownElement indicates a record referencing an element id that does not exist.
	ErrUnknownElement = errors.New("grid: unknown element id")

	// ErrDuplicateID indicates two records sharing the same id.
	ErrDuplicateID = errors.New("grid: duplicate id")

	// ErrInvalidAxis indicates a constraint on an axis outside [0, Dim).
	ErrInvalidAxis = errors.New("grid: constraint axis out of range")
)
