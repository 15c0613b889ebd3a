package particle

import "errors"

var (
	// ErrDuplicateID indicates two particle records sharing an id.
	ErrDuplicateID = errors.New("particle: duplicate id")

	// ErrUnknownMaterial indicates a particle whose material id has no model.
	ErrUnknownMaterial = errors.New("particle: unknown material id")

	// ErrInvalidSpacing indicates a non-positive particle spacing.
	ErrInvalidSpacing = errors.New("particle: spacing must be positive")

	// ErrUnassigned indicates a step on a point with no stress update bound.
	ErrUnassigned = errors.New("particle: material not assigned")
)
