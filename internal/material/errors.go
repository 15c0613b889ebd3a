package material

import "errors"

var (
	// ErrUnknownModel indicates a model name with no registered allocator.
	ErrUnknownModel = errors.New("material: unknown model")

	// ErrMissingParam indicates a required constant absent from the parameters.
	ErrMissingParam = errors.New("material: missing parameter")

	// ErrInvalidParam indicates a constant outside its admissible range.
	ErrInvalidParam = errors.New("material: invalid parameter")

	// ErrNoStressUpdate indicates a model that cannot update stress and so
	// cannot be assigned to a material point.
	ErrNoStressUpdate = errors.New("material: model has no stress update")
)
