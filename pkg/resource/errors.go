package resource

import "errors"

var (
	// ErrUnsupportedDataType is returned when input cannot be normalized to
	// null, an entity or a sequence of entities.
	ErrUnsupportedDataType = errors.New("unsupported data type")

	// ErrRelationNotFound is returned by relation sources for unknown
	// relations. Builders treat it as a soft miss, not a failure.
	ErrRelationNotFound = errors.New("relation not found")
)
