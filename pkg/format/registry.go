package format

import (
	"errors"
	"fmt"
)

// Serializer names accepted by ByName.
const (
	SimpleName  = "simple"
	JSONAPIName = "jsonapi"
)

// ErrUnknownSerializer is returned for serializer names that are not built in.
var ErrUnknownSerializer = errors.New("unknown serializer")

// ByName returns the built-in serializer with the given name.
func ByName(name string) (Serializer, error) {
	switch name {
	case SimpleName, "":
		return NewSimple(), nil
	case JSONAPIName:
		return NewJSONAPI(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSerializer, name)
	}
}

// ForMediaType returns the serializer producing mediaType, falling back to
// the simple serializer.
func ForMediaType(mediaType string) Serializer {
	if mediaType == JSONAPIMediaType {
		return NewJSONAPI()
	}
	return NewSimple()
}
