package graph

import (
	"errors"
	"fmt"
)

// DecodeError reports a serialized node that could not be instantiated.
// Decompilation logs it and leaves the slot empty.
type DecodeError struct {
	ClassName string
	ID        int64
	Result    LookupResult
}

func (e *DecodeError) Error() string {
	switch e.Result {
	case Excluded:
		return fmt.Sprintf("node %d: class %q is excluded from the active library", e.ID, e.ClassName)
	default:
		return fmt.Sprintf("node %d: unknown class %q", e.ID, e.ClassName)
	}
}

// IsDecodeError reports whether err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ErrInvalidSelection is returned by Extract for an unusable selection.
var ErrInvalidSelection = errors.New("invalid extraction selection")
