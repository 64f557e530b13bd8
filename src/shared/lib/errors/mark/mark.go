package mark

import "github.com/cockroachdb/errors"

// Wrap marks handledErr with newMarkingError so callers can classify it with
// markers.Is, then wraps it with msg.
func Wrap(handledErr error, newMarkingError error, msg string) error {
	newErr := errors.Mark(handledErr, newMarkingError)
	return errors.WrapWithDepth(1, newErr, msg)
}

func Message(newMarkingError error, msg string) error {
	err := errors.NewWithDepth(1, msg)
	return errors.Mark(err, newMarkingError)
}
