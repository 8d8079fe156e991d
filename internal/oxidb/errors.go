package oxidb

import (
	"errors"
	"fmt"
)

// Kind classifies server errors the callers act on.
type Kind int

const (
	KindOther Kind = iota
	KindDuplicate
	KindNotFound
	KindExists
)

// Error is returned when the OxiDB server returns an error response.
type Error struct {
	Msg  string
	Kind Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("oxidb: %s", e.Msg)
}

// IsDuplicate reports whether err is a unique index violation.
func IsDuplicate(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindDuplicate
}

// IsNotFound reports whether err says the object or document does not exist.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// IsExists reports whether err rejects creating something that is already there.
func IsExists(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindExists
}
