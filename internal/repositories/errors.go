package repositories

import "errors"

// Err carries repository error categories for the in-memory implementations.
// Firestore implementations map gRPC codes through their own wrapper.
type Err struct {
	Op          string
	Msg         string
	NotFound    bool
	Conflict    bool
	Unavailable bool
}

func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return e.Op + ": " + e.Msg
	}
	return e.Msg
}

// IsNotFound reports whether the error represents a missing record.
func (e *Err) IsNotFound() bool { return e != nil && e.NotFound }

// IsConflict reports whether the error represents a conflicting update.
func (e *Err) IsConflict() bool { return e != nil && e.Conflict }

// IsUnavailable reports whether the error represents a transient outage.
func (e *Err) IsUnavailable() bool { return e != nil && e.Unavailable }

// NotFoundErr builds a not-found repository error.
func NotFoundErr(op, msg string) *Err {
	return &Err{Op: op, Msg: msg, NotFound: true}
}

// ConflictErr builds a conflict repository error.
func ConflictErr(op, msg string) *Err {
	return &Err{Op: op, Msg: msg, Conflict: true}
}

// IsNotFound reports whether err categorises as a missing record.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err categorises as a conflicting update.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err categorises as a transient outage.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
