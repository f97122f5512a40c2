package memory

import "fmt"

// Error implements repositories.RepositoryError for in-memory repositories.
type Error struct {
	op       string
	key      string
	notFound bool
	conflict bool
}

func (e *Error) Error() string {
	switch {
	case e.notFound:
		return fmt.Sprintf("%s: %s not found", e.op, e.key)
	case e.conflict:
		return fmt.Sprintf("%s: %s already exists", e.op, e.key)
	default:
		return fmt.Sprintf("%s: %s failed", e.op, e.key)
	}
}

func (e *Error) IsNotFound() bool    { return e != nil && e.notFound }
func (e *Error) IsConflict() bool    { return e != nil && e.conflict }
func (e *Error) IsUnavailable() bool { return false }

func notFound(op, key string) error {
	return &Error{op: op, key: key, notFound: true}
}

func conflict(op, key string) error {
	return &Error{op: op, key: key, conflict: true}
}
