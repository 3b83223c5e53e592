package storage

import "fmt"

// PersistError reports a failed write for a single notice.
type PersistError struct {
	Link string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist notice %s: %v", e.Link, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
