// Package cloud persists finished reports: photos and signatures as
// individually addressed blobs, the report itself as one document that
// refers to them.
package cloud

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document or blob does not exist.
var ErrNotFound = errors.New("not found")

// IOError is a failed exchange with a blob or document store.
type IOError struct {
	Op  string
	Key string
	Err error
}

func (e *IOError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cloud %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cloud %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioError(op, key string, err error) error {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Key: key, Err: err}
}
