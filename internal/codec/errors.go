// Package codec maps a report to and from its exchange formats: the JSON
// backup with inlined photos and the two-sheet spreadsheet.
package codec

import "fmt"

// ImportFormatError reports a backup or spreadsheet that cannot be applied.
// Nothing is imported when it is returned.
type ImportFormatError struct {
	Format string
	Reason string
	Err    error
}

func (e *ImportFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s import: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s import: %s", e.Format, e.Reason)
}

func (e *ImportFormatError) Unwrap() error { return e.Err }
