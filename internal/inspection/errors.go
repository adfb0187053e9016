package inspection

import "fmt"

// Validation codes.
const (
	CodeRequired  = "required"
	CodeDuplicate = "duplicate"
	CodeConflict  = "conflict"
	CodeUnknown   = "unknown"
)

// ValidationError is a user-correctable problem with captured values. Its
// message is meant to be shown as-is.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

// Is matches on field and code so callers can test against ErrDuplicateID.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Field == e.Field && t.Code == e.Code
}

// ErrDuplicateID matches any duplicate equipment tag rejection.
var ErrDuplicateID = &ValidationError{Field: "id", Code: CodeDuplicate}

// DuplicateID builds the rejection shown when id is already in the report.
func DuplicateID(id string) error {
	return &ValidationError{
		Field:   "id",
		Code:    CodeDuplicate,
		Message: fmt.Sprintf("Já existe um item com a identificação %q neste relatório.", id),
	}
}

func required(field, message string) error {
	return &ValidationError{Field: field, Code: CodeRequired, Message: message}
}
