package types

import "fmt"

// ValidationError reports a request body that decoded cleanly but violates
// a structural requirement. Field names the offending location in the
// body, using bracket notation for array entries. Code, when set, replaces
// the generic request-failure code in the error envelope.
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
