package generate

import "fmt"

// Policy decides what a run does with a row that cannot be rendered
type Policy string

const (
	// PolicyAbort stops the run at the first failing row
	PolicyAbort Policy = "abort"
	// PolicySkip logs the failing row, leaves it out and continues
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyAbort, PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("invalid row error policy '%s' (must be abort or skip)", s)
	}
}

// RowError is a failure confined to one source row
type RowError struct {
	Line int    // Source line of the row
	Name string // Output name, when the naming field was usable
	Err  error
}

func (e *RowError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("row at line %d (%s): %v", e.Line, e.Name, e.Err)
	}
	return fmt.Sprintf("row at line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
