package domain

import "time"

// MethodStatus is the outcome of one transport method's run.
type MethodStatus string

const (
	StatusPassed  MethodStatus = "passed"
	StatusFailed  MethodStatus = "failed"
	StatusSkipped MethodStatus = "skipped"
)

// MethodResult records how the script fared over one transport method.
type MethodResult struct {
	Method    string       `json:"method"`
	Status    MethodStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	ExitCode  int          `json:"exit_code"`
	Steps     int          `json:"steps"`
	Received  int          `json:"received"`
	Ignored   int          `json:"ignored"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}

// RunReport aggregates the method results of one driver invocation.
type RunReport struct {
	ID        string         `json:"id"`
	Script    string         `json:"script"`
	Generator string         `json:"generator,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Methods   []MethodResult `json:"methods"`
}

// Passed reports whether every method that ran passed.
func (r *RunReport) Passed() bool {
	for _, m := range r.Methods {
		if m.Status == StatusFailed {
			return false
		}
	}
	return true
}

// ExitCode returns the exit code of the first failed method, or ExitOK.
func (r *RunReport) ExitCode() int {
	for _, m := range r.Methods {
		if m.Status == StatusFailed {
			return m.ExitCode
		}
	}
	return ExitOK
}
