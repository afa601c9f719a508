// Package errs defines the replay core's error taxonomy. Every kind carries
// a structured payload rather than a bare string, following the shape of
// the teacher's bank.ScraperError: a Kind, the Op that failed, an optional
// wrapped Cause, and free-form Details for diagnostics.
package errs

import "fmt"

// Kind enumerates the replay core's error taxonomy.
type Kind string

const (
	InvalidStep        Kind = "InvalidStep"
	ElementNotFound     Kind = "ElementNotFound"
	ElementNotActionable Kind = "ElementNotActionable"
	ActionFailed        Kind = "ActionFailed"
	Timeout             Kind = "Timeout"
	CrossOriginBoundary Kind = "CrossOriginBoundary"
	IllegalTransition   Kind = "IllegalTransition"
	Aborted             Kind = "Aborted"
	HostDisconnected    Kind = "HostDisconnected"
	ConfigInvalid       Kind = "ConfigInvalid"
)

// Error is the structured error value every replay-core package returns.
type Error struct {
	Kind    Kind
	Op      string
	Cause   error
	Details string

	// Strategies and Candidates are populated by ElementNotFound errors:
	// the strategies attempted and the last-seen candidate count per
	// strategy.
	Strategies []string
	Candidates map[string]int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v (%s)", e.Op, e.Kind, e.Cause, e.Details)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, e.Details)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no cause.
func New(kind Kind, op, details string) *Error {
	return &Error{Kind: kind, Op: op, Details: details}
}

// Wrap builds an *Error wrapping cause.
func Wrap(kind Kind, op string, cause error, details string) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause, Details: details}
}

// NotFound builds an ElementNotFound error carrying the strategies attempted
// and their per-strategy candidate counts.
func NotFound(op string, strategies []string, candidates map[string]int, details string) *Error {
	return &Error{
		Kind:       ElementNotFound,
		Op:         op,
		Details:    details,
		Strategies: strategies,
		Candidates: candidates,
	}
}

// KindOf reports the Kind of the first *Error found in err's Unwrap chain,
// and false when the chain holds no *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if asError(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// asError walks err's single-error Unwrap chain by hand and stores the
// first *Error it meets in target.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
