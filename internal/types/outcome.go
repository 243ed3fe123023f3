package types

import "fmt"

// OutcomeCode classifies how a background task run resolved.
type OutcomeCode int

const (
	// OutcomeSuccess means the run completed; no reschedule beyond the
	// normal periodic cadence is needed.
	OutcomeSuccess OutcomeCode = iota
	// OutcomeRetry means the run hit a transient condition and should be
	// retried by the scheduler with backoff.
	OutcomeRetry
	// OutcomePermanentFailure means retrying cannot help without external
	// intervention (for example re-pairing the device).
	OutcomePermanentFailure
)

// String returns a string representation of the outcome code.
func (c OutcomeCode) String() string {
	switch c {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeRetry:
		return "RETRY"
	case OutcomePermanentFailure:
		return "PERMANENT_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the tagged result every background task returns to the
// scheduler. It unifies the retry-vs-fail decisions of the sync engine and
// the command poller into one shape.
type Outcome struct {
	Code    OutcomeCode
	Message string
	Err     error
}

// Success builds a successful outcome with an optional detail message.
func Success(format string, args ...interface{}) Outcome {
	return Outcome{Code: OutcomeSuccess, Message: fmt.Sprintf(format, args...)}
}

// Retry builds a retryable outcome carrying the triggering error.
func Retry(reason string, err error) Outcome {
	return Outcome{Code: OutcomeRetry, Message: reason, Err: err}
}

// PermanentFailure builds a terminal outcome carrying the triggering error.
func PermanentFailure(reason string, err error) Outcome {
	return Outcome{Code: OutcomePermanentFailure, Message: reason, Err: err}
}

// IsSuccess reports whether the run completed.
func (o Outcome) IsSuccess() bool { return o.Code == OutcomeSuccess }

// ShouldRetry reports whether the scheduler should retry the run.
func (o Outcome) ShouldRetry() bool { return o.Code == OutcomeRetry }

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %s: %v", o.Code, o.Message, o.Err)
	}
	if o.Message != "" {
		return fmt.Sprintf("%s: %s", o.Code, o.Message)
	}
	return o.Code.String()
}
