package model

// LoadOutcome is the result of one load operation. Cancellation is an
// outcome of its own and is never reported as a failure.
type LoadOutcome int

const (
	// OutcomeSkipped means a guard prevented the fetch (already in flight,
	// already loaded, nothing more to load, or a stale result was dropped).
	OutcomeSkipped LoadOutcome = iota

	// OutcomeLoaded means the fetch completed and its result was applied.
	OutcomeLoaded

	// OutcomeCancelled means the caller's context was cancelled before the
	// fetch completed. State is left as if the call never happened.
	OutcomeCancelled

	// OutcomeFailed means the fetch failed and the failure was recorded.
	OutcomeFailed
)

func (o LoadOutcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeLoaded:
		return "loaded"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
