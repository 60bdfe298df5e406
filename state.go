package probego

// RunState is the lifecycle state of an experiment.
type RunState uint8

const (
	// StateCreated means the experiment is initialized but not started.
	StateCreated RunState = iota
	// StateRunning means Run is in progress.
	StateRunning
	// StateCompleted means the run visited every selected contact.
	StateCompleted
	// StateAborted means the run was stopped by Abort or context
	// cancellation; data stored so far is kept.
	StateAborted
	// StateFailed means a fatal error stopped the run.
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has ended.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

// ContactState is the per-contact progress state within a run.
type ContactState uint8

const (
	// ContactPending means the contact has not been visited yet.
	ContactPending ContactState = iota
	// ContactContacting means the interface is routing to the contact.
	ContactContacting
	// ContactMeasuring means the measurement is producing records.
	ContactMeasuring
	// ContactDone means the contact finished and its data is stored.
	ContactDone
	// ContactFailed means the contact's measurement failed; the run went on.
	ContactFailed
	// ContactSkipped means the contact was never measured (selection
	// failure, abort, or an earlier fatal error).
	ContactSkipped
)

func (s ContactState) String() string {
	switch s {
	case ContactPending:
		return "pending"
	case ContactContacting:
		return "contacting"
	case ContactMeasuring:
		return "measuring"
	case ContactDone:
		return "done"
	case ContactFailed:
		return "failed"
	case ContactSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}
