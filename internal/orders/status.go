package orders

import "errors"

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipping  Status = "SHIPPING"
	StatusCompleted Status = "COMPLETED"
)

// sequence is the full lifecycle in order; COMPLETED is terminal.
var sequence = []Status{StatusPlaced, StatusConfirmed, StatusShipping, StatusCompleted}

var (
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("order not found")

	// ErrStatusConflict means a valid transition kept losing the
	// compare-and-set to concurrent writers; the caller may retry.
	ErrStatusConflict = errors.New("status update conflicted")
)

func (s Status) Valid() bool {
	for _, v := range sequence {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusCompleted }

func next(s Status) (Status, bool) {
	for i, v := range sequence {
		if s == v && i+1 < len(sequence) {
			return sequence[i+1], true
		}
	}
	return "", false
}

// Workflow decides which transitions a supplier or admin may apply.
// AllowRewind restores the legacy behaviour of accepting any valid
// non-terminal target; the default is strictly forward, one step at a time.
type Workflow struct {
	AllowRewind bool
}

func (w Workflow) Check(from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if from.Terminal() {
		return ErrInvalidTransition
	}
	if w.AllowRewind {
		if to == from {
			return ErrInvalidTransition
		}
		return nil
	}
	if n, ok := next(from); !ok || to != n {
		return ErrInvalidTransition
	}
	return nil
}
