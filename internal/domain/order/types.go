package order

type Status string

const (
	StatusUnpaid  Status = "unpaid"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusUnpaid, StatusPaid, StatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusExpired
}

// CanTransitionTo encodes the monotonic state machine:
// unpaid -> {paid|expired}, never reversed.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusUnpaid && target.IsTerminal()
}
