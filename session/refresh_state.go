package session

// RefreshPhase is the renewal state machine: Idle → Refreshing → Idle | Failed.
type RefreshPhase int

const (
	Idle RefreshPhase = iota
	Refreshing
	Failed
)

func (p RefreshPhase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// RefreshState is a snapshot of the renewal state. Round counts started renewals.
type RefreshState struct {
	Phase  RefreshPhase
	Round  uint64
	Reason error // set only in Failed
}
