package crawler

// State is the orchestrator's position in a run.
type State int32

const (
	StateIdle State = iota
	StateRendering
	StateExtracting
	StatePersisting
	StateReporting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateExtracting:
		return "extracting"
	case StatePersisting:
		return "persisting"
	case StateReporting:
		return "reporting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
