package crawler

// State is the phase of the engine's current crawl generation.
type State int32

const (
	// StateIdle means no generation is running.
	StateIdle State = iota
	// StateSeeding means the root node is being identified.
	StateSeeding
	// StateDraining means workers are interrogating nodes.
	StateDraining
	// StateFinalizing means lookup data is being merged.
	StateFinalizing
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeding:
		return "seeding"
	case StateDraining:
		return "draining"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// stateByName maps pipeline step names back to states.
var stateByName = map[string]State{
	StateSeeding.String():    StateSeeding,
	StateDraining.String():   StateDraining,
	StateFinalizing.String(): StateFinalizing,
}
