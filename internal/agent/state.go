package agent

// State is a position in the orchestration state machine.
type State int

const (
	AwaitingModel State = iota
	DispatchingTool
	AwaitingApproval
	Done
	Aborted
)

var stateNames = [...]string{
	AwaitingModel:    "AWAITING_MODEL",
	DispatchingTool:  "DISPATCHING_TOOL",
	AwaitingApproval: "AWAITING_APPROVAL",
	Done:             "DONE",
	Aborted:          "ABORTED",
}

// String returns the state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether a run in this state has returned to the caller.
func (s State) Terminal() bool {
	return s == AwaitingApproval || s == Done || s == Aborted
}
