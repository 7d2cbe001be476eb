package scheduler

// NodeState tracks a build node through the scheduling state machine:
//
//	Unvisited -> Clean (hash match, skip)
//	          -> Dirty -> Rendering -> Rendered | Failed
//	Failed poisons transitive dependents -> FailedDependency
//
// Clean, Rendered, Failed and FailedDependency are terminal.
type NodeState string

const (
	StateUnvisited        NodeState = "unvisited"
	StateClean            NodeState = "clean"
	StateDirty            NodeState = "dirty"
	StateRendering        NodeState = "rendering"
	StateRendered         NodeState = "rendered"
	StateFailed           NodeState = "failed"
	StateFailedDependency NodeState = "failed_dependency"
)

// Terminal reports whether a node in this state will not change again this pass.
func (s NodeState) Terminal() bool {
	switch s {
	case StateClean, StateRendered, StateFailed, StateFailedDependency:
		return true
	default:
		return false
	}
}

// failed reports whether this state poisons dependents.
func (s NodeState) failed() bool {
	return s == StateFailed || s == StateFailedDependency
}
