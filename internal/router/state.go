package router

// State is a step of the per-request state machine.
type State string

const (
	StateStart             State = "start"
	StateContextUpdated    State = "context_updated"
	StateCacheChecked      State = "cache_checked"
	StateFastPathAttempted State = "fast_path_attempted"
	StateToolPipeline      State = "tool_pipeline"
	StateTerminated        State = "terminated"
)

// Tier names the resolution strategy that produced the answer.
type Tier string

const (
	TierCache        Tier = "cache"
	TierFastPath     Tier = "fast_path"
	TierToolPipeline Tier = "tool_pipeline"
)
