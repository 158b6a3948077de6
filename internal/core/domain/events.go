package domain

// Bus topics published by the agent. Delivery is synchronous and in-process;
// subscribers must not block.
const (
	EventOnline         = "connectivity.online"
	EventOffline        = "connectivity.offline"
	EventSyncCompleted  = "sync.completed"
	EventSessionExpired = "session.expired"
)
