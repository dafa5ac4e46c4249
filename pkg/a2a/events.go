package a2a

/*
TaskStatusUpdateEvent is sent when the agent wishes to inform the client of
a status transition.
*/
type TaskStatusUpdateEvent struct {
	ID       string         `json:"id"`
	Status   TaskStatus     `json:"status"`
	Final    bool           `json:"final"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

/*
TaskArtifactUpdateEvent is emitted when a new or updated artifact is
available for a task.
*/
type TaskArtifactUpdateEvent struct {
	ID       string         `json:"id"`
	Artifact Artifact       `json:"artifact"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

/*
EventSink is the abstract destination for the ordered event stream produced
by tasks/sendSubscribe.  Implementations wrap each event into the protocol
envelope for their transport.  Close must be idempotent; once IsOpen reports
false producers stop requesting further output.
*/
type EventSink interface {
	WriteStatus(taskID string, status TaskStatus, final bool) error
	WriteArtifact(taskID string, artifact Artifact) error
	WriteError(code int, message string, data any) error
	IsOpen() bool
	Close() error
}
