package events

// Event type constants for kelindar/event.
const (
	TypeStreamStarted uint32 = iota + 1
	TypeStreamStopped
	TypeStreamCrashed
	TypeVideoAdded
	TypeVideoRemoved
	TypeNamingCollision
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamStartedEvent is published when a publisher process starts.
type StreamStartedEvent struct {
	StreamID  string `json:"stream_id" example:"sailboat" doc:"Stream identifier"`
	LoopCount int    `json:"loop_count" example:"-1" doc:"Requested loop count"`
	Timestamp string `json:"timestamp" example:"2026-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStartedEvent.
func (e StreamStartedEvent) Type() uint32 { return TypeStreamStarted }

// StreamStoppedEvent is published when a stream transitions to stopped,
// whether by request or because its process finished on its own.
type StreamStoppedEvent struct {
	StreamID  string `json:"stream_id" example:"sailboat" doc:"Stream identifier"`
	Timestamp string `json:"timestamp" example:"2026-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStoppedEvent.
func (e StreamStoppedEvent) Type() uint32 { return TypeStreamStopped }

// StreamCrashedEvent is published when a publisher process exits non-zero
// while it was expected to keep running.
type StreamCrashedEvent struct {
	StreamID  string `json:"stream_id" example:"sailboat" doc:"Stream identifier"`
	ExitCode  int    `json:"exit_code" example:"1" doc:"Process exit code"`
	Timestamp string `json:"timestamp" example:"2026-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamCrashedEvent.
func (e StreamCrashedEvent) Type() uint32 { return TypeStreamCrashed }

// VideoAddedEvent is published when the watcher sees a new video file.
type VideoAddedEvent struct {
	StreamID  string `json:"stream_id" example:"sailboat" doc:"Stream identifier"`
	Path      string `json:"path" example:"/videos/sailboat.mp4" doc:"Source file path"`
	Timestamp string `json:"timestamp" example:"2026-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for VideoAddedEvent.
func (e VideoAddedEvent) Type() uint32 { return TypeVideoAdded }

// VideoRemovedEvent is published when the watcher sees a video file disappear.
type VideoRemovedEvent struct {
	StreamID  string `json:"stream_id" example:"sailboat" doc:"Stream identifier"`
	Path      string `json:"path" example:"/videos/sailboat.mp4" doc:"Source file path"`
	Timestamp string `json:"timestamp" example:"2026-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for VideoRemovedEvent.
func (e VideoRemovedEvent) Type() uint32 { return TypeVideoRemoved }

// NamingCollisionEvent is published when two source files sanitize to the
// same stream identifier. The first-seen mapping wins.
type NamingCollisionEvent struct {
	StreamID     string `json:"stream_id" example:"clip" doc:"Colliding stream identifier"`
	KeptPath     string `json:"kept_path" example:"/videos/clip.mp4" doc:"Path that owns the identifier"`
	RejectedPath string `json:"rejected_path" example:"/videos/Clip.mkv" doc:"Path that was rejected"`
	Timestamp    string `json:"timestamp" example:"2026-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for NamingCollisionEvent.
func (e NamingCollisionEvent) Type() uint32 { return TypeNamingCollision }
