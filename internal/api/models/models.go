package models

import "time"

// Health check models
type HealthData struct {
	Status      string `json:"status" example:"ok" doc:"Service status"`
	Message     string `json:"message" example:"API is healthy" doc:"Status message"`
	MediaServer string `json:"media_server" example:"ok" doc:"Media server health status"`
}

type HealthResponse struct {
	Body HealthData
}

// Stream models
type StreamData struct {
	StreamID   string    `json:"stream_id" example:"sailboat" doc:"Canonical stream identifier"`
	SourcePath string    `json:"source_path" example:"/videos/sailboat.mp4" doc:"Backing video file"`
	Status     string    `json:"status" enum:"stopped,running" example:"running" doc:"Stream status"`
	LoopCount  int       `json:"loop_count" example:"-1" doc:"Loop contract: -1 forever, 0 once, N>0 means N+1 plays"`
	PID        int       `json:"pid,omitempty" example:"4321" doc:"Publisher process id when running"`
	RTSPURL    string    `json:"rtsp_url" example:"rtsp://localhost:8554/sailboat" doc:"RTSP playback URL"`
	StartedAt  time.Time `json:"started_at,omitempty" doc:"When the publisher was last started"`
	LastError  string    `json:"last_error,omitempty" example:"PROCESS_CRASH: publisher exited with code 1" doc:"Most recent error, if any"`
}

type StreamListData struct {
	Streams []StreamData `json:"streams" doc:"All registered streams sorted by identifier"`
	Count   int          `json:"count" example:"2" doc:"Number of registered streams"`
}

type StreamListResponse struct {
	Body StreamListData
}

type StreamResponse struct {
	Body StreamData
}

// Bulk operation models
type StreamOpResult struct {
	StreamID string `json:"stream_id" example:"sailboat" doc:"Stream identifier"`
	Status   string `json:"status" enum:"stopped,running" example:"running" doc:"Stream status after the operation"`
	Error    string `json:"error,omitempty" example:"SPAWN_FAILED: spawning publisher" doc:"Per-stream failure, if any"`
}

type BulkOpData struct {
	Results []StreamOpResult `json:"results" doc:"Per-stream outcomes"`
	Failed  int              `json:"failed" example:"0" doc:"Number of streams that failed"`
}

type BulkOpResponse struct {
	Body BulkOpData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2026-08-25 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}
