package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dircast/dircast/internal/api/models"
	"github.com/dircast/dircast/internal/streams"
)

// registerStreamRoutes registers all stream-related endpoints
func (s *Server) registerStreamRoutes() {
	// List streams
	huma.Register(s.api, huma.Operation{
		OperationID: "list-streams",
		Method:      http.MethodGet,
		Path:        "/api/streams",
		Summary:     "List Streams",
		Description: "Get a snapshot of all registered streams",
		Tags:        []string{"streams"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.StreamListResponse, error) {
		records := s.streamService.List()

		apiStreams := make([]models.StreamData, len(records))
		for i, rec := range records {
			apiStreams[i] = s.domainToAPIStream(&rec)
		}

		return &models.StreamListResponse{
			Body: models.StreamListData{
				Streams: apiStreams,
				Count:   len(apiStreams),
			},
		}, nil
	})

	// Get specific stream
	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream",
		Method:      http.MethodGet,
		Path:        "/api/streams/{stream_id}",
		Summary:     "Get Stream",
		Description: "Get details of a specific stream",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		StreamID string `path:"stream_id" example:"sailboat" doc:"Stream identifier"`
	}) (*models.StreamResponse, error) {
		rec, err := s.streamService.Get(input.StreamID)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		return &models.StreamResponse{Body: s.domainToAPIStream(rec)}, nil
	})

	// Start stream. Idempotent: starting a running stream is a no-op.
	huma.Register(s.api, huma.Operation{
		OperationID: "start-stream",
		Method:      http.MethodPost,
		Path:        "/api/streams/{stream_id}/start",
		Summary:     "Start Stream",
		Description: "Start the publisher process for a stream. Loop contract: -1 forever, 0 once, N>0 means N+1 plays.",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		StreamID string `path:"stream_id" example:"sailboat" doc:"Stream identifier"`
		Loop     int    `query:"loop" default:"-1" minimum:"-1" example:"-1" doc:"Loop count: -1 forever, 0 once, N>0 for N+1 plays"`
	}) (*models.StreamResponse, error) {
		rec, err := s.streamService.Start(input.StreamID, input.Loop)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		return &models.StreamResponse{Body: s.domainToAPIStream(rec)}, nil
	})

	// Stop stream. Idempotent: stopping a stopped stream is a no-op.
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-stream",
		Method:      http.MethodPost,
		Path:        "/api/streams/{stream_id}/stop",
		Summary:     "Stop Stream",
		Description: "Stop the publisher process for a stream",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *struct {
		StreamID string `path:"stream_id" example:"sailboat" doc:"Stream identifier"`
	}) (*models.StreamResponse, error) {
		rec, err := s.streamService.Stop(input.StreamID)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		return &models.StreamResponse{Body: s.domainToAPIStream(rec)}, nil
	})

	// Start all streams
	huma.Register(s.api, huma.Operation{
		OperationID: "start-all-streams",
		Method:      http.MethodPost,
		Path:        "/api/streams/start-all",
		Summary:     "Start All Streams",
		Description: "Start every registered stream with its last-used loop count, collecting per-stream results",
		Tags:        []string{"streams"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.BulkOpResponse, error) {
		return bulkResponse(s.streamService.StartAll()), nil
	})

	// Stop all streams
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-all-streams",
		Method:      http.MethodPost,
		Path:        "/api/streams/stop-all",
		Summary:     "Stop All Streams",
		Description: "Stop every running stream, collecting per-stream results",
		Tags:        []string{"streams"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.BulkOpResponse, error) {
		return bulkResponse(s.streamService.StopAll()), nil
	})
}

// domainToAPIStream converts a registry snapshot to API stream data
func (s *Server) domainToAPIStream(rec *streams.StreamRecord) models.StreamData {
	data := models.StreamData{
		StreamID:   rec.ID,
		SourcePath: rec.SourcePath,
		Status:     string(rec.Status),
		LoopCount:  rec.LoopCount,
		PID:        rec.PID,
		StartedAt:  rec.StartedAt,
	}
	if rec.LastError != nil {
		data.LastError = rec.LastError.Error()
	}
	if s.media != nil {
		data.RTSPURL = s.media.Endpoint().PublishURL(rec.ID)
	}
	return data
}

// bulkResponse converts registry bulk results to the API shape
func bulkResponse(results []streams.OpResult) *models.BulkOpResponse {
	data := models.BulkOpData{
		Results: make([]models.StreamOpResult, len(results)),
	}
	for i, res := range results {
		data.Results[i] = models.StreamOpResult{
			StreamID: res.StreamID,
			Status:   string(res.Status),
		}
		if res.Err != nil {
			data.Results[i].Error = res.Err.Error()
			data.Failed++
		}
	}
	return &models.BulkOpResponse{Body: data}
}

// mapStreamError maps domain errors to HTTP errors
func (s *Server) mapStreamError(err error) error {
	if streamErr, ok := err.(*streams.StreamError); ok {
		switch streamErr.Code {
		case streams.ErrCodeStreamNotFound:
			return huma.Error404NotFound(streamErr.Message, err)
		case streams.ErrCodeNameCollision:
			return huma.Error409Conflict(streamErr.Message, err)
		case streams.ErrCodeSpawnFailed, streams.ErrCodeConfigError, streams.ErrCodeProcessCrash:
			return huma.Error500InternalServerError(streamErr.Message, err)
		default:
			return huma.Error500InternalServerError("internal server error", err)
		}
	}
	return huma.Error500InternalServerError("internal server error", err)
}
