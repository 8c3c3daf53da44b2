package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/dircast/dircast/internal/api/models"
	"github.com/dircast/dircast/internal/streams"
)

// mockStreamService is a test implementation of streams.Service.
type mockStreamService struct {
	records   map[string]*streams.StreamRecord
	lastLoop  int
	startErr  error
	stopCalls []string
}

func newMockStreamService() *mockStreamService {
	return &mockStreamService{records: make(map[string]*streams.StreamRecord)}
}

func (m *mockStreamService) Upsert(_ string) (*streams.StreamRecord, error) {
	return nil, nil
}

func (m *mockStreamService) Remove(_ string) error {
	return nil
}

func (m *mockStreamService) Start(id string, loop int) (*streams.StreamRecord, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, &streams.StreamError{Code: streams.ErrCodeStreamNotFound, Message: "not found"}
	}
	m.lastLoop = loop
	rec.Status = streams.StatusRunning
	rec.LoopCount = loop
	rec.PID = 4321
	return rec, nil
}

func (m *mockStreamService) Stop(id string) (*streams.StreamRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, &streams.StreamError{Code: streams.ErrCodeStreamNotFound, Message: "not found"}
	}
	m.stopCalls = append(m.stopCalls, id)
	rec.Status = streams.StatusStopped
	rec.PID = 0
	return rec, nil
}

func (m *mockStreamService) StartAll() []streams.OpResult {
	var results []streams.OpResult
	for id, rec := range m.records {
		started, err := m.Start(id, rec.LoopCount)
		res := streams.OpResult{StreamID: id, Err: err}
		if started != nil {
			res.Status = started.Status
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].StreamID < results[j].StreamID })
	return results
}

func (m *mockStreamService) StopAll() []streams.OpResult {
	var results []streams.OpResult
	for id := range m.records {
		rec, err := m.Stop(id)
		res := streams.OpResult{StreamID: id, Err: err}
		if rec != nil {
			res.Status = rec.Status
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].StreamID < results[j].StreamID })
	return results
}

func (m *mockStreamService) Get(id string) (*streams.StreamRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, &streams.StreamError{Code: streams.ErrCodeStreamNotFound, Message: "not found"}
	}
	return rec, nil
}

func (m *mockStreamService) List() []streams.StreamRecord {
	out := make([]streams.StreamRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func newTestServer(svc streams.Service) *Server {
	return NewServer(&Options{StreamService: svc})
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.GetMux().ServeHTTP(rec, req)
	return rec
}

func TestListStreams(t *testing.T) {
	svc := newMockStreamService()
	svc.records["sailboat"] = &streams.StreamRecord{
		ID:         "sailboat",
		SourcePath: "/videos/sailboat.mp4",
		Status:     streams.StatusRunning,
		LoopCount:  -1,
		PID:        4321,
	}
	svc.records["beach_day"] = &streams.StreamRecord{
		ID:         "beach_day",
		SourcePath: "/videos/Beach Day.mp4",
		Status:     streams.StatusStopped,
		LoopCount:  0,
	}
	srv := newTestServer(svc)

	rec := doRequest(t, srv, http.MethodGet, "/api/streams")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body models.StreamListData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("expected 2 streams, got %d", body.Count)
	}
	if body.Streams[0].StreamID != "beach_day" || body.Streams[1].StreamID != "sailboat" {
		t.Errorf("streams not sorted by id: %+v", body.Streams)
	}
}

func TestGetStreamNotFound(t *testing.T) {
	srv := newTestServer(newMockStreamService())

	rec := doRequest(t, srv, http.MethodGet, "/api/streams/ghost")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStartStreamDefaultLoop(t *testing.T) {
	svc := newMockStreamService()
	svc.records["sailboat"] = &streams.StreamRecord{ID: "sailboat", Status: streams.StatusStopped}
	srv := newTestServer(svc)

	rec := doRequest(t, srv, http.MethodPost, "/api/streams/sailboat/start")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastLoop != -1 {
		t.Errorf("expected default loop -1, got %d", svc.lastLoop)
	}

	var body models.StreamData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Status != "running" {
		t.Errorf("expected running, got %q", body.Status)
	}
}

func TestStartStreamExplicitLoop(t *testing.T) {
	svc := newMockStreamService()
	svc.records["sailboat"] = &streams.StreamRecord{ID: "sailboat", Status: streams.StatusStopped}
	srv := newTestServer(svc)

	rec := doRequest(t, srv, http.MethodPost, "/api/streams/sailboat/start?loop=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastLoop != 0 {
		t.Errorf("expected loop 0, got %d", svc.lastLoop)
	}
}

func TestStopStream(t *testing.T) {
	svc := newMockStreamService()
	svc.records["sailboat"] = &streams.StreamRecord{ID: "sailboat", Status: streams.StatusRunning, PID: 4321}
	srv := newTestServer(svc)

	rec := doRequest(t, srv, http.MethodPost, "/api/streams/sailboat/stop")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body models.StreamData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Status != "stopped" {
		t.Errorf("expected stopped, got %q", body.Status)
	}
	if len(svc.stopCalls) != 1 || svc.stopCalls[0] != "sailboat" {
		t.Errorf("unexpected stop calls: %v", svc.stopCalls)
	}
}

func TestStartAllReportsPerStreamResults(t *testing.T) {
	svc := newMockStreamService()
	svc.records["a"] = &streams.StreamRecord{ID: "a", Status: streams.StatusStopped, LoopCount: -1}
	svc.records["b"] = &streams.StreamRecord{ID: "b", Status: streams.StatusStopped, LoopCount: -1}
	srv := newTestServer(svc)

	rec := doRequest(t, srv, http.MethodPost, "/api/streams/start-all")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body models.BulkOpData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(body.Results))
	}
	if body.Failed != 0 {
		t.Errorf("expected no failures, got %d", body.Failed)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(newMockStreamService())

	rec := doRequest(t, srv, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body models.HealthData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("expected ok, got %q", body.Status)
	}
}

func TestBasicAuthRequired(t *testing.T) {
	svc := newMockStreamService()
	srv := NewServer(&Options{
		StreamService: svc,
		AuthUsername:  "admin",
		AuthPassword:  "secret",
	})

	// Protected route without credentials
	rec := doRequest(t, srv, http.MethodGet, "/api/streams")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}

	// Health stays open
	rec = doRequest(t, srv, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for health without credentials, got %d", rec.Code)
	}

	// Valid credentials pass
	req := httptest.NewRequest(http.MethodGet, "/api/streams", nil)
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	srv.GetMux().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with credentials, got %d", w.Code)
	}
}

func TestMapStreamError(t *testing.T) {
	srv := &Server{}

	tests := []struct {
		code   string
		status int
	}{
		{streams.ErrCodeStreamNotFound, http.StatusNotFound},
		{streams.ErrCodeNameCollision, http.StatusConflict},
		{streams.ErrCodeSpawnFailed, http.StatusInternalServerError},
		{streams.ErrCodeConfigError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		err := srv.mapStreamError(&streams.StreamError{Code: tt.code, Message: "boom"})
		statusErr, ok := err.(interface{ GetStatus() int })
		if !ok {
			t.Fatalf("%s: expected status error, got %T", tt.code, err)
		}
		if statusErr.GetStatus() != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.code, tt.status, statusErr.GetStatus())
		}
	}
}

func TestDomainToAPIStreamLastError(t *testing.T) {
	srv := &Server{}
	rec := &streams.StreamRecord{
		ID:         "sailboat",
		SourcePath: "/videos/sailboat.mp4",
		Status:     streams.StatusStopped,
		LoopCount:  -1,
		StartedAt:  time.Now(),
		LastError:  &streams.StreamError{Code: streams.ErrCodeProcessCrash, Message: "publisher exited with code 1"},
	}

	data := srv.domainToAPIStream(rec)
	if data.LastError == "" {
		t.Error("expected LastError to be rendered")
	}
	if data.RTSPURL != "" {
		t.Error("expected no RTSP URL without a media endpoint")
	}
}
