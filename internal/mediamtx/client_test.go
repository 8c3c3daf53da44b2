package mediamtx

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishURL(t *testing.T) {
	e := Endpoint{Host: "localhost", RTSPPort: 8554}
	got := e.PublishURL("sailboat")
	want := "rtsp://localhost:8554/sailboat"
	if got != want {
		t.Errorf("PublishURL = %q, want %q", got, want)
	}
}

func TestWaitReady(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	c := NewClient(Endpoint{Host: "127.0.0.1", RTSPPort: port}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitReady(ctx); err != nil {
		t.Errorf("WaitReady failed against live listener: %v", err)
	}
}

func TestWaitReadyTimeout(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := NewClient(Endpoint{Host: "127.0.0.1", RTSPPort: port}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := c.WaitReady(ctx); err == nil {
		t.Error("expected timeout error with no listener")
	}
}

func TestCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/paths/list" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"itemCount":2,"items":[{"name":"sailboat","ready":true},{"name":"beach","ready":false}]}`))
	}))
	defer srv.Close()

	addr := srv.Listener.Addr().(*net.TCPAddr)
	c := NewClient(Endpoint{Host: "127.0.0.1", APIPort: addr.Port}, testLogger())

	check, err := c.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if check.Status != "ok" {
		t.Errorf("expected ok status, got %q", check.Status)
	}
	if check.PathCount != 2 {
		t.Errorf("expected 2 paths, got %d", check.PathCount)
	}
}

func TestCheckHealthUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := NewClient(Endpoint{Host: "127.0.0.1", APIPort: port}, testLogger())

	check, err := c.CheckHealth(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable API")
	}
	if check == nil || check.Status != "error" {
		t.Errorf("expected usable error health check, got %+v", check)
	}
}

func TestRTSPAddr(t *testing.T) {
	e := Endpoint{Host: "localhost", RTSPPort: 8554}
	if got := e.rtspAddr(); got != net.JoinHostPort("localhost", strconv.Itoa(8554)) {
		t.Errorf("rtspAddr = %q", got)
	}
}
