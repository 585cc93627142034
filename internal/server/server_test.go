package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
)

const oneBook = `{"version": 1, "generated_at": "2024-03-05T12:30:00Z", "books": [{"book_id": "mark", "display_name": "Mark", "data_path": "mark.json", "data_url": "data/mark.json"}]}`

const twoBooks = `{"version": 1, "generated_at": "2024-03-06T08:00:00Z", "books": [
  {"book_id": "john", "display_name": "John", "data_path": "john.json", "data_url": "data/john.json"},
  {"book_id": "mark", "display_name": "Mark", "data_path": "mark.json", "data_url": "data/mark.json"}
]}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newDataDir(t *testing.T) string {
	t.Helper()
	data := filepath.Join(t.TempDir(), "data")
	writeFile(t, filepath.Join(data, "manifest.json"), oneBook)
	writeFile(t, filepath.Join(data, "mark.json"), `{"book_id": "mark"}`)
	writeFile(t, filepath.Join(data, "books", "john.json"), `{"book_id": "john"}`)
	return data
}

func TestNewRequiresDataDir(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("New() error = %v, want ErrInvalidInput", err)
	}
}

func TestHandlerServesData(t *testing.T) {
	data := newDataDir(t)
	s, err := New(Config{DataDir: data})
	if err != nil {
		t.Fatal(err)
	}
	if s.DataPrefix() != "/data/" {
		t.Errorf("DataPrefix() = %q", s.DataPrefix())
	}
	h := s.Handler()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "payload", path: "/data/mark.json", wantStatus: http.StatusOK, wantBody: `{"book_id": "mark"}`},
		{name: "nested payload", path: "/data/books/john.json", wantStatus: http.StatusOK, wantBody: `{"book_id": "john"}`},
		{name: "manifest", path: "/data/manifest.json", wantStatus: http.StatusOK, wantBody: oneBook},
		{name: "missing file", path: "/data/luke.json", wantStatus: http.StatusNotFound},
		{name: "directory", path: "/data/books/", wantStatus: http.StatusNotFound},
		{name: "data root", path: "/data/", wantStatus: http.StatusNotFound},
		{name: "outside prefix", path: "/other/mark.json", wantStatus: http.StatusNotFound},
		{name: "health", path: "/healthz", wantStatus: http.StatusOK, wantBody: "ok\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("GET %s status = %d, want %d", tt.path, w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("GET %s body = %q, want %q", tt.path, w.Body.String(), tt.wantBody)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}
		})
	}
}

func TestHandlerPayloadHeaders(t *testing.T) {
	s, err := New(Config{DataDir: newDataDir(t)})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/data/mark.json", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	want := map[string]string{
		"Content-Type":                "application/json; charset=utf-8",
		"Cache-Control":               "no-cache",
		"X-Content-Type-Options":      "nosniff",
		"Access-Control-Allow-Origin": "*",
	}
	got := make(map[string]string, len(want))
	for k := range want {
		got[k] = w.Header().Get(k)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerServesRebuiltPayload(t *testing.T) {
	data := newDataDir(t)
	s, err := New(Config{DataDir: data})
	if err != nil {
		t.Fatal(err)
	}
	h := s.Handler()

	get := func() string {
		req := httptest.NewRequest(http.MethodGet, "/data/mark.json", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Body.String()
	}

	if got := get(); got != `{"book_id": "mark"}` {
		t.Fatalf("first GET = %q", got)
	}
	writeFile(t, filepath.Join(data, "mark.json"), `{"book_id": "mark", "verses": []}`)
	if got := get(); got != `{"book_id": "mark", "verses": []}` {
		t.Errorf("GET after rebuild = %q", got)
	}
}

func TestCORSMiddlewareWithConfig(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name            string
		allowed         []string
		method          string
		origin          string
		wantStatus      int
		wantAllowOrigin string
	}{
		{name: "allow all", method: http.MethodGet, origin: "https://example.com", wantStatus: http.StatusOK, wantAllowOrigin: "*"},
		{name: "allowed origin", allowed: []string{"http://localhost:5173"}, method: http.MethodGet, origin: "http://localhost:5173", wantStatus: http.StatusOK, wantAllowOrigin: "http://localhost:5173"},
		{name: "blocked origin", allowed: []string{"http://localhost:5173"}, method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusOK},
		{name: "blocked preflight", allowed: []string{"http://localhost:5173"}, method: http.MethodOptions, origin: "https://evil.example", wantStatus: http.StatusForbidden},
		{name: "preflight", method: http.MethodOptions, origin: "https://example.com", wantStatus: http.StatusNoContent, wantAllowOrigin: "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORSMiddlewareWithConfig(CORSConfig{AllowedOrigins: tt.allowed}, next)
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllowOrigin)
			}
		})
	}
}

// startServer runs s on a loopback listener until the test ends.
func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("server did not shut down")
		}
	})

	addr := ln.Addr().String()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return addr
		}
		if time.Now().After(deadline) {
			t.Fatalf("server not ready: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) ManifestEvent {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var ev ManifestEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return ev
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketManifestUpdates(t *testing.T) {
	data := newDataDir(t)
	s, err := New(Config{DataDir: data})
	if err != nil {
		t.Fatal(err)
	}
	addr := startServer(t, s)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	greeting := readEvent(t, conn)
	want := ManifestEvent{Type: ManifestEventType, GeneratedAt: "2024-03-05T12:30:00Z", Books: 1}
	if diff := cmp.Diff(want, greeting); diff != "" {
		t.Errorf("greeting mismatch (-want +got):\n%s", diff)
	}
	waitFor(t, "client registration", func() bool { return s.Hub().ClientCount() == 1 })

	writeFile(t, filepath.Join(data, "manifest.json"), twoBooks)

	got := readEvent(t, conn)
	want = ManifestEvent{Type: ManifestEventType, GeneratedAt: "2024-03-06T08:00:00Z", Books: 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("update mismatch (-want +got):\n%s", diff)
	}
}

func TestWebSocketRejectsOrigin(t *testing.T) {
	s, err := New(Config{DataDir: newDataDir(t), AllowedOrigins: []string{"http://localhost:5173"}})
	if err != nil {
		t.Fatal(err)
	}
	addr := startServer(t, s)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", header)
	if err == nil {
		t.Fatal("Dial() from a disallowed origin should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Dial() response = %v, want 403", resp)
	}
}

func TestHubBroadcastAndShutdown(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, nil)
	}))
	defer srv.Close()

	url := "ws" + srv.URL[len("http"):]
	var conns []*websocket.Conn
	for range 2 {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}
	waitFor(t, "two clients", func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast(ManifestEvent{Type: ManifestEventType, Books: 3})
	for i, conn := range conns {
		if got := readEvent(t, conn); got.Books != 3 {
			t.Errorf("client %d got %+v", i, got)
		}
	}

	cancel()
	waitFor(t, "hub shutdown", func() bool { return hub.ClientCount() == 0 })
	conns[0].SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conns[0].ReadMessage(); err == nil {
		t.Error("expected connection to close after hub shutdown")
	}
}
