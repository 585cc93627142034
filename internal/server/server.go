// Package server runs the development server that serves generated viewer
// data and notifies browsers over a websocket when the manifest changes.
package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/sblgnt-viewer/core/cache"
	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/manifest"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/logging"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/validation"
)

const shutdownTimeout = 5 * time.Second

// Config holds dev server configuration.
type Config struct {
	Addr           string   // Listen address, e.g. "127.0.0.1:8000"
	DataDir        string   // Directory of payloads, served under /<base name>/
	ManifestPath   string   // Defaults to <DataDir>/manifest.json
	AllowedOrigins []string // Empty allows every origin
}

// Server serves viewer data and manifest change notifications.
type Server struct {
	cfg    Config
	hub    *Hub
	files  *cache.FileCache
	prefix string
}

// New creates a server. The data directory does not need to exist yet.
func New(cfg Config) (*Server, error) {
	if cfg.DataDir == "" {
		return nil, errors.NewValidation("data_dir", "data directory is required")
	}
	if err := validation.ValidatePath(cfg.DataDir); err != nil {
		return nil, &errors.ValidationError{Field: "data_dir", Value: cfg.DataDir, Message: err.Error(), Err: err}
	}
	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, errors.NewIO("resolve", cfg.DataDir, err)
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = filepath.Join(cfg.DataDir, "manifest.json")
	}
	return &Server{
		cfg:    cfg,
		hub:    NewHub(cfg.AllowedOrigins),
		files:  cache.NewFileCache(cache.DefaultConfig()),
		prefix: "/" + filepath.Base(abs) + "/",
	}, nil
}

// Hub returns the server's websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// DataPrefix is the URL path the data directory is served under.
func (s *Server) DataPrefix() string { return s.prefix }

// Handler returns the HTTP handler with logging, request-id, and CORS
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET "+s.prefix, s.handleData)

	var h http.Handler = mux
	h = SecurityHeadersMiddleware(h)
	h = CORSMiddlewareWithConfig(CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, h)
	return logging.CombinedMiddleware(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var greeting any
	if m, err := manifest.Read(s.cfg.ManifestPath); err == nil {
		greeting = NewManifestEvent(m)
	}
	s.hub.ServeWS(w, r, greeting)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean(r.URL.Path), strings.TrimSuffix(s.prefix, "/"))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		http.NotFound(w, r)
		return
	}

	safe, err := validation.SanitizePath(s.cfg.DataDir, filepath.FromSlash(rel))
	if err != nil {
		logging.WarnContext(r.Context(), "rejected data path", "path", r.URL.Path, "error", err)
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	file := filepath.Join(s.cfg.DataDir, safe)
	if info, err := os.Stat(file); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	f, err := s.files.Load(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(file, ".json") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	// Payloads change on every rebuild.
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, filepath.Base(file), f.ModTime, bytes.NewReader(f.Data))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.NewIO("listen", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher, err := NewManifestWatcher(s.cfg.ManifestPath, func(ev ManifestEvent) {
		s.hub.Broadcast(ev)
	})
	if err != nil {
		ln.Close()
		return errors.NewIO("watch", s.cfg.ManifestPath, err)
	}

	go s.hub.Run(ctx)
	go watcher.Run(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logging.ServerStartup("dev", ln.Addr().String(),
		"data_dir", s.cfg.DataDir,
		"data_prefix", s.prefix,
		"manifest", s.cfg.ManifestPath,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info("server_shutdown", "addr", ln.Addr().String())
	return nil
}
