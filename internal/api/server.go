// Package api serves the conversion engine over HTTP for the web UI.
package api

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ddlconv/ddlconv/internal/engine"
	"github.com/ddlconv/ddlconv/internal/ws"
)

// Server is the REST API server for the web UI.
type Server struct {
	engine   *engine.Engine
	hub      *ws.Hub
	logger   *slog.Logger
	port     int
	server   *http.Server
	staticFS fs.FS
	devMode  bool
}

// Option configures the API server.
type Option func(*Server)

// WithStaticFS sets the filesystem holding the web UI.
func WithStaticFS(fsys fs.FS) Option {
	return func(s *Server) {
		s.staticFS = fsys
	}
}

// WithDevMode enables CORS for development.
func WithDevMode(dev bool) Option {
	return func(s *Server) {
		s.devMode = dev
	}
}

// WithHub sets the WebSocket hub receiving job progress.
func WithHub(hub *ws.Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// New creates a new API server.
func New(eng *engine.Engine, logger *slog.Logger, port int, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		logger: logger,
		port:   port,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub != nil {
		eng.Subscribe(s.broadcastProgress)
		s.hub.SetSnapshot(func() (any, error) {
			return HistoryResponse{History: eng.History()}, nil
		})
	}
	return s
}

// Handler returns the complete HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = requestLogger(s.logger, mux)
	if s.devMode {
		handler = s.corsMiddleware(handler)
	}
	if s.hub == nil {
		return handler
	}

	// The websocket upgrade needs the raw ResponseWriter.
	outer := http.NewServeMux()
	outer.HandleFunc("GET /api/ws", s.hub.HandleWebSocket)
	outer.Handle("/", handler)
	return outer
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting web UI server", "port", s.port, "dev_mode", s.devMode)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/process", s.handleProcess)
	mux.HandleFunc("GET /api/status/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/download/{name...}", s.handleDownload)
	mux.HandleFunc("GET /api/download-all", s.handleDownloadAll)
	mux.HandleFunc("GET /api/artifacts", s.handleArtifacts)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/cache/clear", s.handleClearCache)
	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/registry", s.handleRegistryList)

	if s.staticFS != nil {
		mux.Handle("/", s.staticHandler())
	}
}

// staticHandler serves the web UI. Unknown paths fall back to index.html.
func (s *Server) staticHandler() http.Handler {
	fileServer := http.FileServer(http.FS(s.staticFS))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if f, err := s.staticFS.Open(path); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) broadcastProgress(p engine.Progress) {
	typ := ws.MsgJobProgress
	if p.Status == engine.JobCompleted {
		typ = ws.MsgJobCompleted
	}
	s.hub.BroadcastJSON(typ, p)
}
