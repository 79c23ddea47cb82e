package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BinaryCat17/RapidServer/internal/logger"
	"github.com/BinaryCat17/RapidServer/internal/static"
)

const (
	readLimit = 1 << 20

	// mainPage is the UI entry point served under /main.
	mainPage = "RapidControl.html"
)

// Config holds the transport settings of the server.
type Config struct {
	// ListenAddress is the host:port the HTTP listener binds to.
	ListenAddress string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// EnableMetrics exposes Prometheus metrics under /metrics.
	EnableMetrics bool
}

// Server is the HTTP front of the control plane: it upgrades /ws to the
// WebSocket line protocol and serves the UI assets from the static cache.
type Server struct {
	cfg   Config
	core  *Core
	files *static.Cache

	httpServer   *http.Server
	upgrader     websocket.Upgrader
	shutdownOnce sync.Once
}

// New creates a server over a core and a static file cache.
func New(cfg Config, core *Core, files *static.Cache) *Server {
	s := &Server{
		cfg:   cfg,
		core:  core,
		files: files,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The protocol carries its own sign_in handshake; the
			// upgrade itself is unauthenticated.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWS)
	r.Get("/main", s.handleMain)
	if cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/*", s.handleStatic)

	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: r,
	}
	return s
}

// Start runs the listener until it fails or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the listener down gracefully. Idempotent.
func (s *Server) Stop() error {
	var err error
	s.shutdownOnce.Do(func() {
		logger.Info("server shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

// handleWS upgrades the request and runs the connection's read loop until
// the socket closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	ws.SetReadLimit(readLimit)

	conn := NewConn(ws, r.RemoteAddr)
	s.core.HandleOpen(conn)
	// Teardown runs on a fresh context: the request context dies with the
	// socket and must not abort the session cleanup.
	defer func() {
		conn.Close()
		s.core.HandleClose(context.Background(), conn)
	}()

	for {
		msgType, frame, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "conn", conn.ID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.core.HandleMessage(r.Context(), conn, frame)
	}
}

func (s *Server) handleMain(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, mainPage)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, chi.URLParam(r, "*"))
}

// serveFile writes the cached file contents. A failed read is reported in
// the response body with status 200, keeping the UI's error surface on the
// page itself.
func (s *Server) serveFile(w http.ResponseWriter, path string) {
	data, err := s.files.File(path)
	if err != nil {
		logger.Warn("static file read failed", "path", path, "error", err)
		_, _ = w.Write([]byte("cannot open file: " + path))
		return
	}
	_, _ = w.Write(data)
}

// requestLogger logs one line per completed HTTP request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
