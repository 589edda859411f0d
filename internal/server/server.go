// Package server exposes a translator over HTTP.
//
//	GET  /               HTML page with a text box and a Translate button
//	POST /               form submission from that page
//	POST /api/translate  {"text": "..."} -> {"translation": "..."}
//	GET  /healthz        liveness probe
package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Translator is the translation function the server exposes.
type Translator interface {
	Translate(sentence string) (string, error)
}

// Options configures timeouts. Zero values fall back to the defaults of DefaultOptions.
type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultOptions returns 10s read, 60s write and 10s shutdown timeouts.
func DefaultOptions() Options {
	return Options{
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves translation requests.
type Server struct {
	tr     Translator
	logger *slog.Logger
	opts   Options
	page   *template.Template
}

// New returns a server for tr. A nil logger discards request logs.
func New(tr Translator, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	def := DefaultOptions()
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = def.ReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = def.ShutdownTimeout
	}
	return &Server{tr: tr, logger: logger, opts: opts, page: pageTemplate}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleForm)
	mux.HandleFunc("POST /api/translate", s.handleAPI)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// Serve accepts connections on l until ctx is done, then shuts down gracefully,
// letting in-flight requests finish within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()
	s.logger.Info("server listening", "addr", l.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

type pageData struct {
	Text        string
	Translation string
	Error       string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{Error: "invalid form"})
		return
	}
	data := pageData{Text: r.PostForm.Get("text")}
	out, err := s.tr.Translate(data.Text)
	if err != nil {
		s.logger.Error("translation failed", "err", err)
		data.Error = "translation failed"
		s.render(w, http.StatusInternalServerError, data)
		return
	}
	data.Translation = out
	s.render(w, http.StatusOK, data)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("render page", "err", err)
	}
}

// TranslateRequest is the body of POST /api/translate.
type TranslateRequest struct {
	Text string `json:"text"`
}

// TranslateResponse is the success body of POST /api/translate.
type TranslateResponse struct {
	Translation string `json:"translation"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req TranslateRequest
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	out, err := s.tr.Translate(req.Text)
	if err != nil {
		s.logger.Error("translation failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "translation failed"})
		return
	}
	writeJSON(w, http.StatusOK, TranslateResponse{Translation: out})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", r.RemoteAddr)
	})
}
