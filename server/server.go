// Package server exposes document analysis over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/heathj/pagecheck/config"
	"github.com/heathj/pagecheck/fetch"
	"github.com/heathj/pagecheck/parser"
	"github.com/heathj/pagecheck/report"
	"github.com/heathj/pagecheck/selector"
)

// Fetcher retrieves the HTML behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Server answers analysis requests.
type Server struct {
	cfg     config.ServerConfig
	preds   []selector.Predicate
	fetcher Fetcher
	log     *logrus.Logger
	router  *chi.Mux
}

// New builds the router. A nil logger means the standard logrus logger.
func New(cfg config.ServerConfig, preds config.Predicates, f Fetcher, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.Default().Server.MaxBodyBytes
	}
	s := &Server{
		cfg:     cfg,
		preds:   preds.Build(),
		fetcher: f,
		log:     log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)

	s.router = r
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("server started")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "server error")
	case <-ctx.Done():
	}

	s.log.Info("stopping server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to stop server")
	}
	return nil
}

// AnalyzeRequest is the body of POST /api/analyze. Exactly one of URL and
// HTML must be set.
type AnalyzeRequest struct {
	URL  string `json:"url,omitempty"`
	HTML string `json:"html,omitempty"`
}

// AnalyzeResponse carries either the report or the error message.
type AnalyzeResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
	*report.Report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze parses the posted document, or fetches it first when a URL
// is given, and runs the configured predicates over it.
// POST /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("request_id", middleware.GetReqID(r.Context()))

	var req AnalyzeRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "", errors.Wrap(err, "invalid request body"))
		return
	}
	if (req.URL == "") == (req.HTML == "") {
		s.fail(w, http.StatusBadRequest, req.URL, errors.New("exactly one of url and html is required"))
		return
	}

	html := req.HTML
	if req.URL != "" {
		var err error
		html, err = s.fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Cause(err) == fetch.ErrInvalidURL {
				status = http.StatusBadRequest
			}
			log.WithError(err).WithField("url", req.URL).Warn("fetch failed")
			s.fail(w, status, req.URL, err)
			return
		}
	}

	rep := report.Run(parser.Parse(html, parser.WithLogger(s.log)), s.preds)
	log.WithFields(logrus.Fields{
		"url":      req.URL,
		"elements": rep.Elements,
		"matches":  rep.Total(),
	}).Info("analyzed document")

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Success: true,
		URL:     req.URL,
		Report:  &rep,
	})
}

func (s *Server) fail(w http.ResponseWriter, status int, url string, err error) {
	writeJSON(w, status, AnalyzeResponse{
		Success: false,
		URL:     url,
		Error:   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request through logrus.
func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.WithFields(logrus.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start),
				}).Debug("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
