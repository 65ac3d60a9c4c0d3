// Package server exposes the broker over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/scoregate/pkg/broker"
	"github.com/pario-ai/scoregate/pkg/config"
	"github.com/pario-ai/scoregate/pkg/extract"
	"github.com/pario-ai/scoregate/pkg/models"
	"github.com/pario-ai/scoregate/pkg/provider"
	"github.com/pario-ai/scoregate/pkg/queue"
	"github.com/pario-ai/scoregate/pkg/secure"
)

const (
	// EncryptedHeader marks a score or optimize request whose fields are ivHex:cipherHex.
	EncryptedHeader = "X-Scoregate-Encrypted"
	// CacheHeader reports whether a result was served from cache.
	CacheHeader = "X-Scoregate-Cache"

	maxScoreBody  = 10 << 20
	drainTimeout  = 30 * time.Second
	shutdownGrace = 5 * time.Second
)

// Broker is the scoring backend the server fronts.
type Broker interface {
	Submit(ctx context.Context, candidate, requirement string) (broker.Response, error)
	Optimize(ctx context.Context, candidate, requirement string, missing []string) (models.OptimizeResult, error)
	Status() models.Status
	Close(ctx context.Context) error
}

// Server is the scoregate HTTP server.
type Server struct {
	cfg       *config.Config
	broker    Broker
	extractor *extract.Extractor
	cipher    *secure.Cipher
	mux       *http.ServeMux
	handler   http.Handler
}

// New creates a Server. c may be nil, in which case encrypted requests are rejected.
func New(cfg *config.Config, b Broker, x *extract.Extractor, c *secure.Cipher) *Server {
	s := &Server{
		cfg:       cfg,
		broker:    b,
		extractor: x,
		cipher:    c,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("/v1/score", s.handleScore)
	s.mux.HandleFunc("/v1/optimize", s.handleOptimize)
	s.mux.HandleFunc("/v1/extract", s.handleExtract)
	s.mux.HandleFunc("/v1/status", s.handleStatus)
	s.handler = logRequests(securityHeaders(s.mux))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down when ctx is cancelled.
// Admitted jobs are drained before it returns.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("listen", s.cfg.Listen).Info("[SERVER] Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logrus.Info("[SERVER] Shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err := srv.Shutdown(shutCtx)

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
		defer cancelDrain()
		if derr := s.broker.Close(drainCtx); derr != nil {
			logrus.WithError(derr).Warn("[SERVER] Queue not fully drained")
		}
		return err
	case err := <-errCh:
		return err
	}
}

type scoreRequest struct {
	Candidate   string `json:"candidate"`
	Requirement string `json:"requirement"`
}

type scoreResponse struct {
	broker.Response
	Status string `json:"status"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScoreBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	r.Body.Close()

	var req scoreRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if r.Header.Get(EncryptedHeader) == "1" {
		if !s.decrypt(w, &req) {
			return
		}
	}

	resp, err := s.broker.Submit(r.Context(), req.Candidate, req.Requirement)
	if err != nil {
		var ve *broker.ValidationError
		switch {
		case errors.As(err, &ve):
			writeJSONError(w, http.StatusBadRequest, ve.Error())
			return
		case errors.Is(err, queue.ErrClosed):
			writeJSONError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		case r.Context().Err() != nil:
			// client went away; nothing useful to write
			return
		default:
			logrus.WithError(err).Error("[SERVER] Scoring failed, serving local result")
			resp = broker.Response{ScoreResult: provider.LocalScore(req.Candidate, req.Requirement)}
		}
	}

	out := scoreResponse{Response: resp, Status: "ok"}
	if resp.Degraded() {
		out.Status = "degraded"
	}
	cacheState := "miss"
	if resp.Cached {
		cacheState = "hit"
	}
	w.Header().Set(CacheHeader, cacheState)
	writeJSON(w, http.StatusOK, out)
}

// decrypt replaces the request fields with their plaintext. It writes the
// error response and returns false when they cannot be decrypted.
func (s *Server) decrypt(w http.ResponseWriter, req *scoreRequest) bool {
	if s.cipher == nil {
		writeJSONError(w, http.StatusBadRequest, "encryption not configured")
		return false
	}
	var err error
	if req.Candidate, err = s.cipher.Decrypt(req.Candidate); err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to decrypt candidate")
		return false
	}
	if req.Requirement, err = s.cipher.Decrypt(req.Requirement); err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to decrypt requirement")
		return false
	}
	return true
}

type optimizeRequest struct {
	scoreRequest
	MissingKeywords []string `json:"missingKeywords"`
}

type optimizeResponse struct {
	models.OptimizeResult
	Status string `json:"status"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScoreBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	r.Body.Close()

	var req optimizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if r.Header.Get(EncryptedHeader) == "1" {
		if !s.decrypt(w, &req.scoreRequest) {
			return
		}
	}

	res, err := s.broker.Optimize(r.Context(), req.Candidate, req.Requirement, req.MissingKeywords)
	if err != nil {
		var ve *broker.ValidationError
		switch {
		case errors.As(err, &ve):
			writeJSONError(w, http.StatusBadRequest, ve.Error())
			return
		case r.Context().Err() != nil:
			return
		default:
			logrus.WithError(err).Error("[SERVER] Optimize failed, returning original text")
			res = provider.LocalOptimize(req.Candidate, req.MissingKeywords)
		}
	}

	out := optimizeResponse{OptimizeResult: res, Status: "ok"}
	if res.Degraded() {
		out.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// leave room for multipart framing around the file
	r.Body = http.MaxBytesReader(w, r.Body, s.extractor.MaxBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusBadRequest, "file exceeds size limit")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.extractor.MaxBytes+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	text, err := s.extractor.Extract(header.Filename, data)
	if err != nil {
		var ee *extract.ExtractionError
		if errors.As(err, &ee) {
			writeJSONError(w, http.StatusBadRequest, ee.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type statusResponse struct {
	Health string `json:"status"`
	models.Status
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Health:    "healthy",
		Status:    s.broker.Status(),
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("[SERVER] Failed to write response")
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"scoregate_error","code":%d}}`, message, code)
}
