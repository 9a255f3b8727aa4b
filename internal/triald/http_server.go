package triald

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aid2e/pipeline-core/pkg/logger"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *TrialStore
	Executor *TrialExecutor
}

func NewHTTPServer(store *TrialStore, executor *TrialExecutor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/trials", s.handleTrials)
	s.mux.HandleFunc("/v1/trials/", s.handleTrialByTag)
	s.mux.HandleFunc("/v1/evaluate", s.handleEvaluate)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTrials handles /v1/trials
func (s *HTTPServer) handleTrials(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTrial(w, r)
	case http.MethodGet:
		s.handleListTrials(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTrialByTag handles /v1/trials/{tag} and /v1/trials/{tag}:cancel
func (s *HTTPServer) handleTrialByTag(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/trials/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "trial tag is required")
		return
	}

	if strings.HasSuffix(path, ":cancel") {
		tag := strings.TrimSuffix(path, ":cancel")
		if r.Method == http.MethodPost {
			s.handleCancelTrial(w, tag)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetTrial(w, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateTrial handles POST /v1/trials: the trial is registered and
// started asynchronously; the response carries the minted tag so the
// caller can poll.
func (s *HTTPServer) handleCreateTrial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tag        string             `json:"tag,omitempty"`
		Parameters map[string]float64 `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Parameters) == 0 {
		s.writeError(w, http.StatusBadRequest, "parameters are required")
		return
	}

	t, err := s.store.Create(req.Tag, req.Parameters)
	if err != nil {
		switch {
		case errors.Is(err, ErrTrialExists):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidTag):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if _, err := s.Executor.Start(t.Tag); err != nil {
		// The trial registered but never ran; fail it so the record is
		// not stuck in the created state forever.
		s.store.Fail(t.Tag, err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("trial created", "tag", t.Tag)
	s.writeJSON(w, http.StatusCreated, map[string]any{"trial": t})
}

// handleListTrials handles GET /v1/trials
func (s *HTTPServer) handleListTrials(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	trials := s.store.List(limit)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"trials": trials,
		"count":  len(trials),
	})
}

// handleGetTrial handles GET /v1/trials/{tag}
func (s *HTTPServer) handleGetTrial(w http.ResponseWriter, tag string) {
	t, ok := s.store.Get(tag)
	if !ok {
		s.writeError(w, http.StatusNotFound, "trial not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"trial": t})
}

// handleCancelTrial handles POST /v1/trials/{tag}:cancel
func (s *HTTPServer) handleCancelTrial(w http.ResponseWriter, tag string) {
	t, err := s.Executor.Cancel(tag)
	if err != nil {
		switch {
		case errors.Is(err, ErrTrialNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrTagMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("trial cancelled (HTTP)", "tag", tag)
	s.writeJSON(w, http.StatusOK, map[string]any{"trial": t})
}

// handleEvaluate handles POST /v1/evaluate: the blocking optimizer-facing
// call. The response carries the scalar value of every extracted
// objective alongside the full trial record.
func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Tag        string             `json:"tag,omitempty"`
		Parameters map[string]float64 `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Parameters) == 0 {
		s.writeError(w, http.StatusBadRequest, "parameters are required")
		return
	}

	t, results, err := s.Executor.Evaluate(r.Context(), req.Tag, req.Parameters)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if t == nil {
			// The trial never registered: a request-level problem.
			status = http.StatusBadRequest
			if errors.Is(err, ErrTrialExists) {
				status = http.StatusConflict
			}
		}
		s.writeError(w, status, err.Error())
		return
	}

	logger.Info("evaluation complete", "tag", t.Tag, "status", t.Status)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"trial":      t,
		"objectives": results,
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
