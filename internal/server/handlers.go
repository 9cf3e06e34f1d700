package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/michaelbrown/plotbox/internal/catalog"
	"github.com/michaelbrown/plotbox/internal/sandbox"
	"github.com/michaelbrown/plotbox/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Execution handlers ---

type executeRequest struct {
	Code string `json:"code"`
}

type executeResponse struct {
	sandbox.Record
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	res := s.exec.Run(r.Context(), sandbox.Request{Source: req.Code})

	resp := executeResponse{Record: sandbox.Encode(res)}

	if s.store != nil {
		run := runFromResult(req.Code, res)
		if err := s.store.CreateRun(r.Context(), run); err != nil {
			log.Printf("failed to save run: %v", err)
		} else {
			resp.RunID = run.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// runFromResult builds a persistable record from an execution result.
func runFromResult(source string, res *sandbox.Result) *storage.Run {
	run := &storage.Run{
		ID:     uuid.New().String(),
		Source: source,
		Status: storage.StatusOK,
		Output: res.Output,
		Plot:   res.Image,
	}
	if !res.Success {
		run.ErrKind = res.ErrKind
		run.Error = res.ErrMessage
		switch res.ErrKind {
		case sandbox.ErrSyntax, sandbox.ErrValidation:
			run.Status = storage.StatusRejected
		default:
			run.Status = storage.StatusError
		}
	}
	return run
}

// --- Catalog handlers ---

func (s *Server) handleListFunctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Functions())
}

func (s *Server) handleSampleData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.SampleData())
}

// --- Run history handlers ---

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	opts := storage.RunListOptions{}
	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = storage.RunStatus(status)
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "run not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetPlot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "run not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if len(run.Plot) == 0 {
		writeError(w, http.StatusNotFound, "run has no plot")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(run.Plot)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "run not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
