// Package server exposes the grading pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abhisek/examiner/internal/feedback"
	"github.com/abhisek/examiner/internal/grading"
	"github.com/abhisek/examiner/internal/ingest"
	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MarkAnswerPath is the grading endpoint.
const MarkAnswerPath = "/api/mark-answer"

// ExtractionStatusHeader carries feedback.Status on successful responses.
const ExtractionStatusHeader = "X-Extraction-Status"

// genericError is the only error text a client ever sees.
const genericError = "failed to mark answer"

// Grader grades one submission.
type Grader interface {
	Grade(ctx context.Context, sub *ingest.Submission) (*feedback.Result, error)
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	grader          Grader
	maxDiagramBytes int64
}

// NewHandler creates a Handler. maxDiagramBytes <= 0 selects
// ingest.DefaultMaxDiagramBytes.
func NewHandler(g Grader, maxDiagramBytes int64) *Handler {
	return &Handler{grader: g, maxDiagramBytes: maxDiagramBytes}
}

// Routes returns the service mux wrapped in the request middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(MarkAnswerPath, h.MarkAnswer)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return withRequestContext(mux)
}

// MarkAnswer grades a multipart upload with an "answer" field and an
// optional "diagram" file.
func (h *Handler) MarkAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := clog.FromContext(ctx)

	sub, err := ingest.Parse(r, h.maxDiagramBytes)
	if errors.Is(err, ingest.ErrMethodNotAllowed) {
		log.With("method", r.Method).Info("rejecting non-POST request")
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		log.Errorf("reading upload: %v", err)
		respondError(w)
		return
	}

	log = log.With("answer_bytes", len(sub.Answer)).With("has_diagram", sub.Diagram != nil)
	res, err := h.grader.Grade(ctx, sub)
	if err != nil {
		var upstream *grading.UpstreamModelError
		if errors.As(err, &upstream) {
			log.With("call", upstream.Call).Errorf("model call failed: %v", upstream.Err)
		} else {
			log.Errorf("grading failed: %v", err)
		}
		respondError(w)
		return
	}

	log.With("status", string(res.Extraction)).With("records", len(res.Feedback)).
		With("diagram_feedback", res.DiagramFeedback != nil).Info("answer marked")
	w.Header().Set(ExtractionStatusHeader, string(res.Extraction))
	respondJSON(w, http.StatusOK, res)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter) {
	respondJSON(w, http.StatusInternalServerError, map[string]string{"error": genericError})
}
