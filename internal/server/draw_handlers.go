package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/modules/occurrences"
	"github.com/aristath/lotofacil/internal/pipeline"
)

// DrawHandlers serves draws, occurrences, predictions and manual ingests
type DrawHandlers struct {
	store  Store
	runner Runner
	log    zerolog.Logger
}

// NewDrawHandlers creates the handlers
func NewDrawHandlers(store Store, runner Runner, log zerolog.Logger) *DrawHandlers {
	return &DrawHandlers{
		store:  store,
		runner: runner,
		log:    log.With().Str("handler", "draws").Logger(),
	}
}

// RegisterRoutes registers the routes under /api
func (h *DrawHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/draws", h.HandleListDraws)
	r.Get("/occurrences", h.HandleOccurrences)
	r.Get("/predictions", h.HandleListPredictions)
	r.Post("/predictions", h.HandleGeneratePredictions)
	r.Post("/ingest", h.HandleIngest)
}

// HandleListDraws returns stored draws, newest first
// GET /api/draws?limit=N
func (h *DrawHandlers) HandleListDraws(w http.ResponseWriter, r *http.Request) {
	draws := h.store.Load(r.Context())

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(h.log, w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(draws) {
			draws = draws[:limit]
		}
	}

	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{
		"backend": h.store.Name(),
		"count":   len(draws),
		"draws":   draws,
	})
}

// HandleOccurrences returns the occurrence report
// GET /api/occurrences
func (h *DrawHandlers) HandleOccurrences(w http.ResponseWriter, r *http.Request) {
	draws := h.store.Load(r.Context())
	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{
		"draws":       len(draws),
		"occurrences": occurrences.Report(draws),
	})
}

// HandleListPredictions returns stored predictions
// GET /api/predictions
func (h *DrawHandlers) HandleListPredictions(w http.ResponseWriter, r *http.Request) {
	preds := h.store.LoadPredictions(r.Context())
	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{
		"count":       len(preds),
		"predictions": preds,
	})
}

// HandleGeneratePredictions runs the prediction service on stored history
// POST /api/predictions
func (h *DrawHandlers) HandleGeneratePredictions(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.Run(r.Context(), pipeline.Options{Predict: true})
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, res)
}

// HandleIngest fetches the feed and persists new draws
// POST /api/ingest?force=true bypasses the once-per-day gate
func (h *DrawHandlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	res, err := h.runner.Run(r.Context(), pipeline.Options{Fetch: true, Force: force, IngestOnly: true})
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, res)
}

func (h *DrawHandlers) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedRecord):
		writeError(h.log, w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrGenerationExhausted):
		writeError(h.log, w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg("Run failed")
		writeError(h.log, w, http.StatusInternalServerError, err.Error())
	}
}
