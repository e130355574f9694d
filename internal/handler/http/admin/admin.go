// Package admin implements the thin scraper-control HTTP surface described
// in spec §6: trigger a tick, read scheduler status, initialize a new
// source, or delete an existing one's schedule. Grounded on the teacher's
// internal/handler/http/source package for the register-onto-mux and
// dto/respond idiom, narrowed from full source CRUD to the four scheduler
// operations this module actually needs.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"feedmill/internal/domain/entity"
	"feedmill/internal/handler/http/respond"
	"feedmill/internal/repository"
	"feedmill/internal/usecase/manager"
)

// Register wires the admin endpoints onto mux.
func Register(mux *http.ServeMux, mgr *manager.Manager, sources repository.SourceRepository) {
	h := &handlers{mgr: mgr, sources: sources}
	mux.HandleFunc("GET /sources/{id}/status", h.status)
	mux.HandleFunc("POST /sources/{id}/trigger", h.trigger)
	mux.HandleFunc("POST /sources", h.initialize)
	mux.HandleFunc("DELETE /sources/{id}", h.delete)
}

type handlers struct {
	mgr     *manager.Manager
	sources repository.SourceRepository
}

type statusResponse struct {
	SourceID   int64                  `json:"source_id"`
	State      entity.SchedulerState  `json:"state"`
	NextTickAt *string                `json:"next_tick_at,omitempty"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	sourceID, err := parseSourceID(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	st, err := h.mgr.Status(sourceID)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := statusResponse{SourceID: sourceID, State: st.State}
	if st.NextTickAt != nil {
		formatted := st.NextTickAt.Format("2006-01-02T15:04:05Z07:00")
		resp.NextTickAt = &formatted
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *handlers) trigger(w http.ResponseWriter, r *http.Request) {
	sourceID, err := parseSourceID(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	if err := h.mgr.Trigger(sourceID); err != nil {
		respond.SafeError(w, http.StatusNotFound, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

type initializeRequest struct {
	ID              int64  `json:"id"`
	URL             string `json:"url"`
	ScrapeFrequency int    `json:"scrape_frequency"`
}

func (h *handlers) initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	tier, _ := entity.CoerceTier(req.ScrapeFrequency)
	source := &entity.Source{
		ID:            req.ID,
		URL:           req.URL,
		Name:          req.URL,
		FrequencyTier: tier,
	}
	if err := source.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	existing, err := h.sources.Get(ctx, req.ID)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	if existing == nil {
		if err := h.sources.Create(ctx, source); err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	if err := h.mgr.Initialize(ctx, req.ID); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"status": "initialized"})
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	sourceID, err := parseSourceID(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	if err := h.mgr.Destroy(r.Context(), sourceID); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseSourceID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
