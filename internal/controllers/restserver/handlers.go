package restserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chrissnell/quenchfinder/internal/batch"
	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/chrissnell/quenchfinder/internal/storage"
	"github.com/chrissnell/quenchfinder/pkg/responseformat"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var (
	errBadRunID    = errors.New("invalid run id")
	errBadGalaxyID = errors.New("invalid galaxy id")
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.controller.logger.Errorf("error encoding response for %s: %v", req.URL.Path, err)
	}
}

// writeError maps store errors onto HTTP statuses
func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	message := ""
	switch {
	case errors.Is(err, errBadRunID), errors.Is(err, errBadGalaxyID):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.controller.logger.Errorf("error serving %s: %v", req.URL.Path, err)
		message = "error querying result store"
	}
	h.formatter.WriteError(w, req, status, err, message)
}

func runID(req *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		return uuid.Nil, errBadRunID
	}
	return id, nil
}

// ListRuns handles /runs
func (h *Handlers) ListRuns(w http.ResponseWriter, req *http.Request) {
	runs, err := h.controller.store.ListRuns(req.Context())
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	if runs == nil {
		runs = []batch.Summary{}
	}
	h.write(w, req, RunList{Count: len(runs), Runs: runs})
}

// GetRun handles /runs/{id}
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	id, err := runID(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	run, err := h.controller.store.GetRun(req.Context(), id)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, run)
}

// GetRunStats handles /runs/{id}/stats: outcome counts and episode duration statistics
func (h *Handlers) GetRunStats(w http.ResponseWriter, req *http.Request) {
	id, err := runID(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	records, err := h.controller.store.ListGalaxies(req.Context(), id)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	outcomes := make(map[string]int)
	galaxies := make([]*galaxy.Galaxy, 0, len(records))
	for _, rec := range records {
		outcomes[string(rec.Outcome)]++
		galaxies = append(galaxies, &galaxy.Galaxy{ID: rec.GalaxyID, QuenchEpisodes: rec.QuenchEpisodes})
	}

	h.write(w, req, RunStats{
		RunID:    id.String(),
		Outcomes: outcomes,
		Episodes: batch.Stats(galaxies),
	})
}

// ListGalaxies handles /runs/{id}/galaxies. outcome=quenched filters by outcome.
func (h *Handlers) ListGalaxies(w http.ResponseWriter, req *http.Request) {
	id, err := runID(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	records, err := h.controller.store.ListGalaxies(req.Context(), id)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	if want := req.URL.Query().Get("outcome"); want != "" {
		filtered := records[:0]
		for _, rec := range records {
			if string(rec.Outcome) == want {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	if records == nil {
		records = []storage.GalaxyRecord{}
	}

	h.write(w, req, GalaxyList{RunID: id.String(), Count: len(records), Galaxies: records})
}

// GetGalaxy handles /runs/{id}/galaxies/{gid}
func (h *Handlers) GetGalaxy(w http.ResponseWriter, req *http.Request) {
	id, err := runID(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	gid, err := strconv.Atoi(mux.Vars(req)["gid"])
	if err != nil {
		h.writeError(w, req, errBadGalaxyID)
		return
	}

	rec, err := h.controller.store.GetGalaxy(req.Context(), id, gid)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, rec)
}

// GetHealth handles /health
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{Status: "healthy"}
	status := http.StatusOK

	if err := h.controller.store.Ping(req.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.controller.health != nil {
		resp.Stores = h.controller.health.GetAllHealth()
	}

	if err := h.formatter.WriteStatus(w, req, status, resp, nil); err != nil {
		h.controller.logger.Errorf("error encoding health response: %v", err)
	}
}
