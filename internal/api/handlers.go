package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/httputil"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/index"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/kinematics"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/query"
)

type handlers struct {
	svc    *query.Service
	logger *slog.Logger
}

// writeServiceError maps the core error taxonomy onto HTTP statuses.
func (h *handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, index.ErrInvalidQuery):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, index.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, index.ErrEmptyDataset):
		httputil.WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, kinematics.ErrInvalidVector):
		h.logger.Error("invalid vector reached calculation", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		h.logger.Error("query failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *handlers) comments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.Comments()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

func (h *handlers) header(w http.ResponseWriter, r *http.Request) {
	hdr, err := h.svc.Header()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, hdr)
}

func (h *handlers) metadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.svc.Metadata()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, md)
}

// intParam parses an optional non-negative integer query parameter.
// Absent parameters return nil; malformed syntax is a client error.
func intParam(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer, got %q", index.ErrInvalidQuery, name, raw)
	}
	return &n, nil
}

func (h *handlers) epochs(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	vectors, err := h.svc.Epochs(limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, vectors)
}

func (h *handlers) epoch(w http.ResponseWriter, r *http.Request) {
	sv, err := h.svc.Epoch(r.PathValue("epoch"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sv)
}

func (h *handlers) speed(w http.ResponseWriter, r *http.Request) {
	speed, err := h.svc.Speed(r.PathValue("epoch"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, speed)
}

func (h *handlers) location(w http.ResponseWriter, r *http.Request) {
	loc, err := h.svc.Location(r.Context(), r.PathValue("epoch"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loc)
}

func (h *handlers) now(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Now(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}
