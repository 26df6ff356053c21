package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/georgemunganga/tillcore/internal/modules/auth"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
)

// Handler exposes payment HTTP endpoints. Taking payments goes through
// the register; these routes cover lookups and pending payments.
type Handler struct {
	service      Service
	pollInterval time.Duration
}

func NewHandler(service Service, pollInterval time.Duration) *Handler {
	return &Handler{service: service, pollInterval: pollInterval}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/paytypes", h.listPayTypes)
		r.Get("/totals/{sessionID}", h.sessionTotals)
		r.Get("/{id}", h.get)
		// Poll the driver once
		r.Post("/{id}/resume", h.resume)
		// Block until the payment finishes, up to ?timeout=
		r.Post("/{id}/wait", h.wait)
		r.Post("/{id}/cancel", h.cancel)
	})
}

func (h *Handler) listPayTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPayTypes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (h *Handler) sessionTotals(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	totals, err := h.service.SessionTotals(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, totals)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Resume(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) wait(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	timeout := 30 * time.Second
	if v := r.URL.Query().Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid timeout"})
			return
		}
		timeout = d
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	res, err := h.service.Wait(ctx, id, h.pollInterval)
	if err == context.DeadlineExceeded && res != nil {
		// Still pending; the client calls again.
		respond(w, http.StatusAccepted, res)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, _ := auth.UserID(r.Context())
	if err := h.service.RequestCancel(r.Context(), id, userID); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusAccepted, map[string]string{"status": "cancel requested"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func respondError(w http.ResponseWriter, err error) {
	respond(w, tillerr.HTTPStatus(err), tillerr.BodyOf(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
