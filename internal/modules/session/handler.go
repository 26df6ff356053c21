package session

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/georgemunganga/tillcore/internal/modules/auth"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/", h.list) // ?limit=
		r.Post("/", h.open)
		r.Get("/current", h.current)
		r.Post("/current/close", h.close)
		r.Get("/{id}/totals", h.totals)
		r.Put("/{id}/totals", h.recordTotals)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.List(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date,omitempty"` // YYYY-MM-DD
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	var date *time.Time
	if body.Date != "" {
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
			return
		}
		date = &d
	}
	userID, _ := auth.UserID(r.Context())
	sess, err := h.service.Open(r.Context(), date, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, sess)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Current(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	sess, err := h.service.Close(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Totals(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, t)
}

func (h *Handler) recordTotals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var totals []RecordedTotal
	if err := json.NewDecoder(r.Body).Decode(&totals); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	userID, _ := auth.UserID(r.Context())
	t, err := h.service.RecordTotals(r.Context(), id, totals, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, t)
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
