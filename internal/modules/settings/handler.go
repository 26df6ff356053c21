package settings

import (
	"encoding/json"
	"net/http"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
)

type Handler struct{ service *Service }

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/settings", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{key}", h.get)
		r.Put("/{key}", h.set)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.service.Set(r.Context(), key, body.Value); err != nil {
		respondError(w, err)
		return
	}
	s, err := h.service.Get(r.Context(), key)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

func respondError(w http.ResponseWriter, err error) {
	respond(w, tillerr.HTTPStatus(err), tillerr.BodyOf(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
