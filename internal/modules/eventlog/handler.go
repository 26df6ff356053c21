package eventlog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/log", h.recent) // ?transid=&sessionid=&limit=
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f Filter
	f.TransID, _ = strconv.ParseInt(q.Get("transid"), 10, 64)
	f.SessionID, _ = strconv.ParseInt(q.Get("sessionid"), 10, 64)
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	entries, err := h.service.Recent(r.Context(), f)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
