package vat

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/vat", func(r chi.Router) {
		r.Get("/bands", h.listBands)
		r.Post("/bands", h.createBand)
		r.Post("/bands/{band}/rates", h.setRate)
		r.Get("/bands/{band}/rate", h.rateAt) // ?date=2006-01-02, default today
	})
}

func (h *Handler) listBands(w http.ResponseWriter, r *http.Request) {
	bands, err := h.service.ListBands(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, bands)
}

func (h *Handler) createBand(w http.ResponseWriter, r *http.Request) {
	var b Band
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	created, err := h.service.CreateBand(r.Context(), b.Band, b.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) setRate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active   time.Time       `json:"active"`
		Rate     decimal.Decimal `json:"rate"`
		Business int64           `json:"business"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	rate, err := h.service.SetRate(r.Context(), chi.URLParam(r, "band"), body.Active, body.Rate, body.Business)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, rate)
}

func (h *Handler) rateAt(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
			return
		}
		date = d
	}
	rate, err := h.service.RateAt(r.Context(), chi.URLParam(r, "band"), date)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, rate)
}

func respondError(w http.ResponseWriter, err error) {
	respond(w, tillerr.HTTPStatus(err), tillerr.BodyOf(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
