package stockline

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/stocklines", func(r chi.Router) {
		r.Get("/", h.list) // ?location=
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Post("/{id}/usestock", h.useStock)
		r.Get("/{id}/sale", h.calculateSale) // ?qty=
		r.Get("/{id}/restock", h.restockPlan)
		r.Post("/{id}/restock", h.commitRestock)
		r.Get("/{id}/pullthru", h.pullThruDue)
		r.Post("/{id}/pullthru", h.recordPullThru)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.List(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, lines)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sl, err := h.service.Create(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, sl)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sl, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sl)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sl, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sl)
}

func (h *Handler) useStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		StockID    int64  `json:"stock_id"`
		FinishCode string `json:"finishcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.UseStock(r.Context(), id, body.StockID, body.FinishCode); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) calculateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	qty, err := decimal.NewFromString(r.URL.Query().Get("qty"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid qty"})
		return
	}
	alloc, err := h.service.CalculateSale(r.Context(), id, qty)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, alloc)
}

func (h *Handler) restockPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	moves, err := h.service.RestockPlan(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, moves)
}

func (h *Handler) commitRestock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	moves, err := h.service.CommitRestock(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, moves)
}

func (h *Handler) pullThruDue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := h.service.PullThruDue(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, status)
}

func (h *Handler) recordPullThru(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.service.RecordPullThru(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, out)
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
