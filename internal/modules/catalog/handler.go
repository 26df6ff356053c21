package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Handler exposes the stock catalog over HTTP.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/departments", h.listDepartments)
		r.Post("/departments", h.createDepartment)
		r.Post("/units", h.createUnit)
		r.Get("/units/{id}/stockunits", h.listStockUnits)
		r.Post("/stockunits", h.createStockUnit)
		r.Post("/stocktypes", h.createStockType)
		r.Get("/stocktypes", h.searchStockTypes) // ?manufacturer=&name=
		r.Get("/stocktypes/{id}", h.getStockType)
		r.Put("/stocktypes/{id}/price", h.reprice)
		r.Put("/stocktypes/{id}/archived", h.archive)
	})
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.service.ListDepartments(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, depts)
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	var d Department
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	created, err := h.service.CreateDepartment(r.Context(), d)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var u Unit
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	created, err := h.service.CreateUnit(r.Context(), u)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) listStockUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	units, err := h.service.ListStockUnits(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, units)
}

func (h *Handler) createStockUnit(w http.ResponseWriter, r *http.Request) {
	var su StockUnit
	if err := json.NewDecoder(r.Body).Decode(&su); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	created, err := h.service.CreateStockUnit(r.Context(), su)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) createStockType(w http.ResponseWriter, r *http.Request) {
	var req CreateStockTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	st, err := h.service.CreateStockType(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, st)
}

func (h *Handler) searchStockTypes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	types, err := h.service.FuzzyLookup(r.Context(), q.Get("manufacturer"), q.Get("name"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, types)
}

func (h *Handler) getStockType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	info, err := h.service.Describe(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, info)
}

func (h *Handler) reprice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Price *decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	st, err := h.service.Reprice(r.Context(), id, body.Price)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.Archive(r.Context(), id, body.Archived); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
