package inventory

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
)

// Handler exposes deliveries and stock items over HTTP.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Post("/deliveries", h.createDelivery)           // POST   /api/v1/inventory/deliveries
		r.Get("/deliveries", h.listDeliveries)            // GET    /api/v1/inventory/deliveries?unchecked=true
		r.Get("/deliveries/{id}", h.getDelivery)          // GET    /api/v1/inventory/deliveries/{id}
		r.Post("/deliveries/{id}/items", h.addItems)      // POST   /api/v1/inventory/deliveries/{id}/items
		r.Post("/deliveries/{id}/check", h.checkDelivery) // POST   /api/v1/inventory/deliveries/{id}/check
		r.Delete("/deliveries/{id}", h.deleteDelivery)    // DELETE /api/v1/inventory/deliveries/{id}
		r.Get("/stock/{id}", h.getItem)                   // GET    /api/v1/inventory/stock/{id}
		r.Post("/stock/{id}/waste", h.recordWaste)        // POST   /api/v1/inventory/stock/{id}/waste
		r.Post("/stock/{id}/finish", h.finishItem)        // POST   /api/v1/inventory/stock/{id}/finish
		r.Get("/stocktypes/{id}/onsale", h.stockOnSale)   // GET    /api/v1/inventory/stocktypes/{id}/onsale
	})
}

func (h *Handler) createDelivery(w http.ResponseWriter, r *http.Request) {
	var req CreateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	d, err := h.service.CreateDelivery(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, d)
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.ListDeliveries(r.Context(), r.URL.Query().Get("unchecked") == "true")
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, ds)
}

func (h *Handler) getDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDelivery(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, d)
}

func (h *Handler) addItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AddItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req.DeliveryID = id
	items, err := h.service.AddItems(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, items)
}

func (h *Handler) checkDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.CheckDelivery(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDelivery(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) recordWaste(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req WasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req.StockID = id
	out, err := h.service.RecordWaste(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, out)
}

func (h *Handler) finishItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		FinishCode string `json:"finishcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.FinishItem(r.Context(), id, body.FinishCode); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stockOnSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := h.service.StockOnSale(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, items)
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
