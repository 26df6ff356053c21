package keyboard

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/keyboard", func(r chi.Router) {
		r.Get("/keys/{keycode}", h.resolve) // ?menukey=
		r.Get("/keys/{keycode}/bindings", h.bindings)
		r.Put("/bindings", h.setBinding)
		r.Delete("/bindings/{id}", h.deleteBinding)
		r.Get("/barcodes/{code}", h.resolveBarcode)
		r.Put("/barcodes", h.setBarcode)
		r.Delete("/barcodes/{code}", h.deleteBarcode)
		r.Get("/keycaps", h.listKeycaps)
		r.Put("/keycaps", h.setKeycap)
		r.Get("/plus", h.listPLUs)
		r.Post("/plus", h.createPLU)
		r.Get("/plus/{id}", h.getPLU)
		r.Put("/plus/{id}", h.updatePLU)
	})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Resolve(r.Context(), chi.URLParam(r, "keycode"), r.URL.Query().Get("menukey"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) bindings(w http.ResponseWriter, r *http.Request) {
	bs, err := h.service.Bindings(r.Context(), chi.URLParam(r, "keycode"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, bs)
}

func (h *Handler) setBinding(w http.ResponseWriter, r *http.Request) {
	var b Binding
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	saved, err := h.service.SetBinding(r.Context(), b)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, saved)
}

func (h *Handler) deleteBinding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBinding(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolveBarcode(w http.ResponseWriter, r *http.Request) {
	tgt, err := h.service.ResolveBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, tgt)
}

func (h *Handler) setBarcode(w http.ResponseWriter, r *http.Request) {
	var b Barcode
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.SetBarcode(r.Context(), b); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteBarcode(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBarcode(r.Context(), chi.URLParam(r, "code")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listKeycaps(w http.ResponseWriter, r *http.Request) {
	ks, err := h.service.ListKeycaps(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, ks)
}

func (h *Handler) setKeycap(w http.ResponseWriter, r *http.Request) {
	var k Keycap
	if err := json.NewDecoder(r.Body).Decode(&k); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.SetKeycap(r.Context(), k); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPLUs(w http.ResponseWriter, r *http.Request) {
	ps, err := h.service.ListPLUs(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, ps)
}

func (h *Handler) createPLU(w http.ResponseWriter, r *http.Request) {
	var p PLU
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	created, err := h.service.CreatePLU(r.Context(), p)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (h *Handler) getPLU(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetPLU(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) updatePLU(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p PLU
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p.ID = id
	updated, err := h.service.UpdatePLU(r.Context(), p)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, updated)
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
