package register

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/georgemunganga/tillcore/internal/modules/auth"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the register to the terminal front end. Every route
// acts as the authenticated user.
type Handler struct {
	reg *Register
	log *zap.Logger
}

func NewHandler(reg *Register, log *zap.Logger) *Handler { return &Handler{reg: reg, log: log} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/register", func(r chi.Router) {
		r.Use(h.messages)
		r.Post("/signon", h.signOn)
		r.Get("/state", h.state)
		r.Post("/sell", h.sell)
		r.Post("/pay", h.pay)
		r.Post("/refund", h.refund)
		r.Post("/void", h.void)
		r.Post("/defer", h.deferTrans)
		r.Post("/merge", h.merge)
		r.Post("/split", h.split)
		r.Post("/freedrinks", h.freeDrinks)
		r.Post("/cancel", h.cancel)
		r.Get("/recallable", h.recallable)
		r.Post("/recall/{id}", h.recall)
		r.Get("/lines/{id}/pullthru", h.pullThruDue)
		r.Post("/lines/{id}/pullthru", h.pullThru)
		r.Post("/lines/{id}/usestock", h.useStock)
	})
}

// messages hands over any message queued for the user in a response
// header.
func (h *Handler) messages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.UserID(r.Context()); ok {
			msg, err := h.reg.Message(r.Context(), id)
			if err != nil {
				h.log.Warn("could not fetch user message", zap.Int64("user", id), zap.Error(err))
			} else if msg != "" {
				w.Header().Set("X-Till-Message", strconv.Quote(msg))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) signOn(w http.ResponseWriter, r *http.Request) {
	st, err := h.reg.SignOn(r.Context(), userID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	st, err := h.reg.State(r.Context(), userID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (h *Handler) sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if !decode(w, r, &req) {
		return
	}
	req.UserID = userID(r)
	res, err := h.reg.Sell(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if !decode(w, r, &req) {
		return
	}
	req.UserID = userID(r)
	res, err := h.reg.Pay(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if !decode(w, r, &req) {
		return
	}
	req.UserID = userID(r)
	res, err := h.reg.Refund(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TransID int64   `json:"trans_id,omitempty"`
		LineIDs []int64 `json:"line_ids"`
	}
	if !decode(w, r, &body) {
		return
	}
	res, err := h.reg.Void(r.Context(), userID(r), body.TransID, body.LineIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) deferTrans(w http.ResponseWriter, r *http.Request) {
	res, err := h.reg.Defer(r.Context(), userID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) merge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Into int64 `json:"into"`
	}
	if !decode(w, r, &body) {
		return
	}
	t, err := h.reg.Merge(r.Context(), userID(r), body.Into)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, t)
}

func (h *Handler) split(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LineIDs []int64 `json:"line_ids"`
		Notes   string  `json:"notes"`
	}
	if !decode(w, r, &body) {
		return
	}
	t, err := h.reg.Split(r.Context(), userID(r), body.LineIDs, body.Notes)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, t)
}

func (h *Handler) freeDrinks(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.FreeDrinks(r.Context(), userID(r)); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Cancel(r.Context(), userID(r)); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recallable(w http.ResponseWriter, r *http.Request) {
	list, err := h.reg.Recallable(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (h *Handler) recall(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.reg.Recall(r.Context(), userID(r), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, t)
}

func (h *Handler) pullThruDue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.reg.PullThruDue(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (h *Handler) pullThru(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	so, err := h.reg.PullThru(r.Context(), userID(r), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, so)
}

func (h *Handler) useStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		StockID    int64  `json:"stock_id"`
		FinishCode string `json:"finish_code,omitempty"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := h.reg.UseStock(r.Context(), userID(r), id, body.StockID, body.FinishCode); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userID(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
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
