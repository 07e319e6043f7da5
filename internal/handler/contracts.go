package handler

import (
	"net/http"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security/middleware"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

type contractsHandler struct {
	responder
	contracts *service.ContractService
}

func (h *contractsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	opts := service.ContractListOptions{
		Page:     q.page(),
		ClientID: q.ref("client_id"),
		Unsigned: q.flag("unsigned"),
		Unpaid:   q.flag("unpaid"),
		Mine:     q.flag("mine"),
	}
	if q.err != nil {
		h.fail(w, r, q.err)
		return
	}
	out, err := h.contracts.List(r.Context(), middleware.TokenFromContext(r.Context()), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, mapAll(out, contractResponse))
}

func (h *contractsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.contracts.Get(r.Context(), middleware.TokenFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, contractResponse(c))
}

func (h *contractsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.contracts.Create(r.Context(), middleware.TokenFromContext(r.Context()), service.NewContract{
		ClientID: req.ClientID,
		Amount:   req.Amount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, contractResponse(c))
}

func (h *contractsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateContractRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.contracts.Update(r.Context(), middleware.TokenFromContext(r.Context()), id, domain.ContractUpdate{
		Amount:          req.Amount,
		RemainingAmount: req.RemainingAmount,
		Signed:          req.Signed,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, contractResponse(c))
}

func (h *contractsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.contracts.Delete(r.Context(), middleware.TokenFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
