package handler

import (
	"net/http"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security/middleware"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

type clientsHandler struct {
	responder
	clients *service.ClientService
}

func (h *clientsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	opts := service.ClientListOptions{Page: q.page(), Mine: q.flag("mine")}
	if q.err != nil {
		h.fail(w, r, q.err)
		return
	}
	out, err := h.clients.List(r.Context(), middleware.TokenFromContext(r.Context()), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, mapAll(out, clientResponse))
}

func (h *clientsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.clients.Get(r.Context(), middleware.TokenFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, clientResponse(c))
}

func (h *clientsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.clients.Create(r.Context(), middleware.TokenFromContext(r.Context()), service.NewClient{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, clientResponse(c))
}

func (h *clientsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateClientRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.clients.Update(r.Context(), middleware.TokenFromContext(r.Context()), id, domain.ClientUpdate{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, clientResponse(c))
}

func (h *clientsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.clients.Delete(r.Context(), middleware.TokenFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
