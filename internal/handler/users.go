package handler

import (
	"net/http"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security/middleware"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

// usersHandler serves /api/users. Management only, enforced by the service.
type usersHandler struct {
	responder
	users *service.UserService
}

func (h *usersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := domain.UserFilter{Page: q.page()}
	if dept := q.get("department"); dept != "" {
		d, err := domain.ParseDepartment(dept)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		filter.Department = d
	}
	if q.err != nil {
		h.fail(w, r, q.err)
		return
	}
	out, err := h.users.List(r.Context(), middleware.TokenFromContext(r.Context()), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, mapAll(out, userResponse))
}

func (h *usersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.users.Get(r.Context(), middleware.TokenFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, userResponse(u))
}

func (h *usersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.users.Create(r.Context(), middleware.TokenFromContext(r.Context()), req.toService())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, userResponse(u))
}

func (h *usersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateUserRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.users.Update(r.Context(), middleware.TokenFromContext(r.Context()), id, req.toService())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, userResponse(u))
}

func (h *usersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.users.Delete(r.Context(), middleware.TokenFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
