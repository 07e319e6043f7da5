package handler

import (
	"net/http"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security/middleware"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

type eventsHandler struct {
	responder
	events *service.EventService
}

func (h *eventsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	opts := service.EventListOptions{
		Page:           q.page(),
		ContractID:     q.ref("contract_id"),
		WithoutSupport: q.flag("without_support"),
		Mine:           q.flag("mine"),
	}
	if q.err != nil {
		h.fail(w, r, q.err)
		return
	}
	out, err := h.events.List(r.Context(), middleware.TokenFromContext(r.Context()), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, mapAll(out, eventResponse))
}

func (h *eventsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.events.Get(r.Context(), middleware.TokenFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, eventResponse(e))
}

func (h *eventsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.events.Create(r.Context(), middleware.TokenFromContext(r.Context()), service.NewEvent{
		ContractID: req.ContractID,
		Name:       req.Name,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Location:   req.Location,
		Attendees:  req.Attendees,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, eventResponse(e))
}

func (h *eventsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateEventRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.events.Update(r.Context(), middleware.TokenFromContext(r.Context()), id, domain.EventUpdate{
		Name:             req.Name,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Location:         req.Location,
		Attendees:        req.Attendees,
		Notes:            req.Notes,
		SupportContactID: req.SupportContactID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, eventResponse(e))
}

// assignSupport handles PUT /api/events/{id}/support
func (h *eventsHandler) assignSupport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req AssignSupportRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.events.AssignSupport(r.Context(), middleware.TokenFromContext(r.Context()), id, req.SupportContactID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, eventResponse(e))
}

func (h *eventsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.events.Delete(r.Context(), middleware.TokenFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
