package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
)

// NewEvent is the input of EventService.Create.
type NewEvent struct {
	ContractID int64
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	Location   string
	Attendees  int
	Notes      string
}

// EventListOptions narrows EventService.List.
type EventListOptions struct {
	domain.Page
	ContractID     *int64
	WithoutSupport bool
	// Mine restricts to events the caller is support contact for.
	Mine bool
}

// EventService manages events organised under contracts.
type EventService struct {
	base
	events    domain.EventRepository
	contracts domain.ContractRepository
	clients   domain.ClientRepository
	users     domain.UserRepository

	get  security.GuardedFunc[int64, *domain.Event]
	list security.GuardedFunc[EventListOptions, []*domain.Event]
}

func NewEventService(
	events domain.EventRepository,
	contracts domain.ContractRepository,
	clients domain.ClientRepository,
	users domain.UserRepository,
	deps Deps,
) *EventService {
	s := &EventService{
		base:      newBase(security.EntityEvent, deps),
		events:    events,
		contracts: contracts,
		clients:   clients,
		users:     users,
	}
	s.get = security.Guarded(s.guard, s.perm(security.ActionRead),
		func(ctx context.Context, _ security.Identity, id int64) (*domain.Event, error) {
			e, err := s.events.GetByID(ctx, id)
			if err != nil {
				return nil, s.storeErr(ctx, "get", id, err)
			}
			return e, nil
		})
	s.list = security.Guarded(s.guard, s.perm(security.ActionRead),
		func(ctx context.Context, id security.Identity, opts EventListOptions) ([]*domain.Event, error) {
			filter := domain.EventFilter{
				Page:           opts.Page,
				ContractID:     opts.ContractID,
				WithoutSupport: opts.WithoutSupport,
			}
			if opts.Mine {
				filter.SupportContactID = &id.UserID
			}
			out, err := s.events.List(ctx, filter)
			if err != nil {
				return nil, s.storeErr(ctx, "list", 0, err)
			}
			return out, nil
		})
	return s
}

func (s *EventService) validateSchedule(ctx context.Context, e *domain.Event) error {
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return s.invalid(ctx, "start_date and end_date are required")
	}
	if e.EndDate.Before(e.StartDate) {
		return s.invalid(ctx, "end_date is before start_date")
	}
	if e.Attendees < 0 {
		return s.invalid(ctx, "attendees cannot be negative")
	}
	return nil
}

// Create opens an event under a contract. Commercial users may only do so for their own clients.
// The event's client is taken from the contract.
func (s *EventService) Create(ctx context.Context, token string, in NewEvent) (*domain.Event, error) {
	ctx, span := tracer.Start(ctx, "event.create")
	defer span.End()

	perm := s.perm(security.ActionCreate)
	id, err := s.require(ctx, token, security.ActionCreate)
	if err != nil {
		return nil, err
	}
	if in.ContractID <= 0 {
		return nil, s.invalid(ctx, "contract_id is required")
	}
	if err := s.required(ctx, "name", in.Name); err != nil {
		return nil, err
	}

	contract, err := s.contracts.GetByID(ctx, in.ContractID)
	if err != nil {
		return nil, s.storeErr(ctx, "get contract", in.ContractID, err)
	}
	client, err := s.clients.GetByID(ctx, contract.ClientID)
	if err != nil {
		return nil, s.storeErr(ctx, "get client", contract.ClientID, err)
	}
	if err := s.owner.ValidateResourceAccess(ctx, id, perm, contract.ID,
		security.CanCreateEventFor(id, client), "not the client's sales contact"); err != nil {
		return nil, err
	}

	event := &domain.Event{
		ContractID: contract.ID,
		ClientID:   contract.ClientID,
		Name:       strings.TrimSpace(in.Name),
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Location:   strings.TrimSpace(in.Location),
		Attendees:  in.Attendees,
		Notes:      in.Notes,
	}
	if err := s.validateSchedule(ctx, event); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, s.storeErr(ctx, "create", 0, err)
	}
	s.changed(ctx, id, audit.ActionCreate, event.ID)
	return event, nil
}

// Get returns one event
func (s *EventService) Get(ctx context.Context, token string, eventID int64) (*domain.Event, error) {
	return s.get(ctx, token, eventID)
}

// List returns events
func (s *EventService) List(ctx context.Context, token string, opts EventListOptions) ([]*domain.Event, error) {
	return s.list(ctx, token, opts)
}

// Update applies upd to an event. Support staff may only change the notes of events assigned
// to them; an update touching any other field is rejected as a whole.
func (s *EventService) Update(ctx context.Context, token string, eventID int64, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, span := tracer.Start(ctx, "event.update")
	defer span.End()

	perm := s.perm(security.ActionUpdate)
	id, err := s.require(ctx, token, security.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if len(upd.Fields()) == 0 {
		return nil, s.invalid(ctx, "nothing to update")
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, s.storeErr(ctx, "get", eventID, err)
	}
	reason, ok := security.CheckEventUpdate(id, event, upd)
	if err := s.owner.ValidateResourceAccess(ctx, id, perm, eventID, ok, reason); err != nil {
		return nil, err
	}

	if upd.SupportContactID != nil {
		if err := s.checkSupportUser(ctx, *upd.SupportContactID); err != nil {
			return nil, err
		}
	}
	if upd.Name != nil {
		if err := s.required(ctx, "name", *upd.Name); err != nil {
			return nil, err
		}
	}
	upd.Apply(event)
	if err := s.validateSchedule(ctx, event); err != nil {
		return nil, err
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, s.storeErr(ctx, "update", eventID, err)
	}
	s.changed(ctx, id, audit.ActionUpdate, eventID)
	if upd.SupportContactID != nil {
		s.supportAssigned(ctx, id, eventID, *upd.SupportContactID)
	}
	return event, nil
}

// AssignSupport sets the support contact of an event. Only management may assign, and the
// assignee must belong to the support department.
func (s *EventService) AssignSupport(ctx context.Context, token string, eventID, supportUserID int64) (*domain.Event, error) {
	ctx, span := tracer.Start(ctx, "event.assign_support")
	defer span.End()

	perm := s.perm(security.ActionUpdate)
	id, err := s.require(ctx, token, security.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if err := s.owner.ValidateResourceAccess(ctx, id, perm, eventID,
		id.Is(domain.DepartmentManagement), "only management assigns support contacts"); err != nil {
		return nil, err
	}
	if err := s.checkSupportUser(ctx, supportUserID); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, s.storeErr(ctx, "get", eventID, err)
	}
	event.SupportContactID = &supportUserID
	if err := s.events.Update(ctx, event); err != nil {
		return nil, s.storeErr(ctx, "update", eventID, err)
	}

	s.supportAssigned(ctx, id, eventID, supportUserID)
	return event, nil
}

func (s *EventService) supportAssigned(ctx context.Context, id security.Identity, eventID, supportUserID int64) {
	s.audit.LogSupportAssigned(ctx, id.UserID, id.Department.String(), eventID, supportUserID)
	s.logger.Info("support contact assigned",
		slog.Int64("event_id", eventID),
		slog.Int64("support_contact_id", supportUserID),
	)
}

func (s *EventService) checkSupportUser(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.invalid(ctx, "user %d does not exist", userID)
		}
		return s.storeErr(ctx, "get user", userID, err)
	}
	if user.Department != domain.DepartmentSupport {
		return s.invalid(ctx, "user %d is not in the support department", userID)
	}
	return nil
}

// Delete removes an event
func (s *EventService) Delete(ctx context.Context, token string, eventID int64) error {
	ctx, span := tracer.Start(ctx, "event.delete")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return s.storeErr(ctx, "delete", eventID, err)
	}
	s.changed(ctx, id, audit.ActionDelete, eventID)
	return nil
}
