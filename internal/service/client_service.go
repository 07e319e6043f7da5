package service

import (
	"context"
	"strings"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
)

// NewClient is the input of ClientService.Create.
type NewClient struct {
	FullName    string
	Email       string
	Phone       string
	CompanyName string
}

// ClientListOptions narrows ClientService.List.
type ClientListOptions struct {
	domain.Page
	// Mine restricts to clients whose sales contact is the caller.
	Mine bool
}

// ClientService manages customer accounts owned by commercial staff.
type ClientService struct {
	base
	clients domain.ClientRepository

	get  security.GuardedFunc[int64, *domain.Client]
	list security.GuardedFunc[ClientListOptions, []*domain.Client]
}

func NewClientService(clients domain.ClientRepository, deps Deps) *ClientService {
	s := &ClientService{
		base:    newBase(security.EntityClient, deps),
		clients: clients,
	}
	s.get = security.Guarded(s.guard, s.perm(security.ActionRead),
		func(ctx context.Context, _ security.Identity, id int64) (*domain.Client, error) {
			c, err := s.clients.GetByID(ctx, id)
			if err != nil {
				return nil, s.storeErr(ctx, "get", id, err)
			}
			return c, nil
		})
	s.list = security.Guarded(s.guard, s.perm(security.ActionRead),
		func(ctx context.Context, id security.Identity, opts ClientListOptions) ([]*domain.Client, error) {
			filter := domain.ClientFilter{Page: opts.Page}
			if opts.Mine {
				filter.SalesContactID = &id.UserID
			}
			out, err := s.clients.List(ctx, filter)
			if err != nil {
				return nil, s.storeErr(ctx, "list", 0, err)
			}
			return out, nil
		})
	return s
}

// Create registers a client owned by the calling commercial user
func (s *ClientService) Create(ctx context.Context, token string, in NewClient) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "client.create")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionCreate)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if err := s.required(ctx, "full_name", in.FullName, "email", email); err != nil {
		return nil, err
	}
	if !validEmail(email) {
		return nil, s.invalid(ctx, "invalid email %q", in.Email)
	}

	owner := id.UserID
	client := &domain.Client{
		FullName:       strings.TrimSpace(in.FullName),
		Email:          email,
		Phone:          strings.TrimSpace(in.Phone),
		CompanyName:    strings.TrimSpace(in.CompanyName),
		SalesContactID: &owner,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, s.storeErr(ctx, "create", 0, err)
	}
	s.changed(ctx, id, audit.ActionCreate, client.ID)
	return client, nil
}

// Get returns one client
func (s *ClientService) Get(ctx context.Context, token string, clientID int64) (*domain.Client, error) {
	return s.get(ctx, token, clientID)
}

// List returns clients
func (s *ClientService) List(ctx context.Context, token string, opts ClientListOptions) ([]*domain.Client, error) {
	return s.list(ctx, token, opts)
}

// Update changes the set fields of a client the caller manages
func (s *ClientService) Update(ctx context.Context, token string, clientID int64, upd domain.ClientUpdate) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "client.update")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return nil, s.invalid(ctx, "nothing to update")
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, s.storeErr(ctx, "get", clientID, err)
	}
	if err := s.owner.ValidateResourceAccess(ctx, id, s.perm(security.ActionUpdate), clientID,
		security.CanManageClient(id, client), "not the client's sales contact"); err != nil {
		return nil, err
	}

	if upd.FullName != nil {
		if err := s.required(ctx, "full_name", *upd.FullName); err != nil {
			return nil, err
		}
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if !validEmail(email) {
			return nil, s.invalid(ctx, "invalid email %q", *upd.Email)
		}
		upd.Email = &email
	}
	upd.Apply(client)

	if err := s.clients.Update(ctx, client); err != nil {
		return nil, s.storeErr(ctx, "update", clientID, err)
	}
	s.changed(ctx, id, audit.ActionUpdate, clientID)
	return client, nil
}

// Delete removes a client the caller manages
func (s *ClientService) Delete(ctx context.Context, token string, clientID int64) error {
	ctx, span := tracer.Start(ctx, "client.delete")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionDelete)
	if err != nil {
		return err
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return s.storeErr(ctx, "get", clientID, err)
	}
	if err := s.owner.ValidateResourceAccess(ctx, id, s.perm(security.ActionDelete), clientID,
		security.CanManageClient(id, client), "not the client's sales contact"); err != nil {
		return err
	}

	if err := s.clients.Delete(ctx, clientID); err != nil {
		return s.storeErr(ctx, "delete", clientID, err)
	}
	s.changed(ctx, id, audit.ActionDelete, clientID)
	return nil
}
