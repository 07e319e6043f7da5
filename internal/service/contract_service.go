package service

import (
	"context"
	"log/slog"
	"math"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/observability/metrics"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
)

// NewContract is the input of ContractService.Create.
type NewContract struct {
	ClientID int64
	Amount   float64
}

// ContractListOptions narrows ContractService.List.
type ContractListOptions struct {
	domain.Page
	ClientID *int64
	Unsigned bool
	Unpaid   bool
	// Mine restricts to contracts of clients the caller is sales contact for.
	Mine bool
}

// ContractService manages client contracts.
type ContractService struct {
	base
	contracts domain.ContractRepository
	clients   domain.ClientRepository

	get  security.GuardedFunc[int64, *domain.Contract]
	list security.GuardedFunc[ContractListOptions, []*domain.Contract]
}

func NewContractService(contracts domain.ContractRepository, clients domain.ClientRepository, deps Deps) *ContractService {
	s := &ContractService{
		base:      newBase(security.EntityContract, deps),
		contracts: contracts,
		clients:   clients,
	}
	s.get = security.Guarded(s.guard, s.perm(security.ActionRead),
		func(ctx context.Context, _ security.Identity, id int64) (*domain.Contract, error) {
			c, err := s.contracts.GetByID(ctx, id)
			if err != nil {
				return nil, s.storeErr(ctx, "get", id, err)
			}
			return c, nil
		})
	s.list = security.Guarded(s.guard, s.perm(security.ActionRead),
		func(ctx context.Context, id security.Identity, opts ContractListOptions) ([]*domain.Contract, error) {
			filter := domain.ContractFilter{
				Page:     opts.Page,
				ClientID: opts.ClientID,
				Unsigned: opts.Unsigned,
				Unpaid:   opts.Unpaid,
			}
			if opts.Mine {
				filter.OwnerID = &id.UserID
			}
			out, err := s.contracts.List(ctx, filter)
			if err != nil {
				return nil, s.storeErr(ctx, "list", 0, err)
			}
			return out, nil
		})
	return s
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Create opens an unsigned contract for a client. The sales contact is copied from the client
// and the whole amount starts out due.
func (s *ContractService) Create(ctx context.Context, token string, in NewContract) (*domain.Contract, error) {
	ctx, span := tracer.Start(ctx, "contract.create")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionCreate)
	if err != nil {
		return nil, err
	}
	if in.ClientID <= 0 {
		return nil, s.invalid(ctx, "client_id is required")
	}
	if !validAmount(in.Amount) || in.Amount == 0 {
		return nil, s.invalid(ctx, "amount must be a positive number")
	}

	client, err := s.clients.GetByID(ctx, in.ClientID)
	if err != nil {
		return nil, s.storeErr(ctx, "get client", in.ClientID, err)
	}
	if !client.HasSalesContact() {
		return nil, s.invalid(ctx, "client %d has no sales contact", client.ID)
	}

	sales := *client.SalesContactID
	contract := &domain.Contract{
		ClientID:        client.ID,
		SalesContactID:  &sales,
		Amount:          in.Amount,
		RemainingAmount: in.Amount,
		Signed:          false,
	}
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, s.storeErr(ctx, "create", 0, err)
	}
	s.changed(ctx, id, audit.ActionCreate, contract.ID)
	return contract, nil
}

// Get returns one contract
func (s *ContractService) Get(ctx context.Context, token string, contractID int64) (*domain.Contract, error) {
	return s.get(ctx, token, contractID)
}

// List returns contracts
func (s *ContractService) List(ctx context.Context, token string, opts ContractListOptions) ([]*domain.Contract, error) {
	return s.list(ctx, token, opts)
}

// Update changes amounts or signs a contract. Commercial users may only touch contracts of
// their own clients. Only unsigned to signed is recorded as a signing; clearing the flag is a
// plain update.
func (s *ContractService) Update(ctx context.Context, token string, contractID int64, upd domain.ContractUpdate) (*domain.Contract, error) {
	ctx, span := tracer.Start(ctx, "contract.update")
	defer span.End()

	perm := s.perm(security.ActionUpdate)
	id, err := s.require(ctx, token, security.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return nil, s.invalid(ctx, "nothing to update")
	}

	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, s.storeErr(ctx, "get", contractID, err)
	}
	client, err := s.clients.GetByID(ctx, contract.ClientID)
	if err != nil {
		return nil, s.storeErr(ctx, "get client", contract.ClientID, err)
	}
	if err := s.owner.ValidateResourceAccess(ctx, id, perm, contractID,
		security.CanUpdateContract(id, contract, client), "not the sales contact of the contract's client"); err != nil {
		return nil, err
	}

	wasSigned := contract.Signed
	upd.Apply(contract)
	if !validAmount(contract.Amount) || !validAmount(contract.RemainingAmount) {
		return nil, s.invalid(ctx, "amounts must be non-negative numbers")
	}
	if contract.RemainingAmount > contract.Amount {
		return nil, s.invalid(ctx, "remaining amount %.2f exceeds total %.2f", contract.RemainingAmount, contract.Amount)
	}

	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, s.storeErr(ctx, "update", contractID, err)
	}
	s.changed(ctx, id, audit.ActionUpdate, contractID)

	if !wasSigned && contract.Signed {
		metrics.IncrementContractsSigned()
		s.audit.LogContractSigned(ctx, id.UserID, id.Department.String(), contractID)
		s.logger.Info("contract signed",
			slog.Int64("contract_id", contractID),
			slog.Int64("user_id", id.UserID),
		)
	}
	return contract, nil
}

// Delete removes a contract
func (s *ContractService) Delete(ctx context.Context, token string, contractID int64) error {
	ctx, span := tracer.Start(ctx, "contract.delete")
	defer span.End()

	id, err := s.require(ctx, token, security.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.contracts.Delete(ctx, contractID); err != nil {
		return s.storeErr(ctx, "delete", contractID, err)
	}
	s.changed(ctx, id, audit.ActionDelete, contractID)
	return nil
}
