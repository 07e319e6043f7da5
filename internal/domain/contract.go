package domain

import (
	"context"
	"time"
)

// Contract is an agreement with a client. Signed is the only modeled state.
type Contract struct {
	ID              int64
	ClientID        int64
	SalesContactID  *int64 // Copied from the client at creation
	Amount          float64
	RemainingAmount float64
	Signed          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ContractUpdate carries the optional fields of a contract update
type ContractUpdate struct {
	Amount          *float64
	RemainingAmount *float64
	Signed          *bool
}

// Apply copies the set fields onto c.
func (u ContractUpdate) Apply(c *Contract) {
	if u.Amount != nil {
		c.Amount = *u.Amount
	}
	if u.RemainingAmount != nil {
		c.RemainingAmount = *u.RemainingAmount
	}
	if u.Signed != nil {
		c.Signed = *u.Signed
	}
}

// Empty reports whether no field is set.
func (u ContractUpdate) Empty() bool {
	return u.Amount == nil && u.RemainingAmount == nil && u.Signed == nil
}

// ContractFilter narrows contract listings
type ContractFilter struct {
	Page
	// OwnerID restricts to contracts whose client's sales contact is OwnerID.
	OwnerID  *int64
	ClientID *int64
	Unsigned bool
	Unpaid   bool
}

// ContractRepository defines data access for contracts
type ContractRepository interface {
	Create(ctx context.Context, contract *Contract) error
	GetByID(ctx context.Context, id int64) (*Contract, error)
	List(ctx context.Context, filter ContractFilter) ([]*Contract, error)
	Update(ctx context.Context, contract *Contract) error
	Delete(ctx context.Context, id int64) error
}
