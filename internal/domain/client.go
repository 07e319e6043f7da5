package domain

import (
	"context"
	"time"
)

// Client is a customer account owned by a commercial sales contact
type Client struct {
	ID             int64
	FullName       string
	Email          string
	Phone          string
	CompanyName    string
	SalesContactID *int64 // Owning commercial user, nil only transiently
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSalesContact reports whether a commercial owner is assigned.
func (c *Client) HasSalesContact() bool {
	return c != nil && c.SalesContactID != nil && *c.SalesContactID > 0
}

// OwnedBy reports whether userID is the client's sales contact.
func (c *Client) OwnedBy(userID int64) bool {
	return c.HasSalesContact() && *c.SalesContactID == userID
}

// ClientUpdate carries the optional fields of a client update
type ClientUpdate struct {
	FullName    *string
	Email       *string
	Phone       *string
	CompanyName *string
}

// Apply copies the set fields onto c.
func (u ClientUpdate) Apply(c *Client) {
	if u.FullName != nil {
		c.FullName = *u.FullName
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.CompanyName != nil {
		c.CompanyName = *u.CompanyName
	}
}

// Empty reports whether no field is set.
func (u ClientUpdate) Empty() bool {
	return u.FullName == nil && u.Email == nil && u.Phone == nil && u.CompanyName == nil
}

// ClientFilter narrows client listings
type ClientFilter struct {
	Page
	SalesContactID *int64
}

// ClientRepository defines data access for clients
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	GetByID(ctx context.Context, id int64) (*Client, error)
	List(ctx context.Context, filter ClientFilter) ([]*Client, error)
	Update(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id int64) error
}
