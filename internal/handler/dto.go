package handler

import (
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

type UserResponse struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		Department: u.Department.String(),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type ClientResponse struct {
	ID             int64     `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	CompanyName    string    `json:"company_name"`
	SalesContactID *int64    `json:"sales_contact_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func clientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{
		ID:             c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		Phone:          c.Phone,
		CompanyName:    c.CompanyName,
		SalesContactID: c.SalesContactID,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type ContractResponse struct {
	ID              int64     `json:"id"`
	ClientID        int64     `json:"client_id"`
	SalesContactID  *int64    `json:"sales_contact_id"`
	Amount          float64   `json:"amount"`
	RemainingAmount float64   `json:"remaining_amount"`
	Signed          bool      `json:"signed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func contractResponse(c *domain.Contract) ContractResponse {
	return ContractResponse{
		ID:              c.ID,
		ClientID:        c.ClientID,
		SalesContactID:  c.SalesContactID,
		Amount:          c.Amount,
		RemainingAmount: c.RemainingAmount,
		Signed:          c.Signed,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

type EventResponse struct {
	ID               int64     `json:"id"`
	ContractID       int64     `json:"contract_id"`
	ClientID         int64     `json:"client_id"`
	SupportContactID *int64    `json:"support_contact_id"`
	Name             string    `json:"name"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Location         string    `json:"location"`
	Attendees        int       `json:"attendees"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func eventResponse(e *domain.Event) EventResponse {
	return EventResponse{
		ID:               e.ID,
		ContractID:       e.ContractID,
		ClientID:         e.ClientID,
		SupportContactID: e.SupportContactID,
		Name:             e.Name,
		StartDate:        e.StartDate,
		EndDate:          e.EndDate,
		Location:         e.Location,
		Attendees:        e.Attendees,
		Notes:            e.Notes,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func mapAll[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

// Request bodies. Pointer fields are optional in updates.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

func (r CreateUserRequest) toService() service.NewUser {
	return service.NewUser{FullName: r.FullName, Email: r.Email, Password: r.Password, Department: r.Department}
}

type UpdateUserRequest struct {
	FullName   *string `json:"full_name"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	Department *string `json:"department"`
}

func (r UpdateUserRequest) toService() service.UserUpdate {
	return service.UserUpdate{FullName: r.FullName, Email: r.Email, Password: r.Password, Department: r.Department}
}

type CreateClientRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"company_name"`
}

type UpdateClientRequest struct {
	FullName    *string `json:"full_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	CompanyName *string `json:"company_name"`
}

type CreateContractRequest struct {
	ClientID int64   `json:"client_id"`
	Amount   float64 `json:"amount"`
}

type UpdateContractRequest struct {
	Amount          *float64 `json:"amount"`
	RemainingAmount *float64 `json:"remaining_amount"`
	Signed          *bool    `json:"signed"`
}

type CreateEventRequest struct {
	ContractID int64     `json:"contract_id"`
	Name       string    `json:"name"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Location   string    `json:"location"`
	Attendees  int       `json:"attendees"`
	Notes      string    `json:"notes"`
}

type UpdateEventRequest struct {
	Name             *string    `json:"name"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	Location         *string    `json:"location"`
	Attendees        *int       `json:"attendees"`
	Notes            *string    `json:"notes"`
	SupportContactID *int64     `json:"support_contact_id"`
}

type AssignSupportRequest struct {
	SupportContactID int64 `json:"support_contact_id"`
}
