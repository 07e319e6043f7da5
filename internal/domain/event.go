package domain

import (
	"context"
	"time"
)

// Event is a customer event organised under a contract
type Event struct {
	ID               int64
	ContractID       int64
	ClientID         int64 // Derived from the contract
	SupportContactID *int64
	Name             string
	StartDate        time.Time
	EndDate          time.Time
	Location         string
	Attendees        int
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AssignedTo reports whether userID is the event's support contact.
func (e *Event) AssignedTo(userID int64) bool {
	return e != nil && e.SupportContactID != nil && *e.SupportContactID == userID
}

// Event update field names, as accepted on the command line and the HTTP API.
const (
	EventFieldName           = "name"
	EventFieldStartDate      = "start_date"
	EventFieldEndDate        = "end_date"
	EventFieldLocation       = "location"
	EventFieldAttendees      = "attendees"
	EventFieldNotes          = "notes"
	EventFieldSupportContact = "support_contact_id"
)

// EventUpdate carries the optional fields of an event update
type EventUpdate struct {
	Name             *string
	StartDate        *time.Time
	EndDate          *time.Time
	Location         *string
	Attendees        *int
	Notes            *string
	SupportContactID *int64
}

// Fields lists the names of the set fields.
func (u EventUpdate) Fields() []string {
	var out []string
	if u.Name != nil {
		out = append(out, EventFieldName)
	}
	if u.StartDate != nil {
		out = append(out, EventFieldStartDate)
	}
	if u.EndDate != nil {
		out = append(out, EventFieldEndDate)
	}
	if u.Location != nil {
		out = append(out, EventFieldLocation)
	}
	if u.Attendees != nil {
		out = append(out, EventFieldAttendees)
	}
	if u.Notes != nil {
		out = append(out, EventFieldNotes)
	}
	if u.SupportContactID != nil {
		out = append(out, EventFieldSupportContact)
	}
	return out
}

// Apply copies the set fields onto e.
func (u EventUpdate) Apply(e *Event) {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		e.EndDate = *u.EndDate
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Attendees != nil {
		e.Attendees = *u.Attendees
	}
	if u.Notes != nil {
		e.Notes = *u.Notes
	}
	if u.SupportContactID != nil {
		id := *u.SupportContactID
		e.SupportContactID = &id
	}
}

// EventFilter narrows event listings
type EventFilter struct {
	Page
	SupportContactID *int64
	ContractID       *int64
	WithoutSupport   bool
}

// EventRepository defines data access for events
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id int64) error
}
