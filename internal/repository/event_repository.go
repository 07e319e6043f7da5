package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

const eventColumns = `id, contract_id, client_id, support_contact_id, name, start_date, end_date, location, attendees, notes, created_at, updated_at`

// EventRepository implements domain.EventRepository over database/sql
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRepository{db: db, logger: logger}
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var support sql.NullInt64
	err := row.Scan(
		&e.ID,
		&e.ContractID,
		&e.ClientID,
		&support,
		&e.Name,
		&e.StartDate,
		&e.EndDate,
		&e.Location,
		&e.Attendees,
		&e.Notes,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.SupportContactID = idPtr(support)
	return e, nil
}

// Create inserts event
func (r *EventRepository) Create(ctx context.Context, event *domain.Event) (err error) {
	defer observe("event", "create", time.Now(), &err)

	ts := now()
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO events (contract_id, client_id, support_contact_id, name, start_date, end_date,
			location, attendees, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		event.ContractID,
		event.ClientID,
		nullableID(event.SupportContactID),
		event.Name,
		event.StartDate.UTC(),
		event.EndDate.UTC(),
		event.Location,
		event.Attendees,
		event.Notes,
		ts,
		ts,
	).Scan(&event.ID)
	if err != nil {
		r.logger.Error("failed to create event",
			slog.Int64("contract_id", event.ContractID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create event: %w", mapError(err))
	}
	event.CreatedAt, event.UpdatedAt = ts, ts
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int64) (_ *domain.Event, err error) {
	defer observe("event", "get", time.Now(), &err)

	e, err := scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", id, mapError(err))
	}
	return e, nil
}

// List returns events matching filter ordered by start date
func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter) (_ []*domain.Event, err error) {
	defer observe("event", "list", time.Now(), &err)

	w := &where{}
	if filter.SupportContactID != nil {
		w.add("support_contact_id = ?", *filter.SupportContactID)
	}
	if filter.ContractID != nil {
		w.add("contract_id = ?", *filter.ContractID)
	}
	if filter.WithoutSupport {
		w.raw("support_contact_id IS NULL")
	}
	query := `SELECT ` + eventColumns + ` FROM events` + w.String() + ` ORDER BY start_date, id`
	query += w.page(filter.Page)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update writes every mutable column of event
func (r *EventRepository) Update(ctx context.Context, event *domain.Event) (err error) {
	defer observe("event", "update", time.Now(), &err)

	ts := now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET support_contact_id = $1, name = $2, start_date = $3, end_date = $4,
			location = $5, attendees = $6, notes = $7, updated_at = $8
		WHERE id = $9
	`,
		nullableID(event.SupportContactID),
		event.Name,
		event.StartDate.UTC(),
		event.EndDate.UTC(),
		event.Location,
		event.Attendees,
		event.Notes,
		ts,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", mapError(err))
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("failed to update event %d: %w", event.ID, err)
	}
	event.UpdatedAt = ts
	return nil
}

// Delete physically removes an event
func (r *EventRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe("event", "delete", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", mapError(err))
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	return nil
}
