package repository

import (
	"context"

	"go-gin-event-store/internal/database"
	"go-gin-event-store/internal/model"
	apperrors "go-gin-event-store/pkg/app_errors"
)

// EventRepository runs exactly one SQL statement per call.
type EventRepository interface {
	List(ctx context.Context) ([]*model.Event, error)
	Create(ctx context.Context, params model.EventParams) (int64, error)
	Update(ctx context.Context, id int64, params model.EventParams) error
	SetWinner(ctx context.Context, id int64, winner string) error
	Delete(ctx context.Context, id int64) error
}

type EventRepositoryImpl struct {
	db database.DB
}

func NewEventRepository(db database.DB) EventRepository {
	return &EventRepositoryImpl{
		db: db,
	}
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT event_id, event_name, sport, event_date, winner_player_name
		FROM events
		ORDER BY event_date DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		var event model.Event
		err := rows.Scan(
			&event.EventID,
			&event.EventName,
			&event.Sport,
			&event.EventDate.Time,
			&event.WinnerPlayerName,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, params model.EventParams) (int64, error) {
	query := `
		INSERT INTO events (event_name, sport, event_date, winner_player_name)
		VALUES ($1, $2, $3, $4)
		RETURNING event_id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		params.EventName,
		params.Sport,
		params.EventDate.Time,
		params.WinnerPlayerName,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, id int64, params model.EventParams) error {
	query := `
		UPDATE events
		SET event_name = $1, sport = $2, event_date = $3, winner_player_name = $4
		WHERE event_id = $5
	`
	tag, err := r.db.Exec(ctx, query,
		params.EventName,
		params.Sport,
		params.EventDate.Time,
		params.WinnerPlayerName,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepositoryImpl) SetWinner(ctx context.Context, id int64, winner string) error {
	query := `
		UPDATE events
		SET winner_player_name = $1
		WHERE event_id = $2
	`
	tag, err := r.db.Exec(ctx, query, winner, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepositoryImpl) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM events WHERE event_id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}
