package service

import (
	"context"

	"go-gin-event-store/internal/model"
	"go-gin-event-store/internal/queue"
	"go-gin-event-store/internal/repository"
	apperrors "go-gin-event-store/pkg/app_errors"
	"go-gin-event-store/pkg/logger"

	"go.uber.org/zap"
)

type EventService interface {
	List(ctx context.Context) ([]*model.Event, error)
	Create(ctx context.Context, params model.EventParams) (int64, error)
	Update(ctx context.Context, id int64, params model.EventParams) error
	SetWinner(ctx context.Context, id int64, winner string) error
	Delete(ctx context.Context, id int64) error
}

type EventServiceImpl struct {
	repo    repository.EventRepository
	changes queue.EventChangeQueue
}

// NewEventService wires the repository and the change feed. changes may be nil,
// in which case nothing is published.
func NewEventService(repo repository.EventRepository, changes queue.EventChangeQueue) EventService {
	if changes == nil {
		changes = queue.NewNoopEventChangeQueue()
	}
	return &EventServiceImpl{repo: repo, changes: changes}
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.Event, error) {
	return s.repo.List(ctx)
}

// Create and Update store an empty winner as NULL.
func (s *EventServiceImpl) Create(ctx context.Context, params model.EventParams) (int64, error) {
	params.WinnerPlayerName = model.OptionalName(params.WinnerPlayerName)
	id, err := s.repo.Create(ctx, params)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, model.NewEventChange(model.ChangeOpCreated, id, params.Event(id)))
	return id, nil
}

func (s *EventServiceImpl) Update(ctx context.Context, id int64, params model.EventParams) error {
	params.WinnerPlayerName = model.OptionalName(params.WinnerPlayerName)
	if err := s.repo.Update(ctx, id, params); err != nil {
		return err
	}
	s.publish(ctx, model.NewEventChange(model.ChangeOpUpdated, id, params.Event(id)))
	return nil
}

func (s *EventServiceImpl) SetWinner(ctx context.Context, id int64, winner string) error {
	if winner == "" {
		return apperrors.ErrWinnerRequired
	}
	if err := s.repo.SetWinner(ctx, id, winner); err != nil {
		return err
	}
	s.publish(ctx, model.NewEventChange(model.ChangeOpWinnerSet, id, &model.Event{
		EventID:          id,
		WinnerPlayerName: &winner,
	}))
	return nil
}

func (s *EventServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, model.NewEventChange(model.ChangeOpDeleted, id, nil))
	return nil
}

// publish is best effort: the write already committed, so a feed failure is only logged.
func (s *EventServiceImpl) publish(ctx context.Context, change *model.EventChange) {
	if err := s.changes.Publish(context.WithoutCancel(ctx), change); err != nil {
		logger.WithComponent("service").Warn("publish event change failed",
			zap.String("op", string(change.Op)),
			zap.Int64("event_id", change.EventID),
			zap.Error(err),
		)
	}
}
