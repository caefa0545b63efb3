package mocks

import (
	"context"

	"go-gin-event-store/internal/model"

	"github.com/stretchr/testify/mock"
)

type EventServiceMock struct {
	mock.Mock
}

func NewEventServiceMock() *EventServiceMock {
	return &EventServiceMock{}
}

func (m *EventServiceMock) List(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) Create(ctx context.Context, params model.EventParams) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *EventServiceMock) Update(ctx context.Context, id int64, params model.EventParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *EventServiceMock) SetWinner(ctx context.Context, id int64, winner string) error {
	args := m.Called(ctx, id, winner)
	return args.Error(0)
}

func (m *EventServiceMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
