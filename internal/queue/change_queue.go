package queue

import (
	"context"

	"go-gin-event-store/internal/model"
	apperrors "go-gin-event-store/pkg/app_errors"
)

type Delivery struct {
	Data *model.EventChange
	Ack  func()
	Nack func(requeue bool)
}

type EventChangeQueue interface {
	// Publish must not block the caller for longer than the backend round trip.
	Publish(ctx context.Context, change *model.EventChange) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

// MemoryEventChangeQueue is a buffered channel. It does not survive restarts.
type MemoryEventChangeQueue struct {
	ch chan *model.EventChange
}

func NewMemoryEventChangeQueue(bufferSize int) EventChangeQueue {
	return &MemoryEventChangeQueue{
		ch: make(chan *model.EventChange, bufferSize),
	}
}

func (q *MemoryEventChangeQueue) Publish(ctx context.Context, change *model.EventChange) error {
	select {
	case q.ch <- change:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return apperrors.ErrQueueFull
	}
}

func (q *MemoryEventChangeQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-q.ch:
				if !ok {
					return
				}
				d := Delivery{
					Data: change,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							// drop rather than block when the buffer refilled meanwhile
							_ = q.Publish(ctx, change)
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

type noopEventChangeQueue struct{}

// NewNoopEventChangeQueue discards every change. Used when the feed is off.
func NewNoopEventChangeQueue() EventChangeQueue {
	return noopEventChangeQueue{}
}

func (noopEventChangeQueue) Publish(ctx context.Context, change *model.EventChange) error {
	return nil
}

func (noopEventChangeQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
