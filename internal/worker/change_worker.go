package worker

import (
	"context"
	"sync"

	"go-gin-event-store/internal/model"
	"go-gin-event-store/internal/queue"
	"go-gin-event-store/pkg/logger"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrUnprocessable marks a change that can never succeed; it is dropped instead of requeued.
var ErrUnprocessable = errors.New("unprocessable change")

// ChangeHandler processes one change. An error requeues the delivery unless
// it wraps ErrUnprocessable.
type ChangeHandler func(ctx context.Context, change *model.EventChange) error

type ChangeWorker interface {
	// Run consumes the queue until ctx is done and in-flight changes finish.
	Run(ctx context.Context) error
}

type ChangeWorkerImpl struct {
	queue   queue.EventChangeQueue
	handle  ChangeHandler
	workers int
}

func NewChangeWorker(q queue.EventChangeQueue, handle ChangeHandler, workers int) ChangeWorker {
	if handle == nil {
		handle = AuditLog(logger.WithComponent("audit"))
	}
	if workers < 1 {
		workers = 1
	}
	return &ChangeWorkerImpl{queue: q, handle: handle, workers: workers}
}

func (w *ChangeWorkerImpl) Run(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return errors.Wrap(err, "subscribe change queue")
	}

	pool, err := ants.NewPool(w.workers)
	if err != nil {
		return errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	log := logger.WithComponent("worker")
	var inflight sync.WaitGroup
	for msg := range msgs {
		inflight.Add(1)
		err := pool.Submit(func() {
			defer inflight.Done()
			w.process(ctx, msg)
		})
		if err != nil {
			inflight.Done()
			log.Error("submit change failed", zap.Int64("event_id", msg.Data.EventID), zap.Error(err))
			msg.Nack(true)
		}
	}
	inflight.Wait()
	return nil
}

func (w *ChangeWorkerImpl) process(ctx context.Context, msg queue.Delivery) {
	if err := w.handle(ctx, msg.Data); err != nil {
		logger.WithComponent("worker").Warn("handle change failed",
			zap.String("op", string(msg.Data.Op)),
			zap.Int64("event_id", msg.Data.EventID),
			zap.Error(err),
		)
		msg.Nack(!errors.Is(err, ErrUnprocessable))
		return
	}
	msg.Ack()
}

// AuditLog writes one structured line per change.
func AuditLog(log *zap.Logger) ChangeHandler {
	return func(ctx context.Context, change *model.EventChange) error {
		if !change.Op.IsValid() {
			return errors.Wrapf(ErrUnprocessable, "unknown change op %q", change.Op)
		}
		fields := []zap.Field{
			zap.String("op", string(change.Op)),
			zap.Int64("event_id", change.EventID),
			zap.Time("occurred_at", change.OccurredAt),
		}
		if e := change.Event; e != nil {
			if e.EventName != "" {
				fields = append(fields,
					zap.String("event_name", e.EventName),
					zap.String("sport", e.Sport),
					zap.Stringer("event_date", e.EventDate),
				)
			}
			if e.WinnerPlayerName != nil {
				fields = append(fields, zap.String("winner_player_name", *e.WinnerPlayerName))
			}
		}
		log.Info("event changed", fields...)
		return nil
	}
}
