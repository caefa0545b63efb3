package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-gin-event-store/config"
	"go-gin-event-store/internal/database"
	"go-gin-event-store/internal/handler"
	"go-gin-event-store/internal/queue"
	"go-gin-event-store/internal/repository"
	"go-gin-event-store/internal/service"
	"go-gin-event-store/internal/worker"
	"go-gin-event-store/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

func main() {
	defer logger.Sync()
	log := logger.WithComponent("main")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failed connection does not stop the server; requests fail individually until the database is reachable.
	var db database.DB
	pool, err := database.InitDatabase(&cfg.Database)
	switch {
	case pool == nil:
		log.Error("Database connection failed", zap.Error(err))
		db = database.Unavailable(err)
	case err != nil:
		log.Error("Database connection failed", zap.Error(err))
		db = pool
		defer pool.Close()
	default:
		log.Info("Connected to the database", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.DBName))
		db = pool
		defer pool.Close()
	}

	changes, rdb := initChangeFeed(ctx, cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	eventService := service.NewEventService(repository.NewEventRepository(db), changes)
	router := handler.NewRouter(handler.NewEventHandler(eventService))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		log.Info("Server is running", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped", zap.Error(err))
			stop()
		}
	})
	if cfg.ChangeFeed.Mode != config.ChangeFeedOff {
		w := worker.NewChangeWorker(changes, nil, cfg.ChangeFeed.Workers)
		wg.Go(func() {
			if err := w.Run(ctx); err != nil {
				log.Error("Change worker stopped", zap.Error(err))
			}
		})
	}
	wg.Go(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	})
	wg.Wait()
	log.Info("Server exited")
}

// initChangeFeed picks the change queue backend. A Redis failure falls back
// to no feed rather than stopping the API.
func initChangeFeed(ctx context.Context, cfg *config.Config, log *zap.Logger) (queue.EventChangeQueue, *redis.Client) {
	switch cfg.ChangeFeed.Mode {
	case config.ChangeFeedMemory:
		return queue.NewMemoryEventChangeQueue(cfg.ChangeFeed.BufferSize), nil
	case config.ChangeFeedRedis:
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize redis, change feed disabled", zap.Error(err))
			cfg.ChangeFeed.Mode = config.ChangeFeedOff
			return queue.NewNoopEventChangeQueue(), nil
		}
		hostname, _ := os.Hostname()
		q, err := queue.NewRedisStreamEventChangeQueue(ctx, rdb, hostname, nil)
		if err != nil {
			log.Error("Failed to initialize change stream, change feed disabled", zap.Error(err))
			cfg.ChangeFeed.Mode = config.ChangeFeedOff
			rdb.Close()
			return queue.NewNoopEventChangeQueue(), nil
		}
		return q, rdb
	default:
		return queue.NewNoopEventChangeQueue(), nil
	}
}
