package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/preplane/preplane-backend/internal/config"
	"github.com/preplane/preplane-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	LeaderboardBatchSize    = 50
	LeaderboardBatchTimeout = 2 * time.Second
	LeaderboardPollTimeout  = 1 * time.Second
)

// LeaderboardWorker consumes graded-submission events and folds them
// into per-test Redis sorted sets, then announces each event on the
// test's pubsub channel for live admin dashboards. The database result
// row is already durable when an event reaches this queue, so the
// worker only maintains derived state.
type LeaderboardWorker struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewLeaderboardWorker(rdb *redis.Client, log zerolog.Logger) *LeaderboardWorker {
	return &LeaderboardWorker{
		rdb: rdb,
		log: log.With().Str("component", "leaderboard_worker").Logger(),
	}
}

// Start runs the consume loop until ctx is cancelled, then drains the
// current batch before returning.
func (w *LeaderboardWorker) Start(ctx context.Context) {
	w.log.Info().Msg("LeaderboardWorker started")

	batch := make([]*service.LeaderboardEvent, 0, LeaderboardBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= LeaderboardBatchSize || time.Since(lastFlush) >= LeaderboardBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, LeaderboardPollTimeout, config.WorkerKey.LeaderboardQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var event service.LeaderboardEvent
			if err := json.Unmarshal([]byte(item[1]), &event); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &event)
		}
	}
}

// flushSafe applies a batch and requeues anything that fails, so a
// Redis hiccup delays ranking updates instead of losing them.
func (w *LeaderboardWorker) flushSafe(ctx context.Context, batch []*service.LeaderboardEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkApply(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk leaderboard update failed, using fallback")

		for _, event := range batch {
			if err := w.applySingle(ctx, event); err != nil {
				w.log.Error().Err(err).Str("result_id", event.ResultID).
					Msg("applySingle failed — requeueing")
				raw, _ := json.Marshal(event)
				w.rdb.RPush(ctx, config.WorkerKey.LeaderboardQueue, raw)
			}
		}
	}
}

// bulkApply pipelines the whole batch: one ZADD per event into the
// test's sorted set plus one PUBLISH to its live-results channel.
func (w *LeaderboardWorker) bulkApply(ctx context.Context, batch []*service.LeaderboardEvent) error {
	pipe := w.rdb.Pipeline()

	for _, event := range batch {
		pipe.ZAdd(ctx, config.CacheKey.LeaderboardKey(event.TestID), redis.Z{
			Score:  event.Score,
			Member: memberFor(event.UserID),
		})

		raw, err := json.Marshal(event)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, config.CacheKey.ResultsChannel(event.TestID), raw)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (w *LeaderboardWorker) applySingle(ctx context.Context, event *service.LeaderboardEvent) error {
	err := w.rdb.ZAdd(ctx, config.CacheKey.LeaderboardKey(event.TestID), redis.Z{
		Score:  event.Score,
		Member: memberFor(event.UserID),
	}).Err()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return w.rdb.Publish(ctx, config.CacheKey.ResultsChannel(event.TestID), raw).Err()
}

func memberFor(userID int) string {
	return fmt.Sprintf("user:%d", userID)
}
