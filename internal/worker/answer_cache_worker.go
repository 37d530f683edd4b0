package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openaula/exam-backend/internal/config"
)

// AnswerCacheWorker consumes the answer cache queue and mirrors durably
// written answers into the per-attempt Redis hash used by state reads and
// reconnects. PostgreSQL is always written first and synchronously by the
// recorder; this hash is a read cache that may lag and is rebuilt from the
// database on a miss.
type AnswerCacheWorker struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewAnswerCacheWorker creates a new AnswerCacheWorker.
func NewAnswerCacheWorker(rdb *redis.Client, log zerolog.Logger) *AnswerCacheWorker {
	return &AnswerCacheWorker{
		rdb: rdb,
		log: log.With().Str("component", "answer_cache_worker").Logger(),
	}
}

type answerCacheItem struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// Start begins the worker loop. Call in a goroutine.
func (w *AnswerCacheWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerCacheWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.AnswerCacheQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}
	w.apply(ctx, result[1])
}

func (w *AnswerCacheWorker) apply(ctx context.Context, raw string) {
	var item answerCacheItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	key := config.CacheKey.AttemptAnswersKey(item.AttemptID)
	if err := w.rdb.HSet(ctx, key, item.QuestionID, item.Value).Err(); err != nil {
		w.log.Warn().Err(err).
			Str("attempt_id", item.AttemptID).
			Msg("Cache mirror failed; state reads will fall back to database")
	}
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerCacheWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.AnswerCacheQueue).Result()
		if err != nil {
			break
		}
		w.apply(ctx, result)
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
