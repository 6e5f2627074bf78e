// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/absurdly/internal/game"
	"github.com/jason-s-yu/absurdly/internal/models"
)

// DefaultQueueName is the Redis list round history records are pushed to.
const DefaultQueueName = "absurdly_rounds"

// RoundRecord is one tallied round as stored in the history queue.
type RoundRecord struct {
	GameID    string          `json:"game_id"`
	Round     int             `json:"round"`
	Prompt    *models.Card    `json:"prompt,omitempty"`
	Answers   []models.Answer `json:"answers"`
	Counts    map[string]int  `json:"counts"`
	Winners   []string        `json:"winners"`
	Timestamp int64           `json:"timestamp"`
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

type listPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Recorder pushes round results onto a Redis list for offline consumers.
type Recorder struct {
	rdb   listPusher
	queue string
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewRecorder(rdb listPusher, queue string, logger logrus.FieldLogger) *Recorder {
	if queue == "" {
		queue = DefaultQueueName
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Recorder{rdb: rdb, queue: queue, log: logger, now: time.Now}
}

// Publish serializes result and appends it to the queue.
func (r *Recorder) Publish(ctx context.Context, result game.RoundResult) error {
	record := RoundRecord{
		GameID:    result.GameID,
		Round:     result.Round,
		Prompt:    result.Prompt,
		Answers:   result.Answers,
		Counts:    result.Counts,
		Winners:   result.Winners,
		Timestamp: r.now().Unix(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundRecord: %w", err)
	}
	if err := r.rdb.RPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", r.queue, err)
	}
	return nil
}

// Watch records every round tallied by g until the session closes. Failures are
// logged and never reach the session.
func (r *Recorder) Watch(g *game.GameSession) {
	events, _ := g.Subscribe()
	go func() {
		for ev := range events {
			if ev.Type != game.EventRoundTallied || ev.Result == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.Publish(ctx, *ev.Result); err != nil {
				r.log.WithError(err).WithFields(logrus.Fields{
					"game_id": ev.GameID,
					"round":   ev.Round,
				}).Warn("failed to record round")
			}
			cancel()
		}
	}()
}
