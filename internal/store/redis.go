package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ayush/expense-tracker/backend/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// ExpenseListCache caches each user's expense list as a JSON blob next to a
// per-user generation counter. Cache failures are logged and treated as
// misses; they never fail a request.
type ExpenseListCache struct {
	rdb *redis.Client
	ttl time.Duration
	log logrus.FieldLogger
}

func NewExpenseListCache(rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *ExpenseListCache {
	return &ExpenseListCache{rdb: rdb, ttl: ttl, log: log}
}

func listKey(userID string) string { return "expenses:" + userID }
func genKey(userID string) string  { return "expenses:" + userID + ":gen" }

func (c *ExpenseListCache) Get(ctx context.Context, userID string) ([]models.Expense, bool) {
	data, err := c.rdb.Get(ctx, listKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("user", userID).Warn("expense cache read failed")
		}
		return nil, false
	}
	var list []models.Expense
	if err := json.Unmarshal(data, &list); err != nil {
		c.log.WithError(err).WithField("user", userID).Warn("expense cache entry corrupt")
		return nil, false
	}
	return list, true
}

// Generation returns the user's current generation. A user never
// invalidated is at generation 0. ok is false when Redis cannot answer.
func (c *ExpenseListCache) Generation(ctx context.Context, userID string) (int64, bool) {
	gen, err := c.rdb.Get(ctx, genKey(userID)).Int64()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		c.log.WithError(err).WithField("user", userID).Warn("expense cache generation read failed")
		return 0, false
	}
}

// Set stores list only while the user's generation still equals gen.
func (c *ExpenseListCache) Set(ctx context.Context, userID string, gen int64, list []models.Expense) {
	data, err := json.Marshal(list)
	if err != nil {
		c.log.WithError(err).Warn("expense cache marshal failed")
		return
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(userID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, listKey(userID), data, c.ttl)
			return nil
		})
		return err
	}, genKey(userID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.log.WithField("user", userID).Debug("expense cache fill skipped after concurrent write")
	default:
		c.log.WithError(err).WithField("user", userID).Warn("expense cache write failed")
	}
}

// Invalidate drops the cached list and bumps the generation so in-flight
// fills started before the write are discarded.
func (c *ExpenseListCache) Invalidate(ctx context.Context, userID string) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Del(ctx, listKey(userID))
		return nil
	})
	if err != nil {
		c.log.WithError(err).WithField("user", userID).Warn("expense cache invalidate failed")
	}
}

var errStaleGeneration = errors.New("expense cache generation changed")
