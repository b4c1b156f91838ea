// Package records owns the two persisted facts of the quiz: the survival
// high score and which daily challenges are done. Reads degrade to defaults
// when the store is down; writes are best effort and never block a session.
package records

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/playerid-backend/internal/store"
)

const DefaultTimeout = 2 * time.Second

type Keeper struct {
	store   store.Store
	logger  *zap.Logger
	timeout time.Duration

	mu        sync.Mutex
	highScore int
	dailyDone map[string]bool

	writes errgroup.Group
}

func NewKeeper(s store.Store, logger *zap.Logger, timeout time.Duration) *Keeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Keeper{
		store:     s,
		logger:    logger.Named("records"),
		timeout:   timeout,
		dailyDone: make(map[string]bool),
	}
}

// Load reads the persisted high score once at process start. A missing,
// unreadable or malformed value leaves the cache at 0.
func (k *Keeper) Load(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	raw, ok, err := k.store.Get(ctx, store.HighScoreKey)
	if err != nil {
		k.logger.Warn("high score read failed, starting from 0", zap.Error(err))
		return 0
	}
	if !ok {
		return 0
	}
	score, err := strconv.Atoi(raw)
	if err != nil || score < 0 {
		k.logger.Warn("ignoring malformed high score", zap.String("value", raw))
		return 0
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.highScore = max(k.highScore, score)
	return k.highScore
}

func (k *Keeper) HighScore() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.highScore
}

// Raise lifts the cached high score when score beats it and reports
// whether it did. It does not write; see SaveHighScore.
func (k *Keeper) Raise(score int) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if score <= k.highScore {
		return false
	}
	k.highScore = score
	return true
}

// DailyDone reports whether the gate for date is set. A date completed in
// this process counts even if its write is pending or failed; otherwise an
// unreadable store means not done.
func (k *Keeper) DailyDone(ctx context.Context, date string) bool {
	k.mu.Lock()
	done := k.dailyDone[date]
	k.mu.Unlock()
	if done {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	_, ok, err := k.store.Get(ctx, store.DailyKey(date))
	if err != nil {
		k.logger.Warn("daily gate read failed, treating as not done",
			zap.String("date", date), zap.Error(err))
		return false
	}
	if ok {
		k.mu.Lock()
		k.dailyDone[date] = true
		k.mu.Unlock()
	}
	return ok
}

// SaveHighScore queues a write when score beats the cached high score.
// Another session may already have gone higher, in which case nothing is written.
func (k *Keeper) SaveHighScore(score int) {
	if !k.Raise(score) {
		return
	}
	k.write(store.HighScoreKey, strconv.Itoa(score))
}

// MarkDaily closes the gate for date in memory at once and queues the write.
func (k *Keeper) MarkDaily(date string) {
	k.mu.Lock()
	k.dailyDone[date] = true
	k.mu.Unlock()
	k.write(store.DailyKey(date), "1")
}

func (k *Keeper) write(key, value string) {
	k.writes.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
		defer cancel()
		if err := k.store.Set(ctx, key, value); err != nil {
			level := zap.ErrorLevel
			if errors.Is(err, store.ErrUnavailable) {
				level = zap.WarnLevel
			}
			k.logger.Log(level, "record write failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	})
}

// Flush waits for queued writes.
func (k *Keeper) Flush() {
	_ = k.writes.Wait()
}
