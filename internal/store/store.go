// Package store is the key/value persistence behind high scores and the
// daily gate. Every adapter reports backend trouble as ErrUnavailable so
// callers can degrade without caring which backend is wired.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("persistent store unavailable")
var ErrUnknownDriver = errors.New("unknown store driver")

const (
	HighScoreKey   = "SurvivalHighScore"
	dailyKeyPrefix = "Daily_"
)

// DailyKey is the gate key for a YYYY-MM-DD date. Only its presence matters.
func DailyKey(date string) string {
	return dailyKeyPrefix + date
}

type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open picks an adapter by driver name.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
