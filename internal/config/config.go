// Package config loads server settings from defaults, an optional config
// file, a .env file and PLAYERID_* environment variables, in rising order
// of precedence.
package config

import (
	"time"

	"github.com/DoyleJ11/playerid-backend/internal/session"
)

type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Game   GameConfig   `mapstructure:"game" validate:"required"`
	Store  StoreConfig  `mapstructure:"store" validate:"required"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

type GameConfig struct {
	TotalRounds     int           `mapstructure:"total_rounds" validate:"gte=1,lte=100"`
	FeedbackDelay   time.Duration `mapstructure:"feedback_delay" validate:"gt=0"`
	RoundTimeLimit  time.Duration `mapstructure:"round_time_limit" validate:"gte=0"`
	SuggestionLimit int           `mapstructure:"suggestion_limit" validate:"gte=1,lte=20"`
	DailyTimezone   string        `mapstructure:"daily_timezone" validate:"required,timezone"`
}

type StoreConfig struct {
	Driver  string        `mapstructure:"driver" validate:"required,oneof=memory sqlite postgres"`
	DSN     string        `mapstructure:"dsn" validate:"required_unless=Driver memory"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// Location is where the daily challenge's calendar date is read. Load has
// already validated the name.
func (g GameConfig) Location() *time.Location {
	loc, err := time.LoadLocation(g.DailyTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (g GameConfig) SessionOptions() session.Options {
	return session.Options{
		TotalRounds:     g.TotalRounds,
		FeedbackDelay:   g.FeedbackDelay,
		RoundTimeLimit:  g.RoundTimeLimit,
		SuggestionLimit: g.SuggestionLimit,
		DailyLocation:   g.Location(),
	}
}
