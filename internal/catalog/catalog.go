// Package catalog holds the bundled player dataset the quiz draws from.
// The bundle is compiled into the binary and never changes at runtime.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

type Difficulty string

const (
	DifficultyAny    Difficulty = ""
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty accepts the bundle spelling in any case. An empty string
// means no filter.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return DifficultyAny, nil
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	default:
		return DifficultyAny, fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

type CareerEntry struct {
	Years string `json:"years"`
	Team  string `json:"team"`
	Apps  *int   `json:"apps,omitempty"`
	Goals *int   `json:"goals,omitempty"`
	Loan  bool   `json:"loan"`
}

type DifficultyInfo struct {
	Score int        `json:"score,omitempty"`
	Level Difficulty `json:"level"`
}

type Player struct {
	Name       string          `json:"name"`
	Career     []CareerEntry   `json:"career"`
	Difficulty *DifficultyInfo `json:"difficulty,omitempty"`
}

// Level returns the player's difficulty tag, or DifficultyAny when the
// record carries none.
func (p Player) Level() Difficulty {
	if p.Difficulty == nil {
		return DifficultyAny
	}
	return p.Difficulty.Level
}

//go:embed data/players.json
var bundle []byte

// Load decodes the embedded bundle in source order.
func Load() ([]Player, error) {
	return Decode(bytes.NewReader(bundle))
}

// MustLoad is Load for process start, where a broken bundle is a build defect.
func MustLoad() []Player {
	players, err := Load()
	if err != nil {
		panic(err)
	}
	return players
}

func Decode(r io.Reader) ([]Player, error) {
	var players []Player
	if err := json.NewDecoder(r).Decode(&players); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, p := range players {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("decode catalog: player %d has no name", i)
		}
	}
	return players, nil
}

// FilterByDifficulty returns the players tagged with level, keeping catalog
// order. DifficultyAny returns the whole catalog. An empty result is valid.
func FilterByDifficulty(players []Player, level Difficulty) []Player {
	if level == DifficultyAny {
		return players
	}
	out := make([]Player, 0, len(players))
	for _, p := range players {
		if p.Level() == level {
			out = append(out, p)
		}
	}
	return out
}
