package engine

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
)

const DefaultTotalRounds = 2

const (
	FeedbackCorrect   = "Correct!"
	FeedbackWrong     = "Wrong! Answer: "
	FeedbackTimeUp    = "Time's up! Answer: "
	FeedbackDailyDone = "You've completed today's challenge!"
)

var classicPoints = map[catalog.Difficulty]int{
	catalog.DifficultyAny:    1,
	catalog.DifficultyEasy:   1,
	catalog.DifficultyMedium: 2,
	catalog.DifficultyHard:   3,
}

func NewState(v Variant, d catalog.Difficulty, totalRounds int) State {
	s := State{
		Variant:    v,
		Difficulty: d,
		Phase:      PhaseIdle,
	}
	switch v {
	case VariantClassic:
		s.TotalRounds = totalRounds
		if s.TotalRounds <= 0 {
			s.TotalRounds = DefaultTotalRounds
		}
	case VariantDaily:
		// Everyone gets the same player on a given date, so no filter applies.
		s.Difficulty = catalog.DifficultyAny
		s.TotalRounds = 1
	}
	return s
}

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantClassic, VariantSurvival, VariantDaily:
		return v, nil
	case "timed":
		return VariantClassic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Points awarded for a correct guess.
func Points(v Variant, d catalog.Difficulty) int {
	if v != VariantClassic {
		return 1
	}
	if p, ok := classicPoints[d]; ok {
		return p
	}
	return 1
}

// WantsPlayer reports whether the next Advance will draw a new player.
func WantsPlayer(s State) bool {
	switch s.Variant {
	case VariantClassic:
		return (s.Phase == PhaseCorrect || s.Phase == PhaseIncorrect) && s.RoundIndex+1 < s.TotalRounds
	case VariantSurvival:
		return s.Phase == PhaseCorrect
	default:
		return false
	}
}

// AwaitingAdvance reports whether the session is showing round feedback.
func AwaitingAdvance(s State) bool {
	return s.Phase == PhaseCorrect || s.Phase == PhaseIncorrect
}

func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Matches is the only answer check: no partial credit, no fuzzy matching.
func Matches(guess, name string) bool {
	return Normalize(guess) == Normalize(name)
}
