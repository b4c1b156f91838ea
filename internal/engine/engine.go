package engine

import (
	"errors"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
)

var ErrEmptyPool = errors.New("no players match the difficulty filter")
var ErrInvalidState = errors.New("invalid state for command")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrUnknownVariant = errors.New("unknown variant")

type Variant string

const (
	VariantClassic  Variant = "classic"
	VariantSurvival Variant = "survival"
	VariantDaily    Variant = "daily"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInRound   Phase = "in_round"
	PhaseCorrect   Phase = "correct"
	PhaseIncorrect Phase = "incorrect"
	PhaseFinished  Phase = "finished"
	PhaseEmptyPool Phase = "empty_pool"
)

// State is one quiz session as the presentation layer sees it.
type State struct {
	Variant            Variant
	Difficulty         catalog.Difficulty
	Phase              Phase
	Player             *catalog.Player
	Guess              string
	Feedback           string
	RoundIndex         int
	TotalRounds        int // 0 for Survival, which has no bound
	Score              int
	HighScore          int
	SuggestionsVisible bool
	Suggestions        []string
	DailyDate          string
}

type CommandType string

const (
	CmdStart   CommandType = "Start"
	CmdInput   CommandType = "Input"
	CmdFocus   CommandType = "Focus"
	CmdSelect  CommandType = "Select"
	CmdSubmit  CommandType = "Submit"
	CmdTimeout CommandType = "Timeout"
	CmdAdvance CommandType = "Advance"
	CmdRestart CommandType = "Restart"
)

/*
	CmdStart   -> EvtPlayerDrawn | EvtPoolEmpty | EvtSessionFinished (daily already done)
	CmdSubmit  -> EvtGuessCorrect [-> EvtHighScoreRaised] | EvtGuessIncorrect
	              survival miss and every daily guess also end the session:
	              -> [EvtDailyCompleted] -> EvtSessionFinished
	CmdTimeout -> EvtGuessIncorrect (classic rounds with a time limit)
	CmdAdvance -> EvtRoundAdvanced -> EvtPlayerDrawn | EvtSessionFinished
	CmdRestart -> same as CmdStart, keeping variant and filter
	Input/Focus/Select only touch the guess box and emit nothing.
*/

// Command carries everything Apply needs from the outside world: the drawn
// player, the persisted high score and the daily gate. Apply does no I/O.
type Command struct {
	Type        CommandType
	Variant     Variant
	Difficulty  catalog.Difficulty
	Player      *catalog.Player
	Text        string
	Suggestions []string
	HighScore   int
	TotalRounds int
	DailyDate   string
	DailyDone   bool
}

type EventType string

const (
	EvtPlayerDrawn     EventType = "PlayerDrawn"
	EvtGuessCorrect    EventType = "GuessCorrect"
	EvtGuessIncorrect  EventType = "GuessIncorrect"
	EvtRoundAdvanced   EventType = "RoundAdvanced"
	EvtSessionFinished EventType = "SessionFinished"
	EvtHighScoreRaised EventType = "HighScoreRaised"
	EvtDailyCompleted  EventType = "DailyCompleted"
	EvtPoolEmpty       EventType = "PoolEmpty"
)

type Event struct {
	Type   EventType
	Player string
	Points int
	Score  int
	Date   string
}

// Apply runs one command against s. On error the original state comes back
// unchanged, except ErrEmptyPool, which returns the state parked in
// PhaseEmptyPool so callers can render it.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStart:
		if !validVariant(cmd.Variant) {
			return nil, s, ErrUnknownVariant
		}
		ns := NewState(cmd.Variant, cmd.Difficulty, cmd.TotalRounds)
		ns.HighScore = cmd.HighScore
		ns.DailyDate = cmd.DailyDate
		return begin(ns, cmd)

	case CmdRestart:
		if s.Phase == PhaseIdle {
			return nil, s, ErrInvalidState
		}
		ns := NewState(s.Variant, s.Difficulty, s.TotalRounds)
		ns.HighScore = max(s.HighScore, cmd.HighScore)
		ns.DailyDate = s.DailyDate
		if cmd.DailyDate != "" {
			ns.DailyDate = cmd.DailyDate
		}
		return begin(ns, cmd)

	case CmdInput:
		newState := s
		newState.Guess = cmd.Text
		if cmd.Text != "" {
			newState.Suggestions = cmd.Suggestions
			newState.SuggestionsVisible = true
		} else {
			newState.SuggestionsVisible = false
		}
		return nil, newState, nil

	case CmdFocus:
		newState := s
		newState.SuggestionsVisible = true
		return nil, newState, nil

	case CmdSelect:
		newState := s
		newState.Guess = cmd.Text
		newState.SuggestionsVisible = false
		return nil, newState, nil

	case CmdSubmit:
		if s.Phase != PhaseInRound || s.Player == nil {
			return nil, s, ErrInvalidState
		}
		if Matches(s.Guess, s.Player.Name) {
			return correct(s)
		}
		return incorrect(s, FeedbackWrong+s.Player.Name)

	case CmdTimeout:
		if s.Variant != VariantClassic || s.Phase != PhaseInRound || s.Player == nil {
			return nil, s, ErrInvalidState
		}
		return incorrect(s, FeedbackTimeUp+s.Player.Name)

	case CmdAdvance:
		return advance(s, cmd)

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func begin(ns State, cmd Command) ([]Event, State, error) {
	if ns.Variant == VariantDaily && cmd.DailyDone {
		ns.Phase = PhaseFinished
		ns.Feedback = FeedbackDailyDone
		return []Event{{Type: EvtSessionFinished, Date: ns.DailyDate}}, ns, nil
	}
	if cmd.Player == nil {
		ns.Phase = PhaseEmptyPool
		return []Event{{Type: EvtPoolEmpty}}, ns, ErrEmptyPool
	}
	ns.Phase = PhaseInRound
	ns.Player = cmd.Player
	return []Event{{Type: EvtPlayerDrawn, Player: cmd.Player.Name}}, ns, nil
}

func correct(s State) ([]Event, State, error) {
	newState := clearGuess(s)
	points := Points(s.Variant, s.Difficulty)
	newState.Score += points
	newState.Feedback = FeedbackCorrect

	events := []Event{{Type: EvtGuessCorrect, Player: s.Player.Name, Points: points, Score: newState.Score}}

	switch s.Variant {
	case VariantSurvival:
		if newState.Score > newState.HighScore {
			newState.HighScore = newState.Score
			events = append(events, Event{Type: EvtHighScoreRaised, Score: newState.Score})
		}
		newState.Phase = PhaseCorrect
	case VariantDaily:
		events = append(events, finishDaily(&newState)...)
	default:
		newState.Phase = PhaseCorrect
	}
	return events, newState, nil
}

func incorrect(s State, feedback string) ([]Event, State, error) {
	newState := clearGuess(s)
	newState.Feedback = feedback

	events := []Event{{Type: EvtGuessIncorrect, Player: s.Player.Name, Score: s.Score}}

	switch s.Variant {
	case VariantSurvival:
		newState.Phase = PhaseFinished
		events = append(events, Event{Type: EvtSessionFinished, Score: s.Score})
	case VariantDaily:
		events = append(events, finishDaily(&newState)...)
	default:
		newState.Phase = PhaseIncorrect
	}
	return events, newState, nil
}

func finishDaily(s *State) []Event {
	s.RoundIndex = 1
	s.Phase = PhaseFinished
	return []Event{
		{Type: EvtDailyCompleted, Date: s.DailyDate},
		{Type: EvtSessionFinished, Score: s.Score, Date: s.DailyDate},
	}
}

func advance(s State, cmd Command) ([]Event, State, error) {
	switch {
	case s.Variant == VariantClassic && (s.Phase == PhaseCorrect || s.Phase == PhaseIncorrect):
	case s.Variant == VariantSurvival && s.Phase == PhaseCorrect:
	default:
		return nil, s, ErrInvalidState
	}

	newState := s
	newState.RoundIndex++
	events := []Event{{Type: EvtRoundAdvanced, Score: s.Score}}

	if s.Variant == VariantClassic && newState.RoundIndex >= s.TotalRounds {
		newState.Phase = PhaseFinished
		return append(events, Event{Type: EvtSessionFinished, Score: s.Score}), newState, nil
	}

	if cmd.Player == nil {
		newState.Phase = PhaseEmptyPool
		newState.Player = nil
		return append(events, Event{Type: EvtPoolEmpty}), newState, ErrEmptyPool
	}

	newState.Phase = PhaseInRound
	newState.Player = cmd.Player
	newState.Feedback = ""
	return append(events, Event{Type: EvtPlayerDrawn, Player: cmd.Player.Name}), newState, nil
}

func clearGuess(s State) State {
	s.Guess = ""
	s.Suggestions = nil
	s.SuggestionsVisible = false
	return s
}

func validVariant(v Variant) bool {
	switch v {
	case VariantClassic, VariantSurvival, VariantDaily:
		return true
	}
	return false
}
