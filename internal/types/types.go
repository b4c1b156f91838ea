package types

import (
	"github.com/DoyleJ11/playerid-backend/internal/engine"
	"github.com/DoyleJ11/playerid-backend/internal/session"
	wire "github.com/DoyleJ11/playerid-backend/pkg/types"
)

type ClientMessage struct {
	Type       string `json:"type"`
	Variant    string `json:"variant,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Text       string `json:"text,omitempty"`
}

type ServerMessage struct {
	Type    string         `json:"type"` // "StateSnapshot" | "Error"
	Version int            `json:"version,omitempty"`
	State   *wire.Snapshot `json:"state,omitempty"`
	Error   string         `json:"error,omitempty"`
}

const ConditionEmptyPool = "empty_pool"

// ToWire flattens a session snapshot into the client contract.
func ToWire(snap session.Snapshot) wire.Snapshot {
	st := snap.State
	out := wire.Snapshot{
		Variant:            string(st.Variant),
		Difficulty:         string(st.Difficulty),
		Phase:              string(st.Phase),
		Guess:              st.Guess,
		Feedback:           st.Feedback,
		Score:              st.Score,
		Round:              st.RoundIndex,
		TotalRounds:        st.TotalRounds,
		Finished:           st.Phase == engine.PhaseFinished,
		Suggestions:        st.Suggestions,
		SuggestionsVisible: st.SuggestionsVisible,
		HighScore:          st.HighScore,
		DailyDate:          st.DailyDate,
		RoundDeadline:      snap.RoundDeadline,
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	if st.Phase == engine.PhaseEmptyPool {
		out.Condition = ConditionEmptyPool
	}
	if p := st.Player; p != nil {
		wp := &wire.Player{Name: p.Name, Difficulty: string(p.Level()), Career: make([]wire.CareerEntry, len(p.Career))}
		for i, c := range p.Career {
			wp.Career[i] = wire.CareerEntry{Years: c.Years, Team: c.Team, Apps: c.Apps, Goals: c.Goals, Loan: c.Loan}
		}
		out.Player = wp
	}
	return out
}

func StateMessage(snap session.Snapshot) ServerMessage {
	w := ToWire(snap)
	return ServerMessage{Type: "StateSnapshot", Version: snap.Version, State: &w}
}

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: "Error", Error: err.Error()}
}
