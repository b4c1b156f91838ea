package types

import "time"

// Snapshot is everything a client needs to render one quiz screen.
type Snapshot struct {
	Variant            string    `json:"variant"`
	Difficulty         string    `json:"difficulty,omitempty"`
	Phase              string    `json:"phase"`
	Condition          string    `json:"condition,omitempty"` // "empty_pool" when the filter matched nobody
	Player             *Player   `json:"player,omitempty"`
	Guess              string    `json:"guess"`
	Feedback           string    `json:"feedback,omitempty"`
	Score              int       `json:"score"`
	Round              int       `json:"round"`
	TotalRounds        int       `json:"total_rounds,omitempty"`
	Finished           bool      `json:"finished"`
	Suggestions        []string  `json:"suggestions"`
	SuggestionsVisible bool      `json:"suggestions_visible"`
	HighScore          int       `json:"high_score"`
	DailyDate          string    `json:"daily_date,omitempty"`
	RoundDeadline      time.Time `json:"round_deadline,omitzero"`
}

type Player struct {
	Name       string        `json:"name"`
	Career     []CareerEntry `json:"career"`
	Difficulty string        `json:"difficulty,omitempty"`
}

type CareerEntry struct {
	Years string `json:"years"`
	Team  string `json:"team"`
	Apps  *int   `json:"apps,omitempty"`
	Goals *int   `json:"goals,omitempty"`
	Loan  bool   `json:"loan,omitempty"`
}

// CreatedSession answers POST /sessions.
type CreatedSession struct {
	ID       string   `json:"id"`
	Snapshot Snapshot `json:"snapshot"`
}

// Suggestions answers GET /suggest.
type Suggestions struct {
	Names []string `json:"names"`
}

// Records answers GET /records.
type Records struct {
	HighScore      int    `json:"high_score"`
	DailyDate      string `json:"daily_date"`
	DailyCompleted bool   `json:"daily_completed"`
}
