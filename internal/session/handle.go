package session

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
	"github.com/DoyleJ11/playerid-backend/internal/engine"
)

// errUnknownName marks a selected suggestion that is not in the catalog.
var errUnknownName = errors.New("name not in catalog")

// handle turns one intent into an engine command, applies it and performs
// the side effects its events ask for. Only the loop goroutine calls it.
func (s *Session) handle(in intent) (Snapshot, error) {
	cmd, err := s.command(in)
	if errors.Is(err, errUnknownName) {
		s.log.Debug("ignoring unknown suggestion", zap.String("name", in.Text))
		return s.snapshot(), nil
	}
	if err != nil {
		return s.snapshot(), err
	}

	events, next, err := engine.Apply(s.state, cmd)
	switch {
	case err == nil, errors.Is(err, engine.ErrEmptyPool):
	case errors.Is(err, engine.ErrInvalidState):
		s.log.Debug("ignoring intent", zap.String("cmd", string(in.Cmd)),
			zap.String("phase", string(s.state.Phase)))
		return s.snapshot(), nil
	default:
		return s.snapshot(), err
	}

	prev := s.state
	s.state = next
	s.version++
	s.persist(events)
	s.rearm(prev, events)

	snap := s.snapshot()
	s.broadcast(snap)
	return snap, err
}

func (s *Session) command(in intent) (engine.Command, error) {
	cmd := engine.Command{Type: in.Cmd, Text: in.Text}

	switch in.Cmd {
	case engine.CmdStart:
		v, err := engine.ParseVariant(string(in.Variant))
		if err != nil {
			return cmd, err
		}
		cmd.Variant = v
		cmd.Difficulty = in.Difficulty
		cmd.TotalRounds = s.opts.TotalRounds
		s.pool = catalog.FilterByDifficulty(s.deps.Catalog, in.Difficulty)
		s.prepare(&cmd, v)

	case engine.CmdRestart:
		if s.state.Phase == engine.PhaseIdle {
			return cmd, nil // Apply rejects it
		}
		s.prepare(&cmd, s.state.Variant)

	case engine.CmdSelect:
		if _, ok := s.deps.Index.Lookup(in.Text); !ok {
			return cmd, errUnknownName
		}

	case engine.CmdInput:
		cmd.Suggestions = s.deps.Index.Suggest(in.Text, s.opts.SuggestionLimit)

	case engine.CmdAdvance:
		if engine.WantsPlayer(s.state) {
			cmd.Player = s.deck.draw(s.pool)
		}
	}
	return cmd, nil
}

// prepare fills in a fresh draw plus what the store knows for Start/Restart.
func (s *Session) prepare(cmd *engine.Command, v engine.Variant) {
	cmd.HighScore = s.deps.Records.HighScore()
	s.deck.reset()

	if v != engine.VariantDaily {
		cmd.Player = s.deck.draw(s.pool)
		return
	}

	date := engine.DateKey(s.deps.Now(), s.opts.DailyLocation)
	cmd.DailyDate = date
	cmd.DailyDone = s.deps.Records.DailyDone(s.ctx, date)
	if cmd.DailyDone {
		return
	}
	i, err := engine.DailyIndex(date, len(s.deps.Catalog))
	if err != nil {
		return
	}
	cmd.Player = &s.deps.Catalog[i]
}

func (s *Session) persist(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtHighScoreRaised:
			s.deps.Records.SaveHighScore(ev.Score)
		case engine.EvtDailyCompleted:
			s.deps.Records.MarkDaily(ev.Date)
		}
	}
}

// rearm keeps the two timers in line with the phase the session just entered.
func (s *Session) rearm(prev engine.State, events []engine.Event) {
	drawn := engine.ContainsEvent(events, engine.EvtPlayerDrawn)
	if prev.Phase == s.state.Phase && !drawn {
		return
	}

	s.stopTimer(feedbackTimer)
	s.stopTimer(roundTimer)
	s.deadline = time.Time{}

	switch {
	case engine.AwaitingAdvance(s.state):
		s.armTimer(feedbackTimer, s.opts.FeedbackDelay)
	case drawn && s.state.Variant == engine.VariantClassic && s.opts.RoundTimeLimit > 0:
		s.deadline = s.deps.Now().Add(s.opts.RoundTimeLimit)
		s.armTimer(roundTimer, s.opts.RoundTimeLimit)
	}
}

func (s *Session) armTimer(kind timerKind, d time.Duration) {
	s.gens[kind]++
	gen := s.gens[kind]
	s.timers[kind] = time.AfterFunc(d, func() {
		select {
		case s.inbox <- timerFired{Kind: kind, Gen: gen}:
		case <-s.ctx.Done():
		}
	})
}

// stopTimer also bumps the generation so a fire already queued is dropped.
func (s *Session) stopTimer(kind timerKind) {
	if t := s.timers[kind]; t != nil {
		t.Stop()
		s.timers[kind] = nil
	}
	s.gens[kind]++
}
