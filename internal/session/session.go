// Package session runs one live quiz session as an actor. Every intent, and
// every timer fire, is a message on the inbox handled by a single loop, so
// engine state is never touched from two goroutines.
package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
	"github.com/DoyleJ11/playerid-backend/internal/engine"
	"github.com/DoyleJ11/playerid-backend/internal/names"
	"github.com/DoyleJ11/playerid-backend/internal/records"
	"github.com/DoyleJ11/playerid-backend/internal/store"
)

var ErrClosed = errors.New("session closed")

const DefaultFeedbackDelay = 800 * time.Millisecond

type Msg interface{ isSessionMsg() }

type intent struct {
	Cmd        engine.CommandType
	Variant    engine.Variant
	Difficulty catalog.Difficulty
	Text       string
	Reply      chan reply
}

func (intent) isSessionMsg() {}

type reply struct {
	Snap Snapshot
	Err  error
}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type getState struct {
	Reply chan View
}

func (getState) isSessionMsg() {}

type timerKind int

const (
	feedbackTimer timerKind = iota
	roundTimer
)

type timerFired struct {
	Kind timerKind
	Gen  int
}

func (timerFired) isSessionMsg() {}

type Snapshot struct {
	Version       int
	State         engine.State
	RoundDeadline time.Time // zero unless a timed classic round is running
}

type View struct {
	Snapshot
	NumClients int
}

// Deps are shared, read-only collaborators built once per process.
type Deps struct {
	Catalog []catalog.Player
	Index   *names.Index
	Records *records.Keeper
	Logger  *zap.Logger
	Rand    *rand.Rand
	Now     func() time.Time
}

// Options are the per-session knobs coming from config.
type Options struct {
	TotalRounds     int
	FeedbackDelay   time.Duration
	RoundTimeLimit  time.Duration // 0 leaves classic rounds untimed
	SuggestionLimit int
	DailyLocation   *time.Location
}

type Session struct {
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	deps Deps
	opts Options
	log  *zap.Logger

	pool     []catalog.Player
	deck     *deck
	deadline time.Time

	timers [2]*time.Timer
	gens   [2]int
}

func New(parent context.Context, deps Deps, opts Options) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if deps.Records == nil {
		deps.Records = records.NewKeeper(store.NewMemory(), deps.Logger, 0)
	}
	if deps.Index == nil {
		deps.Index = names.Build(deps.Catalog)
	}
	if opts.FeedbackDelay <= 0 {
		opts.FeedbackDelay = DefaultFeedbackDelay
	}
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = names.DefaultLimit
	}
	if opts.DailyLocation == nil {
		opts.DailyLocation = time.UTC
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:   make(chan Msg, 64),
		state:   engine.State{Phase: engine.PhaseIdle},
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		deps:    deps,
		opts:    opts,
		log:     deps.Logger.Named("session"),
	}
	s.deck = newDeck(deps.Rand)

	go s.loop()
	return s
}

func (s *Session) Start(ctx context.Context, v engine.Variant, d catalog.Difficulty) (Snapshot, error) {
	return s.do(ctx, intent{Cmd: engine.CmdStart, Variant: v, Difficulty: d})
}

func (s *Session) InputChange(ctx context.Context, text string) (Snapshot, error) {
	return s.do(ctx, intent{Cmd: engine.CmdInput, Text: text})
}

func (s *Session) Focus(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, intent{Cmd: engine.CmdFocus})
}

func (s *Session) SelectSuggestion(ctx context.Context, name string) (Snapshot, error) {
	return s.do(ctx, intent{Cmd: engine.CmdSelect, Text: name})
}

func (s *Session) Submit(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, intent{Cmd: engine.CmdSubmit})
}

// Advance skips the rest of the feedback delay.
func (s *Session) Advance(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, intent{Cmd: engine.CmdAdvance})
}

func (s *Session) Restart(ctx context.Context) (Snapshot, error) {
	return s.do(ctx, intent{Cmd: engine.CmdRestart})
}

func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	v, err := s.inspect(ctx)
	return v.Snapshot, err
}

// Join registers outbox for every snapshot broadcast; the current one is
// sent right away. The session closes outbox on Leave or teardown.
func (s *Session) Join(ctx context.Context, clientID string, outbox chan Snapshot) error {
	return s.send(ctx, Join{ClientID: clientID, Outbox: outbox})
}

func (s *Session) Leave(ctx context.Context, clientID string) error {
	return s.send(ctx, Leave{ClientID: clientID})
}

// Close tears the session down and waits for the loop to exit. Pending
// timers are stopped and can no longer change state.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) send(ctx context.Context, m Msg) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- m:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) do(ctx context.Context, in intent) (Snapshot, error) {
	in.Reply = make(chan reply, 1)
	if err := s.send(ctx, in); err != nil {
		return Snapshot{}, err
	}
	select {
	case r := <-in.Reply:
		return r.Snap, r.Err
	case <-s.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) inspect(ctx context.Context) (View, error) {
	ch := make(chan View, 1)
	if err := s.send(ctx, getState{Reply: ch}); err != nil {
		return View{}, err
	}
	select {
	case v := <-ch:
		return v, nil
	case <-s.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				s.deliver(msg.ClientID, msg.Outbox, s.snapshot())

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case intent:
				snap, err := s.handle(msg)
				msg.Reply <- reply{Snap: snap, Err: err}

			case timerFired:
				if msg.Gen != s.gens[msg.Kind] {
					break // stale
				}
				s.timers[msg.Kind] = nil
				cmd := engine.CmdAdvance
				if msg.Kind == roundTimer {
					cmd = engine.CmdTimeout
				}
				_, _ = s.handle(intent{Cmd: cmd})

			case getState:
				msg.Reply <- View{Snapshot: s.snapshot(), NumClients: len(s.clients)}
			}
		}
	}
}

func (s *Session) shutdown() {
	s.stopTimer(feedbackTimer)
	s.stopTimer(roundTimer)
	for id, ch := range s.clients {
		close(ch) // no more snapshots
		delete(s.clients, id)
	}
	s.log.Debug("session closed", zap.String("phase", string(s.state.Phase)))
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Version: s.version, State: s.state, RoundDeadline: s.deadline}
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		s.deliver(id, ch, snap)
	}
}

func (s *Session) deliver(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(s.clients, id)
	}
}
