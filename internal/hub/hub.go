// Package hub is the registry of live sessions. A session is created when a
// client mounts a mode screen and removed when it unmounts.
package hub

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/playerid-backend/internal/session"
)

var ErrSessionNotFound = errors.New("session not found")

type HubMsg interface{ isHubMsg() }

type Created struct {
	ID      string
	Session *session.Session
}

type CreateSession struct {
	Options session.Options
	Reply   chan Created
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

// RemoveSession closes the session and forgets it. Reply, if set, reports
// whether the id was known.
type RemoveSession struct {
	ID    string
	Reply chan bool
}

// ShutdownHub closes every session; Done is closed once they are all down.
type ShutdownHub struct {
	Done chan struct{}
}

type countSessions struct {
	Reply chan int
}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}
func (countSessions) isHubMsg() {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	deps     session.Deps
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, deps session.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		deps:     deps,
		log:      deps.Logger.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Create registers a fresh idle session.
func (h *Hub) Create(ctx context.Context, opts session.Options) (Created, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateSession{Options: opts, Reply: reply}); err != nil {
		return Created{}, err
	}
	return recv(ctx, h.done, reply)
}

func (h *Hub) Get(ctx context.Context, id string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.send(ctx, GetSession{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	s, err := recv(ctx, h.done, reply)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (h *Hub) Remove(ctx context.Context, id string) error {
	reply := make(chan bool, 1)
	if err := h.send(ctx, RemoveSession{ID: id, Reply: reply}); err != nil {
		return err
	}
	ok, err := recv(ctx, h.done, reply)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Shutdown closes every session and stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	if err := h.send(ctx, ShutdownHub{Done: done}); err != nil {
		return nil // already down
	}
	select {
	case <-done:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case <-h.done:
		return session.ErrClosed
	default:
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return session.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, done <-chan struct{}, ch <-chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-done:
		return zero, session.ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				id := uuid.NewString()
				deps := h.deps
				deps.Logger = h.deps.Logger.With(zap.String("session", id))
				deps.Rand = nil // *rand.Rand is not safe to share across session loops
				s := session.New(h.ctx, deps, msg.Options)
				h.sessions[id] = s
				h.log.Debug("session created", zap.String("session", id))
				msg.Reply <- Created{ID: id, Session: s}

			case GetSession:
				msg.Reply <- h.sessions[msg.ID] // May be nil

			case RemoveSession:
				s, ok := h.sessions[msg.ID]
				if ok {
					delete(h.sessions, msg.ID)
					s.Close()
					h.log.Debug("session removed", zap.String("session", msg.ID))
				}
				if msg.Reply != nil {
					msg.Reply <- ok
				}

			case countSessions:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				h.closeAll()
				h.cancel()
				close(msg.Done)
				return
			}
		}
	}
}

func (h *Hub) closeAll() {
	for id, s := range h.sessions {
		s.Close()
		delete(h.sessions, id)
	}
}
