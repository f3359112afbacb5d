package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"chat-presence/domain"

	"github.com/google/uuid"
)

type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Session is one live connection and the identity resolved at handshake.
// The identity never changes for the lifetime of the session.
type Session struct {
	id       string
	identity domain.Identity
	state    atomic.Int32
	send     chan []byte
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once

	// rooms is guarded by the Directory lock.
	rooms map[domain.RoomID]struct{}
}

func newSession(parent context.Context, identity domain.Identity, bufferSize int) *Session {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan []byte, bufferSize),
		ctx:      ctx,
		cancel:   cancel,
		rooms:    make(map[domain.RoomID]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.identity.UserID }

func (s *Session) Identity() domain.Identity { return s.identity }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(state State) { s.state.Store(int32(state)) }

// Context is cancelled when the session closes.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Outbound is drained by the connection writer. It is never closed.
func (s *Session) Outbound() <-chan []byte { return s.send }

type enqueueResult int

const (
	enqueued enqueueResult = iota
	queueFull
	sessionClosed
)

// enqueue never blocks, it is called with the Directory lock held.
func (s *Session) enqueue(frame []byte) enqueueResult {
	if s.State() == StateClosed {
		return sessionClosed
	}
	select {
	case s.send <- frame:
		return enqueued
	default:
		return queueFull
	}
}

func (s *Session) close() {
	s.setState(StateClosed)
	s.cancel()
}
