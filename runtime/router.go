// Package runtime owns live sessions, presence and event routing.
// Business rules about messages and groups stay behind the contract interfaces.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/errors"
	"chat-presence/observability"
)

type handlerFunc func(ctx context.Context, s *Session, env event.Envelope) error

type RouterConfig struct {
	BufferSize int
}

// Router drives every session through Connecting, Authenticated and Closed.
type Router struct {
	verifier  contract.TokenVerifier
	store     contract.MessageStore
	authority contract.MembershipAuthority
	users     contract.UserDirectory
	directory *Directory
	log       *slog.Logger
	metrics   *observability.Metrics
	cfg       RouterConfig
	handlers  map[event.Type]handlerFunc

	baseCtx context.Context
	cancel  context.CancelFunc
	closed  atomic.Bool
}

func NewRouter(
	verifier contract.TokenVerifier,
	store contract.MessageStore,
	authority contract.MembershipAuthority,
	users contract.UserDirectory,
	directory *Directory,
	log *slog.Logger,
	metrics *observability.Metrics,
	cfg RouterConfig,
) *Router {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		verifier:  verifier,
		store:     store,
		authority: authority,
		users:     users,
		directory: directory,
		log:       log,
		metrics:   metrics,
		cfg:       cfg,
		baseCtx:   ctx,
		cancel:    cancel,
	}
	r.handlers = map[event.Type]handlerFunc{
		event.LoadMessagesType: r.handleLoadMessages,
		event.SendMessageType:  r.handleSendMessage,
		event.TypingType:       r.handleTyping,
		event.JoinGroupType:    r.handleJoinGroup,
		event.LeaveGroupType:   r.handleLeaveGroup,
		event.CallType:         r.handleCall,
	}
	return r
}

func (r *Router) Directory() *Directory {
	return r.directory
}

// Accepting is false once Close has been called.
func (r *Router) Accepting() bool {
	return !r.closed.Load()
}

// Authenticate runs the handshake check only. Nothing is registered.
func (r *Router) Authenticate(credential string) (domain.Identity, error) {
	identity, err := r.verifier.Verify(credential)
	if err != nil {
		r.metrics.HandshakeRefused()
		r.log.Debug("Handshake refused", "error", err)
		return domain.Identity{}, err
	}
	return identity, nil
}

// Admit turns a verified identity into a registered session joined to its personal room.
// A previous session of the same user receives a 409 error and is closed.
func (r *Router) Admit(ctx context.Context, identity domain.Identity) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.Accepting() {
		return nil, fmt.Errorf("%w: server is shutting down", errors.ErrUnavailable)
	}

	s := newSession(r.baseCtx, identity, r.cfg.BufferSize)
	s.setState(StateAuthenticated)
	superseded := r.directory.Register(s)
	if s.State() == StateClosed {
		// Close ran between the check above and the registration.
		return nil, fmt.Errorf("%w: server is shutting down", errors.ErrUnavailable)
	}
	r.directory.Join(domain.UserRoom(identity.UserID), s)
	r.metrics.SessionOpened()
	r.log.Info("Session opened", "user_id", identity.UserID, "session_id", s.ID())

	if superseded != nil {
		r.reply(superseded, event.ErrorType, event.Error{
			Message: errors.ErrSessionSuperseded.Error(),
			Code:    errors.Code(errors.ErrSessionSuperseded),
		})
		r.log.Info("Session superseded", "user_id", identity.UserID, "session_id", superseded.ID())
		r.Disconnect(superseded)
	}
	return s, nil
}

// Connect verifies the credential and admits the session.
func (r *Router) Connect(ctx context.Context, credential string) (*Session, error) {
	identity, err := r.Authenticate(credential)
	if err != nil {
		return nil, err
	}
	return r.Admit(ctx, identity)
}

// Dispatch handles one inbound frame.
// Failures are answered with an error event to the sender only and returned for logging.
func (r *Router) Dispatch(ctx context.Context, s *Session, raw []byte) error {
	if s.State() != StateAuthenticated {
		return r.reject(s, "", errors.ErrSessionClosed)
	}
	env, err := event.Decode(raw)
	if err != nil {
		return r.reject(s, "", err)
	}
	r.metrics.EventReceived(env.Event.String())

	handle, ok := r.handlers[env.Event]
	if !ok {
		return r.reject(s, env.Event, fmt.Errorf("%w: unknown event %q", errors.ErrValidation, env.Event))
	}
	if err := handle(ctx, s, env); err != nil {
		return r.reject(s, env.Event, err)
	}
	return nil
}

// Disconnect is idempotent. The presence entry goes away only if s still owns it.
func (r *Router) Disconnect(s *Session) {
	s.once.Do(func() {
		s.close()
		owned := r.directory.Deregister(s)
		r.metrics.SessionClosed()
		r.log.Info("Session closed", "user_id", s.UserID(), "session_id", s.ID(), "owned_presence", owned)
	})
}

// Close stops admitting sessions and closes the open ones.
// Their connections deregister through Disconnect as they wind down.
func (r *Router) Close() {
	if r.closed.Swap(true) {
		return
	}
	n := r.directory.CloseAll()
	r.cancel()
	r.log.Info("Router closed", "sessions", n)
}

func (r *Router) reply(s *Session, t event.Type, payload any) {
	frame, err := event.Encode(t, payload)
	if err != nil {
		r.log.Error("Unable to encode frame", "event", t, "error", err)
		return
	}
	r.directory.Send(s, frame)
}

func (r *Router) broadcast(room domain.RoomID, t event.Type, payload any) int {
	frame, err := event.Encode(t, payload)
	if err != nil {
		r.log.Error("Unable to encode frame", "event", t, "error", err)
		return 0
	}
	return r.directory.Broadcast(room, frame)
}

func (r *Router) reject(s *Session, name event.Type, err error) error {
	code := errors.Code(err)
	r.metrics.EventRejected(name.String(), code)
	if code >= 500 {
		r.log.Warn("Event failed", "event", name, "user_id", s.UserID(), "session_id", s.ID(), "code", code, "error", err)
	} else {
		r.log.Debug("Event rejected", "event", name, "user_id", s.UserID(), "code", code, "error", err)
	}
	r.reply(s, event.ErrorType, event.Error{Message: errors.Message(err), Code: code, Event: name})
	return err
}
