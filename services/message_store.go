package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/observability"
	"chat-presence/repositories"

	"github.com/google/uuid"
)

// MessageStore persists drafts and returns them denormalised for delivery.
// It never edits or deletes messages.
type MessageStore struct {
	messages         repositories.IMessageRepository
	users            repositories.IUserRepository
	writes           *Breaker
	reads            *Breaker
	log              *slog.Logger
	metrics          *observability.Metrics
	maxContentLength int
	now              func() time.Time
	newID            func() string
	censor           func(string) string
}

type MessageStoreOption func(*MessageStore)

func WithClock(now func() time.Time) MessageStoreOption {
	return func(s *MessageStore) { s.now = now }
}

func WithIDGenerator(newID func() string) MessageStoreOption {
	return func(s *MessageStore) { s.newID = newID }
}

// WithCensor rewrites the content of text messages before they are stored.
func WithCensor(censor func(string) string) MessageStoreOption {
	return func(s *MessageStore) { s.censor = censor }
}

func NewMessageStore(
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	writes *Breaker,
	reads *Breaker,
	log *slog.Logger,
	metrics *observability.Metrics,
	maxContentLength int,
	opts ...MessageStoreOption,
) *MessageStore {
	s := &MessageStore{
		messages:         messages,
		users:            users,
		writes:           writes,
		reads:            reads,
		log:              log,
		metrics:          metrics,
		maxContentLength: maxContentLength,
		now:              time.Now,
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append validates, persists and returns the delivered shape of a message.
// The creation time is always assigned here, never taken from the client.
// Writes have their own breaker, lookups of the participants go through the read one.
func (s *MessageStore) Append(ctx context.Context, draft domain.Draft) (domain.StoredMessage, error) {
	if err := draft.Validate(s.maxContentLength); err != nil {
		return domain.StoredMessage{}, err
	}
	if s.writes.Open() {
		s.metrics.StorageFailed()
		return domain.StoredMessage{}, fmt.Errorf("%w: message writes suspended", errors.ErrStorage)
	}
	if s.censor != nil && draft.Kind == domain.KindText {
		draft.Content = s.censor(draft.Content)
	}

	sender, err := s.user(ctx, draft.SenderID)
	if err != nil {
		return domain.StoredMessage{}, err
	}
	var receiver *domain.PublicUser
	if !draft.Target.IsGroup() {
		r, err := s.user(ctx, draft.Target.ReceiverID())
		if err != nil {
			return domain.StoredMessage{}, err
		}
		receiver = &r
	}

	message := domain.Message{
		ID:         s.newID(),
		SenderID:   draft.SenderID,
		ReceiverID: draft.Target.ReceiverID(),
		GroupID:    draft.Target.GroupID(),
		Content:    draft.Content,
		Kind:       draft.Kind,
		FileURL:    draft.FileURL,
		CreatedAt:  s.now().UTC(),
	}
	stored, err := guard(s.writes, func() (domain.Message, error) {
		return s.messages.StoreMessage(ctx, message)
	})
	if err != nil {
		s.log.Error("Message not persisted", "sender", draft.SenderID, "error", err)
		return domain.StoredMessage{}, err
	}
	s.metrics.MessageStored()
	return denormalise(stored, sender, receiver), nil
}

// Query returns one conversation in ascending order.
// Users that can no longer be resolved are rendered by id only.
func (s *MessageStore) Query(ctx context.Context, filter domain.Filter) ([]domain.StoredMessage, error) {
	messages, err := guard(s.reads, func() ([]domain.Message, error) {
		return s.messages.GetMessages(ctx, filter)
	})
	if err != nil {
		s.log.Error("Messages not loaded", "error", err)
		return nil, err
	}

	known := map[string]domain.PublicUser{}
	resolve := func(id string) (domain.PublicUser, error) {
		if u, ok := known[id]; ok {
			return u, nil
		}
		u, err := s.user(ctx, id)
		if errors.Is(err, errors.ErrUserNotFound) {
			u, err = domain.PublicUser{ID: id}, nil
		}
		if err != nil {
			return domain.PublicUser{}, err
		}
		known[id] = u
		return u, nil
	}

	result := make([]domain.StoredMessage, 0, len(messages))
	for _, m := range messages {
		sender, err := resolve(m.SenderID)
		if err != nil {
			return nil, err
		}
		var receiver *domain.PublicUser
		if m.GroupID == "" {
			r, err := resolve(m.ReceiverID)
			if err != nil {
				return nil, err
			}
			receiver = &r
		}
		result = append(result, denormalise(m, sender, receiver))
	}
	return result, nil
}

func (s *MessageStore) user(ctx context.Context, id string) (domain.PublicUser, error) {
	u, err := guard(s.reads, func() (domain.User, error) {
		return s.users.GetUser(ctx, id)
	})
	if err != nil {
		return domain.PublicUser{}, err
	}
	return u.Public(), nil
}

func denormalise(m domain.Message, sender domain.PublicUser, receiver *domain.PublicUser) domain.StoredMessage {
	return domain.StoredMessage{
		ID:        m.ID,
		Sender:    sender,
		Receiver:  receiver,
		Group:     m.GroupID,
		Content:   m.Content,
		Kind:      m.Kind,
		FileURL:   m.FileURL,
		CreatedAt: domain.Timestamp(m.CreatedAt),
	}
}
