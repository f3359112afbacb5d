package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/mocks"
	"chat-presence/moderation"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type storeFixture struct {
	store    *MessageStore
	messages *mocks.MockIMessageRepository
	users    *mocks.MockIUserRepository
	writes   *Breaker
	reads    *Breaker
}

func newStoreFixture(t *testing.T, maxFailures uint32) storeFixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	messages := mocks.NewMockIMessageRepository(ctrl)
	users := mocks.NewMockIUserRepository(ctrl)
	writes := NewBreaker(BreakerConfig{Name: "writes", MaxFailures: maxFailures, OpenTimeout: time.Minute}, log, nil)
	reads := NewBreaker(BreakerConfig{Name: "reads", MaxFailures: maxFailures, OpenTimeout: time.Minute}, log, nil)
	store := NewMessageStore(messages, users, writes, reads, log, nil, 100,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "msg-1" }),
	)
	return storeFixture{store: store, messages: messages, users: users, writes: writes, reads: reads}
}

func alice() domain.User {
	return domain.User{ID: "alice", Name: "Alice", Email: "alice@example.com", PasswordHash: "secret"}
}

func bob() domain.User {
	return domain.User{ID: "bob", Name: "Bob", Email: "bob@example.com", PasswordHash: "secret"}
}

func TestMessageStore_Append_Direct(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 5)
	ctx := context.Background()

	// Given both users exist
	f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(alice(), nil)
	f.users.EXPECT().GetUser(gomock.Any(), "bob").Return(bob(), nil)
	f.messages.EXPECT().
		StoreMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
			req.Equal("msg-1", m.ID)
			req.Equal(fixedNow, m.CreatedAt)
			req.Equal("  hi ", m.Content)
			req.Equal("bob", m.ReceiverID)
			req.Empty(m.GroupID)
			m.Seq = 1
			return m, nil
		})

	// When alice sends a padded message to bob
	stored, err := f.store.Append(ctx, domain.Draft{SenderID: "alice", Target: domain.DirectTo("bob"), Content: "  hi "})

	// Then the record is denormalised with public projections only and the content is stored as sent
	req.NoError(err)
	req.Equal("  hi ", stored.Content)
	req.Equal("msg-1", stored.ID)
	req.Equal(domain.PublicUser{ID: "alice", Name: "Alice", Email: "alice@example.com"}, stored.Sender)
	req.NotNil(stored.Receiver)
	req.Equal("bob", stored.Receiver.ID)
	req.Equal(domain.KindText, stored.Kind)
	req.Equal(fixedNow, stored.CreatedAt.Time())
}

func TestMessageStore_Append_Group(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 5)

	f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(alice(), nil)
	f.messages.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) { return m, nil })

	stored, err := f.store.Append(context.Background(), domain.Draft{SenderID: "alice", Target: domain.GroupTo("team"), Content: "yo"})

	req.NoError(err)
	req.Nil(stored.Receiver)
	req.Equal("team", stored.Group)
}

func TestMessageStore_Append_CensorsTextOnly(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 5)
	mod, err := moderation.NewModerator([]string{"badger"}, '*')
	req.NoError(err)
	WithCensor(mod.Censor)(f.store)

	f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(alice(), nil).Times(2)
	var contents []string
	f.messages.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
			contents = append(contents, m.Content)
			return m, nil
		})

	_, err = f.store.Append(context.Background(), domain.Draft{SenderID: "alice", Target: domain.GroupTo("team"), Content: "a b4dger here"})
	req.NoError(err)
	_, err = f.store.Append(context.Background(), domain.Draft{SenderID: "alice", Target: domain.GroupTo("team"),
		Content: "badger.png", Kind: domain.KindFile, FileURL: "https://files.example.com/badger.png"})
	req.NoError(err)

	req.Equal([]string{"a ****** here", "badger.png"}, contents)
}

func TestMessageStore_Append_RejectsBeforeStorage(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 5)

	// No repository call is expected
	_, err := f.store.Append(context.Background(), domain.Draft{SenderID: "alice", Target: domain.DirectTo("bob"), Content: " "})

	req.ErrorIs(err, errors.ErrValidation)
	req.Equal(400, errors.Code(err))
}

func TestMessageStore_Append_UnknownReceiver(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 5)

	f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(alice(), nil)
	f.users.EXPECT().GetUser(gomock.Any(), "ghost").Return(domain.User{}, errors.ErrUserNotFound)

	_, err := f.store.Append(context.Background(), domain.Draft{SenderID: "alice", Target: domain.DirectTo("ghost"), Content: "hi"})

	req.ErrorIs(err, errors.ErrUserNotFound)
	req.Equal(404, errors.Code(err))
	req.Equal("closed", f.reads.State().String())
}

func TestMessageStore_Append_StorageFailureOpensBreaker(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 2)
	ctx := context.Background()
	draft := domain.Draft{SenderID: "alice", Target: domain.GroupTo("team"), Content: "hi"}

	// Given a disk that fails twice
	f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(alice(), nil).Times(2)
	f.messages.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, stderrors.New("disk full")).
		Times(2)

	for i := 0; i < 2; i++ {
		_, err := f.store.Append(ctx, draft)
		req.ErrorIs(err, errors.ErrStorage)
		req.Equal(500, errors.Code(err))
	}

	// When a third message arrives the breaker refuses without touching storage
	_, err := f.store.Append(ctx, draft)

	// Then the failure is a storage error too
	req.ErrorIs(err, errors.ErrStorage)
	req.Equal("open", f.writes.State().String())
	req.Equal("closed", f.reads.State().String())
}

func TestMessageStore_Append_FailingWritesTripDespiteHealthyLookups(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 2)
	ctx := context.Background()
	draft := domain.Draft{SenderID: "alice", Target: domain.DirectTo("bob"), Content: "hi"}

	// Given lookups that always answer and a disk that always fails
	f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(alice(), nil).AnyTimes()
	f.users.EXPECT().GetUser(gomock.Any(), "bob").Return(bob(), nil).AnyTimes()
	f.users.EXPECT().GetUser(gomock.Any(), "ghost").Return(domain.User{}, errors.ErrUserNotFound).AnyTimes()
	f.messages.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, stderrors.New("disk full")).
		Times(2)

	// When sends keep coming, mixed with sends to an unknown user
	for i := 0; i < 10; i++ {
		_, err := f.store.Append(ctx, draft)
		req.ErrorIs(err, errors.ErrStorage)
		_, err = f.store.Append(ctx, domain.Draft{SenderID: "alice", Target: domain.DirectTo("ghost"), Content: "hi"})
		if i < 1 {
			req.ErrorIs(err, errors.ErrUserNotFound)
		}
	}

	// Then the disk was hit only until the write breaker opened
	req.Equal("open", f.writes.State().String())
	req.Equal("closed", f.reads.State().String())
}

func TestMessageStore_Query_ResolvesUsersOnce(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 5)

	f.messages.EXPECT().GetMessages(gomock.Any(), domain.Conversation("alice", "bob")).Return([]domain.Message{
		{ID: "1", SenderID: "alice", ReceiverID: "bob", Content: "a", Kind: domain.KindText, CreatedAt: fixedNow},
		{ID: "2", SenderID: "bob", ReceiverID: "alice", Content: "b", Kind: domain.KindText, CreatedAt: fixedNow},
		{ID: "3", SenderID: "gone", ReceiverID: "alice", Content: "c", Kind: domain.KindText, CreatedAt: fixedNow},
	}, nil)
	f.users.EXPECT().GetUser(gomock.Any(), "alice").Return(alice(), nil).Times(1)
	f.users.EXPECT().GetUser(gomock.Any(), "bob").Return(bob(), nil).Times(1)
	f.users.EXPECT().GetUser(gomock.Any(), "gone").Return(domain.User{}, errors.ErrUserNotFound).Times(1)

	messages, err := f.store.Query(context.Background(), domain.Conversation("bob", "alice"))

	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("Alice", messages[0].Sender.Name)
	req.Equal("Bob", messages[0].Receiver.Name)
	req.Equal(domain.PublicUser{ID: "gone"}, messages[2].Sender)
}

func TestMessageStore_Query_EmptyIsNotNil(t *testing.T) {
	req := require.New(t)
	f := newStoreFixture(t, 5)

	f.messages.EXPECT().GetMessages(gomock.Any(), gomock.Any()).Return(nil, nil)

	messages, err := f.store.Query(context.Background(), domain.GroupHistory("team"))

	req.NoError(err)
	req.NotNil(messages)
	req.Empty(messages)
}
