package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"chat-presence/domain"
	"chat-presence/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T, limit *int) map[string]*Backend {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	backends := map[string]*Backend{}
	for _, driver := range []string{DriverBadger, DriverSQLite} {
		dir := t.TempDir()
		backend, err := Open(StorageConfig{
			Driver:         driver,
			BadgerFilepath: dir,
			SQLiteFilepath: filepath.Join(dir, "chat.db"),
			LimitMessages:  limit,
		}, log)
		require.NoError(t, err)
		t.Cleanup(func() { _ = backend.Close() })
		backends[driver] = backend
	}
	return backends
}

func direct(id, from, to, content string, at time.Time) domain.Message {
	return domain.Message{ID: id, SenderID: from, ReceiverID: to, Content: content, Kind: domain.KindText, CreatedAt: at}
}

func TestMessages_AscendingWithStableTies(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for driver, backend := range openBackends(t, nil) {
		t.Run(driver, func(t *testing.T) {
			req := require.New(t)

			// Given messages stored out of time order, two sharing a timestamp
			inputs := []domain.Message{
				direct("m3", "alice", "bob", "third", at.Add(time.Minute)),
				direct("m1", "alice", "bob", "first", at),
				direct("m2", "bob", "alice", "second", at),
				direct("other", "alice", "carol", "elsewhere", at),
			}
			for _, m := range inputs {
				stored, err := backend.Messages.StoreMessage(ctx, m)
				req.NoError(err)
				req.NotZero(stored.Seq)
			}

			// When the conversation is read from either side
			fromAlice, err := backend.Messages.GetMessages(ctx, domain.Conversation("alice", "bob"))
			req.NoError(err)
			fromBob, err := backend.Messages.GetMessages(ctx, domain.Conversation("bob", "alice"))
			req.NoError(err)

			// Then both sides see the same ascending history, ties in insertion order
			req.Equal(fromAlice, fromBob)
			req.Len(fromAlice, 3)
			req.Equal("m1", fromAlice[0].ID)
			req.Equal("m2", fromAlice[1].ID)
			req.Equal("m3", fromAlice[2].ID)
			req.Equal(at, fromAlice[0].CreatedAt)
			req.Equal(domain.KindText, fromAlice[0].Kind)
		})
	}
}

func TestMessages_LimitKeepsNewest(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	limit := 2

	for driver, backend := range openBackends(t, &limit) {
		t.Run(driver, func(t *testing.T) {
			req := require.New(t)

			for i := 0; i < 4; i++ {
				msg := domain.Message{
					ID:        fmt.Sprintf("g%d", i),
					SenderID:  "alice",
					GroupID:   "team",
					Content:   "hello",
					Kind:      domain.KindFile,
					FileURL:   "/uploads/f",
					CreatedAt: at.Add(time.Duration(i) * time.Second),
				}
				_, err := backend.Messages.StoreMessage(ctx, msg)
				req.NoError(err)
			}

			messages, err := backend.Messages.GetMessages(ctx, domain.GroupHistory("team"))
			req.NoError(err)
			req.Len(messages, 2)
			req.Equal("g2", messages[0].ID)
			req.Equal("g3", messages[1].ID)
			req.Equal("/uploads/f", messages[1].FileURL)
			req.Equal("team", messages[1].GroupID)

			empty, err := backend.Messages.GetMessages(ctx, domain.GroupHistory("nobody"))
			req.NoError(err)
			req.Empty(empty)
		})
	}
}

func TestMessages_GroupAndDirectNeverMix(t *testing.T) {
	ctx := context.Background()
	at := time.Now().UTC()

	for driver, backend := range openBackends(t, nil) {
		t.Run(driver, func(t *testing.T) {
			req := require.New(t)

			_, err := backend.Messages.StoreMessage(ctx, domain.Message{ID: "g", SenderID: "a", GroupID: "b", Content: "x", Kind: domain.KindText, CreatedAt: at})
			req.NoError(err)
			_, err = backend.Messages.StoreMessage(ctx, direct("d", "a", "b", "y", at))
			req.NoError(err)

			group, err := backend.Messages.GetMessages(ctx, domain.GroupHistory("b"))
			req.NoError(err)
			req.Len(group, 1)
			req.Equal("g", group[0].ID)

			dm, err := backend.Messages.GetMessages(ctx, domain.Conversation("a", "b"))
			req.NoError(err)
			req.Len(dm, 1)
			req.Equal("d", dm[0].ID)
		})
	}
}

func TestUsers_CreateAndLookup(t *testing.T) {
	ctx := context.Background()

	for driver, backend := range openBackends(t, nil) {
		t.Run(driver, func(t *testing.T) {
			req := require.New(t)

			created, err := backend.Users.CreateUser(ctx, domain.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "h"})
			req.NoError(err)
			req.NotEmpty(created.ID)
			req.False(created.CreatedAt.IsZero())

			_, err = backend.Users.CreateUser(ctx, domain.User{Name: "Other", Email: "ALICE@example.com"})
			req.ErrorIs(err, errors.ErrUserAlreadyExists)

			byID, err := backend.Users.GetUser(ctx, created.ID)
			req.NoError(err)
			req.Equal("Alice", byID.Name)
			req.Equal("h", byID.PasswordHash)

			byEmail, err := backend.Users.GetUserByEmail(ctx, "alice@example.com")
			req.NoError(err)
			req.Equal(created.ID, byEmail.ID)

			_, err = backend.Users.GetUser(ctx, "ghost")
			req.ErrorIs(err, errors.ErrUserNotFound)
			req.ErrorIs(err, errors.ErrNotFound)

			users, err := backend.Users.ListUsers(ctx)
			req.NoError(err)
			req.Len(users, 1)
		})
	}
}

func TestGroups_CreatorIsAdminAndMember(t *testing.T) {
	ctx := context.Background()

	for driver, backend := range openBackends(t, nil) {
		t.Run(driver, func(t *testing.T) {
			req := require.New(t)

			_, err := backend.Groups.CreateGroup(ctx, domain.Group{ID: "g1", Name: "Team", CreatedBy: "alice", Members: []string{"bob"}})
			req.NoError(err)

			_, err = backend.Groups.CreateGroup(ctx, domain.Group{ID: "g1", Name: "Again"})
			req.ErrorIs(err, errors.ErrGroupAlreadyExists)

			group, err := backend.Groups.GetGroup(ctx, "g1")
			req.NoError(err)
			req.Equal("Team", group.Name)
			req.True(group.HasMember("alice"))
			req.True(group.HasMember("bob"))
			req.True(group.IsAdmin("alice"))
			req.False(group.IsAdmin("bob"))
			req.False(group.HasMember("carol"))

			_, err = backend.Groups.GetGroup(ctx, "missing")
			req.ErrorIs(err, errors.ErrGroupNotFound)

			groups, err := backend.Groups.ListGroups(ctx)
			req.NoError(err)
			req.Len(groups, 1)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(StorageConfig{Driver: "postgres"}, logs.GetLoggerFromLevel(slog.LevelError))
	require.Error(t, err)
}
