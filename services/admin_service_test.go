package services

import (
	"context"
	"testing"
	"time"

	"chat-presence/auth"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAdminService_RegisterUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := NewAdminService(users, mocks.NewMockIGroupRepository(ctrl), auth.NewVerifier("secret-for-admin-tests", ""))

	t.Run("should store a hash, never the password", func(t *testing.T) {
		req := require.New(t)
		users.EXPECT().
			CreateUser(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, u domain.User) (domain.User, error) {
				req.Equal("alice", u.ID)
				req.NotEqual("ComplexPass123!", u.PasswordHash)
				ok, err := auth.ComparePassword("ComplexPass123!", u.PasswordHash)
				req.NoError(err)
				req.True(ok)
				return u, nil
			})

		user, err := svc.RegisterUser(context.Background(), auth.NewAccount{Name: " Alice ", Email: "alice@example.com", Password: "ComplexPass123!"}, "alice")

		req.NoError(err)
		req.Equal("Alice", user.Name)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should never be called
		users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.RegisterUser(context.Background(), auth.NewAccount{Name: "Bob", Email: "bob@example.com", Password: "simplesimplesimple"}, "")

		req.ErrorIs(err, errors.ErrInvalidPassword)
	})
}

func TestAdminService_CreateGroup_UnknownMember(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	groups := mocks.NewMockIGroupRepository(ctrl)
	svc := NewAdminService(users, groups, auth.NewVerifier("secret-for-admin-tests", ""))

	users.EXPECT().GetUser(gomock.Any(), "ghost").Return(domain.User{}, errors.ErrUserNotFound)
	groups.EXPECT().CreateGroup(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.CreateGroup(context.Background(), domain.Group{ID: "g", Name: "Team", Members: []string{"ghost"}})

	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestAdminService_IssueToken(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	verifier := auth.NewVerifier("secret-for-admin-tests", "")
	svc := NewAdminService(users, mocks.NewMockIGroupRepository(ctrl), verifier)

	users.EXPECT().GetUserByEmail(gomock.Any(), "alice@example.com").Return(alice(), nil)

	token, err := svc.IssueToken(context.Background(), "alice@example.com", []string{"user"}, time.Hour)
	req.NoError(err)

	identity, err := verifier.Verify(token)
	req.NoError(err)
	req.Equal("alice", identity.UserID)
	req.Equal("alice@example.com", identity.Email)
}
