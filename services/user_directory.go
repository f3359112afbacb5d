package services

import (
	"context"

	"chat-presence/domain"
	"chat-presence/repositories"
)

type UserDirectory struct {
	users   repositories.IUserRepository
	breaker *Breaker
}

func NewUserDirectory(users repositories.IUserRepository, breaker *Breaker) *UserDirectory {
	return &UserDirectory{users: users, breaker: breaker}
}

// PublicUser never exposes the password hash.
func (d *UserDirectory) PublicUser(ctx context.Context, userID string) (domain.PublicUser, error) {
	user, err := guard(d.breaker, func() (domain.User, error) {
		return d.users.GetUser(ctx, userID)
	})
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}
