package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chat-presence/auth"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/repositories"
)

// AdminService backs the operator tooling that provisions users and groups.
type AdminService struct {
	users    repositories.IUserRepository
	groups   repositories.IGroupRepository
	verifier *auth.Verifier
}

func NewAdminService(users repositories.IUserRepository, groups repositories.IGroupRepository, verifier *auth.Verifier) *AdminService {
	return &AdminService{users: users, groups: groups, verifier: verifier}
}

func (s *AdminService) RegisterUser(ctx context.Context, acc auth.NewAccount, id string) (domain.User, error) {
	acc.Email = strings.TrimSpace(acc.Email)
	acc.Name = strings.TrimSpace(acc.Name)

	// Validated before any expensive hashing.
	if err := auth.ValidateAccount(acc); err != nil {
		return domain.User{}, err
	}

	hashedPassword, err := auth.HashPassword(acc.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	return s.users.CreateUser(ctx, domain.User{
		ID:           id,
		Name:         acc.Name,
		Email:        acc.Email,
		PasswordHash: hashedPassword,
	})
}

// CreateGroup refuses members that don't exist.
func (s *AdminService) CreateGroup(ctx context.Context, group domain.Group) (domain.Group, error) {
	if strings.TrimSpace(group.Name) == "" {
		return domain.Group{}, fmt.Errorf("%w: group name is required", errors.ErrValidation)
	}
	ids := append(append([]string{}, group.Members...), group.Admins...)
	if group.CreatedBy != "" {
		ids = append(ids, group.CreatedBy)
	}
	for _, id := range ids {
		if _, err := s.users.GetUser(ctx, id); err != nil {
			return domain.Group{}, err
		}
	}
	return s.groups.CreateGroup(ctx, group)
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *AdminService) ListGroups(ctx context.Context) ([]domain.Group, error) {
	return s.groups.ListGroups(ctx)
}

// IssueToken signs a session credential for an existing user.
func (s *AdminService) IssueToken(ctx context.Context, email string, roles []string, ttl time.Duration) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return s.verifier.GenerateToken(domain.Identity{UserID: user.ID, Email: user.Email, Roles: roles}, ttl)
}
