package services

import (
	"context"

	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/repositories"
)

// MembershipAuthority answers group questions and fails closed.
type MembershipAuthority struct {
	groups  repositories.IGroupRepository
	breaker *Breaker
}

func NewMembershipAuthority(groups repositories.IGroupRepository, breaker *Breaker) *MembershipAuthority {
	return &MembershipAuthority{groups: groups, breaker: breaker}
}

func (a *MembershipAuthority) GroupExists(ctx context.Context, groupID string) (bool, error) {
	_, found, err := a.group(ctx, groupID)
	return found, err
}

func (a *MembershipAuthority) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	group, found, err := a.group(ctx, groupID)
	if err != nil || !found {
		return false, err
	}
	return group.HasMember(userID), nil
}

func (a *MembershipAuthority) group(ctx context.Context, groupID string) (domain.Group, bool, error) {
	group, err := guard(a.breaker, func() (domain.Group, error) {
		return a.groups.GetGroup(ctx, groupID)
	})
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return domain.Group{}, false, nil
	case err != nil:
		return domain.Group{}, false, err
	}
	return group, true, nil
}
