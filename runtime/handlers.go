package runtime

import (
	"context"
	"fmt"

	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/errors"
)

func (r *Router) handleLoadMessages(ctx context.Context, s *Session, env event.Envelope) error {
	payload, err := event.DecodePayload[event.LoadMessages](env)
	if err != nil {
		return err
	}
	target, err := payload.Target()
	if err != nil {
		return err
	}

	filter := domain.Conversation(s.UserID(), target.ReceiverID())
	if target.IsGroup() {
		if err := r.authorizeGroup(ctx, target.GroupID(), s.UserID()); err != nil {
			return err
		}
		filter = domain.GroupHistory(target.GroupID())
	}

	messages, err := r.store.Query(ctx, filter)
	if err != nil {
		return err
	}
	r.reply(s, event.MessagesLoadedType, messages)
	return nil
}

func (r *Router) handleSendMessage(ctx context.Context, s *Session, env event.Envelope) error {
	payload, err := event.DecodePayload[event.SendMessage](env)
	if err != nil {
		return err
	}
	target, err := payload.Target()
	if err != nil {
		return err
	}
	kind, err := domain.ParseKind(payload.Type)
	if err != nil {
		return err
	}
	if err := r.requireJoined(s, target); err != nil {
		return err
	}

	// Persistence that has started completes even if the session goes away.
	stored, err := r.store.Append(context.WithoutCancel(ctx), domain.Draft{
		SenderID: s.UserID(),
		Target:   target,
		Content:  payload.Content,
		Kind:     kind,
		FileURL:  payload.FileURL,
	})
	if err != nil {
		return err
	}
	delivered := r.broadcast(target.Room(), event.NewMessageType, stored)
	r.log.Debug("Message routed", "user_id", s.UserID(), "room", target.Room(), "message_id", stored.ID, "delivered", delivered)
	return nil
}

func (r *Router) handleTyping(_ context.Context, s *Session, env event.Envelope) error {
	payload, err := event.DecodePayload[event.Typing](env)
	if err != nil {
		return err
	}
	target, err := payload.Target()
	if err != nil {
		return err
	}
	if err := r.requireJoined(s, target); err != nil {
		return err
	}
	r.broadcast(target.Room(), event.TypingType, event.TypingNotice{UserID: s.UserID(), IsTyping: payload.IsTyping})
	return nil
}

func (r *Router) handleJoinGroup(ctx context.Context, s *Session, env event.Envelope) error {
	payload, err := event.DecodePayload[event.GroupRef](env)
	if err != nil {
		return err
	}
	if err := r.authorizeGroup(ctx, payload.GroupID, s.UserID()); err != nil {
		return err
	}

	room := domain.GroupRoom(payload.GroupID)
	notice := event.Membership{UserID: s.UserID(), GroupID: payload.GroupID}
	if r.directory.Join(room, s) {
		r.broadcast(room, event.UserJoinedType, notice)
		return nil
	}
	if !r.directory.InRoom(room, s) {
		return errors.ErrSessionClosed
	}
	// Already joined: confirm to the caller only.
	r.reply(s, event.UserJoinedType, notice)
	return nil
}

func (r *Router) handleLeaveGroup(_ context.Context, s *Session, env event.Envelope) error {
	payload, err := event.DecodePayload[event.GroupRef](env)
	if err != nil {
		return err
	}
	room := domain.GroupRoom(payload.GroupID)
	if r.directory.Leave(room, s) {
		r.broadcast(room, event.UserLeftType, event.Membership{UserID: s.UserID(), GroupID: payload.GroupID})
	}
	return nil
}

func (r *Router) handleCall(ctx context.Context, s *Session, env event.Envelope) error {
	payload, err := event.DecodePayload[event.Call](env)
	if err != nil {
		return err
	}
	target, err := payload.Target()
	if err != nil {
		return err
	}
	if err := r.requireJoined(s, target); err != nil {
		return err
	}
	from, err := r.users.PublicUser(ctx, s.UserID())
	if err != nil {
		return err
	}
	r.broadcast(target.Room(), event.CallType, event.CallSignal{
		ReceiverID: target.ReceiverID(),
		GroupID:    target.GroupID(),
		Type:       payload.Type,
		Status:     payload.Status,
		From:       from,
	})
	return nil
}

// authorizeGroup answers 404 for a missing group and 403 for a non-member.
// Any authority error denies.
func (r *Router) authorizeGroup(ctx context.Context, groupID, userID string) error {
	exists, err := r.authority.GroupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", errors.ErrGroupNotFound, groupID)
	}
	member, err := r.authority.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: not a member of group %s", errors.ErrForbidden, groupID)
	}
	return nil
}

// Group-scoped events require the session to have joined the group room.
func (r *Router) requireJoined(s *Session, target domain.Target) error {
	if !target.IsGroup() || r.directory.InRoom(target.Room(), s) {
		return nil
	}
	return fmt.Errorf("%w: join group %s first", errors.ErrForbidden, target.GroupID())
}
