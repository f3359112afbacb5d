// Package domain contains core concepts of the chat system.
// This file defines Message drafts, stored records and the rules they obey.
// Messages are immutable once persisted and validated by the domain.
package domain

import (
	"fmt"
	"strings"
	"time"

	"chat-presence/errors"
)

type Kind string

const (
	KindText Kind = "text"
	KindFile Kind = "file"
	KindCall Kind = "call"
)

// ParseKind defaults to text when the client omits the type.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return KindText, nil
	case KindText, KindFile, KindCall:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown message type %q", errors.ErrValidation, s)
	}
}

// Target addresses either one user or one group, never both.
type Target struct {
	receiverID string
	groupID    string
}

func DirectTo(userID string) Target {
	return Target{receiverID: userID}
}

func GroupTo(groupID string) Target {
	return Target{groupID: groupID}
}

// NewTarget rejects the both-set and neither-set shapes explicitly.
func NewTarget(receiverID, groupID string) (Target, error) {
	receiverID = strings.TrimSpace(receiverID)
	groupID = strings.TrimSpace(groupID)
	switch {
	case receiverID != "" && groupID != "":
		return Target{}, fmt.Errorf("%w: receiverId and groupId are mutually exclusive", errors.ErrValidation)
	case receiverID != "":
		return DirectTo(receiverID), nil
	case groupID != "":
		return GroupTo(groupID), nil
	default:
		return Target{}, fmt.Errorf("%w: one of receiverId or groupId is required", errors.ErrValidation)
	}
}

func (t Target) IsGroup() bool {
	return t.groupID != ""
}

func (t Target) IsZero() bool {
	return t.receiverID == "" && t.groupID == ""
}

func (t Target) ReceiverID() string { return t.receiverID }

func (t Target) GroupID() string { return t.groupID }

// Room is the fan-out room the target resolves to.
func (t Target) Room() RoomID {
	if t.IsGroup() {
		return GroupRoom(t.groupID)
	}
	return UserRoom(t.receiverID)
}

// Draft is a message accepted from a session but not yet persisted.
type Draft struct {
	SenderID string
	Target   Target
	Content  string
	Kind     Kind
	FileURL  string
}

// Validate fills defaults in place. Content is kept as sent, only its trimmed form must be non-empty.
// maxLen is measured in runes, zero disables the check.
func (d *Draft) Validate(maxLen int) error {
	d.FileURL = strings.TrimSpace(d.FileURL)
	if d.SenderID == "" {
		return fmt.Errorf("%w: sender is required", errors.ErrValidation)
	}
	if d.Target.IsZero() {
		return fmt.Errorf("%w: one of receiverId or groupId is required", errors.ErrValidation)
	}
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("%w: content must not be empty", errors.ErrValidation)
	}
	if maxLen > 0 && len([]rune(d.Content)) > maxLen {
		return fmt.Errorf("%w: content exceeds %d characters", errors.ErrValidation, maxLen)
	}
	if d.Kind == "" {
		d.Kind = KindText
	}
	if _, err := ParseKind(string(d.Kind)); err != nil {
		return err
	}
	if d.Kind == KindFile && d.FileURL == "" {
		return fmt.Errorf("%w: fileUrl is required for file messages", errors.ErrValidation)
	}
	return nil
}

// Message is the persisted record.
// References to users and groups are identifiers only.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	GroupID    string
	Content    string
	Kind       Kind
	FileURL    string
	CreatedAt  time.Time
	Seq        uint64
}

func (m Message) Target() Target {
	if m.GroupID != "" {
		return GroupTo(m.GroupID)
	}
	return DirectTo(m.ReceiverID)
}

// StoredMessage is the denormalised shape delivered to clients.
type StoredMessage struct {
	ID        string      `json:"id"`
	Sender    PublicUser  `json:"sender"`
	Receiver  *PublicUser `json:"receiver,omitempty"`
	Group     string      `json:"group,omitempty"`
	Content   string      `json:"content"`
	Kind      Kind        `json:"type"`
	FileURL   string      `json:"fileUrl,omitempty"`
	CreatedAt Timestamp   `json:"createdAt"`
}

// Timestamp renders as RFC 3339 in UTC with millisecond precision.
type Timestamp time.Time

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(timestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	parsed, err := time.Parse(`"`+time.RFC3339Nano+`"`, string(b))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed.UTC())
	return nil
}

// Filter selects one conversation.
type Filter struct {
	participants [2]string
	groupID      string
}

// Conversation is symmetric: Conversation(a, b) and Conversation(b, a) match the same messages.
func Conversation(a, b string) Filter {
	if b < a {
		a, b = b, a
	}
	return Filter{participants: [2]string{a, b}}
}

func GroupHistory(groupID string) Filter {
	return Filter{groupID: groupID}
}

func (f Filter) IsGroup() bool { return f.groupID != "" }

func (f Filter) GroupID() string { return f.groupID }

// Participants returns the two users of a direct conversation, lowest first.
func (f Filter) Participants() (string, string) {
	return f.participants[0], f.participants[1]
}
