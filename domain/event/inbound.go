package event

import (
	"encoding/json"
	"strings"

	"chat-presence/domain"
)

// TargetFields is embedded by every payload addressed to a user or a group.
type TargetFields struct {
	ReceiverID string `json:"receiverId,omitempty" validate:"required_without=GroupID,excluded_with=GroupID"`
	GroupID    string `json:"groupId,omitempty" validate:"required_without=ReceiverID,excluded_with=ReceiverID"`
}

func (f TargetFields) Target() (domain.Target, error) {
	return domain.NewTarget(f.ReceiverID, f.GroupID)
}

type LoadMessages struct {
	TargetFields
}

type SendMessage struct {
	TargetFields
	Content string `json:"content" validate:"required"`
	Type    string `json:"type,omitempty" validate:"omitempty,oneof=text file call"`
	FileURL string `json:"fileUrl,omitempty" validate:"required_if=Type file"`
}

type Typing struct {
	TargetFields
	IsTyping bool `json:"isTyping"`
}

// GroupRef accepts both {"groupId": "g1"} and a bare "g1".
type GroupRef struct {
	GroupID string `json:"groupId" validate:"required"`
}

func (g *GroupRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		g.GroupID = strings.TrimSpace(id)
		return nil
	}
	type plain GroupRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	g.GroupID = strings.TrimSpace(p.GroupID)
	return nil
}

type CallKind string

const (
	CallVideo CallKind = "video"
	CallAudio CallKind = "audio"
)

type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallAccepted CallStatus = "accepted"
	CallRejected CallStatus = "rejected"
	CallEnded    CallStatus = "ended"
)

type Call struct {
	TargetFields
	Type   CallKind   `json:"type" validate:"required,oneof=video audio"`
	Status CallStatus `json:"status" validate:"required,oneof=ringing accepted rejected ended"`
}
