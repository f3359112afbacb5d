package event

import "chat-presence/domain"

// Presence is the payload of userOnline and userOffline.
type Presence struct {
	UserID string `json:"userId"`
}

type OnlineUsers struct {
	Users []string `json:"users"`
}

type TypingNotice struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// Membership is the payload of userJoined and userLeft.
type Membership struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

type CallSignal struct {
	ReceiverID string            `json:"receiverId,omitempty"`
	GroupID    string            `json:"groupId,omitempty"`
	Type       CallKind          `json:"type"`
	Status     CallStatus        `json:"status"`
	From       domain.PublicUser `json:"from"`
}

// Error is sent to the originating session only.
type Error struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Event   Type   `json:"event,omitempty"`
}
