package event

// Type names an event on the wire, in both directions.
type Type string

// Inbound events sent by clients.
const (
	LoadMessagesType Type = "loadMessages"
	SendMessageType  Type = "sendMessage"
	TypingType       Type = "typing"
	JoinGroupType    Type = "joinGroup"
	LeaveGroupType   Type = "leaveGroup"
	CallType         Type = "call"
)

// Outbound events emitted by the server.
// typing and call share their inbound name.
const (
	UserOnlineType     Type = "userOnline"
	UserOfflineType    Type = "userOffline"
	OnlineUsersType    Type = "onlineUsers"
	MessagesLoadedType Type = "messagesLoaded"
	NewMessageType     Type = "newMessage"
	UserJoinedType     Type = "userJoined"
	UserLeftType       Type = "userLeft"
	ErrorType          Type = "error"
)

func (t Type) String() string {
	return string(t)
}
