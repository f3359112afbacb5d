package domain

import "strings"

const (
	personalRoomPrefix = "user:"
	groupRoomPrefix    = "group:"
)

// RoomID names a fan-out group.
// Personal rooms and group rooms live in separate namespaces so a group id
// can never address somebody's direct messages.
type RoomID string

func UserRoom(userID string) RoomID {
	return RoomID(personalRoomPrefix + userID)
}

func GroupRoom(groupID string) RoomID {
	return RoomID(groupRoomPrefix + groupID)
}

// IsPersonal reports whether the room is the system-assigned room of a user.
func (r RoomID) IsPersonal() bool {
	return strings.HasPrefix(string(r), personalRoomPrefix)
}

// ID strips the namespace and returns the user or group identifier.
func (r RoomID) ID() string {
	if r.IsPersonal() {
		return strings.TrimPrefix(string(r), personalRoomPrefix)
	}
	return strings.TrimPrefix(string(r), groupRoomPrefix)
}

func (r RoomID) String() string {
	return string(r)
}
