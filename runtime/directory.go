package runtime

import (
	"log/slog"
	"sort"
	"sync"

	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/observability"

	"github.com/samber/lo"
)

type sessionSet map[*Session]struct{}

// Directory is the single authority mapping users to live sessions and rooms to members.
// Every mutation happens under one lock and frames are only enqueued, never written, while it is held.
type Directory struct {
	mu       sync.RWMutex
	presence map[string]*Session         // user -> current session
	rooms    map[domain.RoomID]sessionSet // group rooms only
	log      *slog.Logger
	metrics  *observability.Metrics
	closed   bool
}

func NewDirectory(log *slog.Logger, metrics *observability.Metrics) *Directory {
	return &Directory{
		presence: make(map[string]*Session),
		rooms:    make(map[domain.RoomID]sessionSet),
		log:      log,
		metrics:  metrics,
	}
}

// Register makes s the current session of its user.
// userOnline is broadcast only when the user was absent, the new session always receives onlineUsers.
// The session it replaces, if any, is returned and has already lost its rooms.
// After CloseAll nothing is registered any more, s is closed instead.
func (d *Directory) Register(s *Session) (superseded *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		s.close()
		return nil
	}

	userID := s.UserID()
	prev, existed := d.presence[userID]
	if existed && prev == s {
		return nil
	}
	d.presence[userID] = s
	if existed {
		d.purgeLocked(prev)
		superseded = prev
	} else {
		d.fanoutLocked(lo.Values(d.presence), event.UserOnlineType, event.Presence{UserID: userID})
	}
	d.sendLocked(s, event.OnlineUsersType, event.OnlineUsers{Users: d.snapshotLocked()})
	d.metrics.SetOnline(len(d.presence))
	return superseded
}

// Deregister removes the presence entry only if s still owns it.
// Room memberships of s are dropped in every case.
func (d *Directory) Deregister(s *Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.purgeLocked(s)
	current, ok := d.presence[s.UserID()]
	if !ok || current != s {
		return false
	}
	delete(d.presence, s.UserID())
	d.fanoutLocked(lo.Values(d.presence), event.UserOfflineType, event.Presence{UserID: s.UserID()})
	d.metrics.SetOnline(len(d.presence))
	return true
}

func (d *Directory) Lookup(userID string) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.presence[userID]
	return s, ok
}

// Snapshot is a sorted point-in-time copy of the online users.
func (d *Directory) Snapshot() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

func (d *Directory) Online() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.presence)
}

// Join adds s to a room. A personal room can only be joined by its owner.
// It reports false when s was already a member or can't join.
func (d *Directory) Join(room domain.RoomID, s *Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.State() != StateAuthenticated {
		return false
	}
	if _, ok := s.rooms[room]; ok {
		return false
	}
	if room.IsPersonal() {
		if room.ID() != s.UserID() {
			return false
		}
		s.rooms[room] = struct{}{}
		return true
	}
	members, ok := d.rooms[room]
	if !ok {
		members = make(sessionSet)
		d.rooms[room] = members
	}
	members[s] = struct{}{}
	s.rooms[room] = struct{}{}
	return true
}

// Leave is a no-op for a room s never joined.
func (d *Directory) Leave(room domain.RoomID, s *Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaveLocked(room, s)
}

func (d *Directory) InRoom(room domain.RoomID, s *Session) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := s.rooms[room]
	return ok
}

// Members returns the user ids currently joined to a group room.
func (d *Directory) Members(room domain.RoomID) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := lo.Map(lo.Keys(d.rooms[room]), func(s *Session, _ int) string { return s.UserID() })
	sort.Strings(ids)
	return ids
}

// Broadcast enqueues frame to every session in room and returns how many accepted it.
// A personal room resolves to the current session of its user.
func (d *Directory) Broadcast(room domain.RoomID, frame []byte) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if room.IsPersonal() {
		s, ok := d.presence[room.ID()]
		if !ok {
			return 0
		}
		return d.deliverLocked([]*Session{s}, frame)
	}
	return d.deliverLocked(lo.Keys(d.rooms[room]), frame)
}

// Send enqueues frame to one session only.
func (d *Directory) Send(s *Session, frame []byte) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.deliverLocked([]*Session{s}, frame) == 1
}

// CloseAll closes every known session and returns how many were open.
func (d *Directory) CloseAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	all := make(sessionSet)
	for _, s := range d.presence {
		all[s] = struct{}{}
	}
	for _, members := range d.rooms {
		for s := range members {
			all[s] = struct{}{}
		}
	}
	closed := 0
	for s := range all {
		if s.State() != StateClosed {
			closed++
		}
		s.close()
	}
	return closed
}

func (d *Directory) snapshotLocked() []string {
	users := lo.Keys(d.presence)
	sort.Strings(users)
	return users
}

func (d *Directory) leaveLocked(room domain.RoomID, s *Session) bool {
	if _, ok := s.rooms[room]; !ok {
		return false
	}
	delete(s.rooms, room)
	if members, ok := d.rooms[room]; ok {
		delete(members, s)
		// Avoid leaking empty rooms
		if len(members) == 0 {
			delete(d.rooms, room)
		}
	}
	return true
}

func (d *Directory) purgeLocked(s *Session) {
	for room := range s.rooms {
		d.leaveLocked(room, s)
	}
}

func (d *Directory) sendLocked(s *Session, t event.Type, payload any) {
	d.fanoutLocked([]*Session{s}, t, payload)
}

func (d *Directory) fanoutLocked(targets []*Session, t event.Type, payload any) {
	frame, err := event.Encode(t, payload)
	if err != nil {
		d.log.Error("Unable to encode frame", "event", t, "error", err)
		return
	}
	d.deliverLocked(targets, frame)
}

// deliverLocked drops the frame for a full session and schedules its closure.
func (d *Directory) deliverLocked(targets []*Session, frame []byte) int {
	delivered := 0
	for _, s := range targets {
		switch s.enqueue(frame) {
		case enqueued:
			delivered++
			d.metrics.FrameDelivered()
		case queueFull:
			d.metrics.FrameDropped()
			d.log.Warn("Slow consumer, closing session", "user_id", s.UserID(), "session_id", s.ID())
			s.close()
		}
	}
	return delivered
}
