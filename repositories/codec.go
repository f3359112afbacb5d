package repositories

import (
	"fmt"
	"time"

	"chat-presence/domain"

	"google.golang.org/protobuf/encoding/protowire"
)

// Values stored in badger use the protobuf wire format.
// Field numbers are part of the on-disk format and must never be reused.
const (
	msgID         protowire.Number = 1
	msgSender     protowire.Number = 2
	msgReceiver   protowire.Number = 3
	msgGroup      protowire.Number = 4
	msgContent    protowire.Number = 5
	msgKind       protowire.Number = 6
	msgFileURL    protowire.Number = 7
	msgCreatedAt  protowire.Number = 8
	msgSeq        protowire.Number = 9
	userID        protowire.Number = 1
	userName      protowire.Number = 2
	userEmail     protowire.Number = 3
	userHash      protowire.Number = 4
	userCreatedAt protowire.Number = 5
	grpID         protowire.Number = 1
	grpName       protowire.Number = 2
	grpDesc       protowire.Number = 3
	grpCreatedBy  protowire.Number = 4
	grpMember     protowire.Number = 5
	grpAdmin      protowire.Number = 6
	grpCreatedAt  protowire.Number = 7
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(t.UnixNano()))
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// fieldFunc consumes the value of one field and returns the number of bytes read.
// Returning zero skips the field.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) int

func consumeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeTime(typ protowire.Type, b []byte, dst *time.Time) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
	}
	return n
}

func encodeMessage(m domain.Message) []byte {
	var b []byte
	b = appendString(b, msgID, m.ID)
	b = appendString(b, msgSender, m.SenderID)
	b = appendString(b, msgReceiver, m.ReceiverID)
	b = appendString(b, msgGroup, m.GroupID)
	b = appendString(b, msgContent, m.Content)
	b = appendString(b, msgKind, string(m.Kind))
	b = appendString(b, msgFileURL, m.FileURL)
	b = appendTime(b, msgCreatedAt, m.CreatedAt)
	b = appendUint(b, msgSeq, m.Seq)
	return b
}

func decodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	var kind string
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case msgID:
			return consumeString(typ, b, &m.ID)
		case msgSender:
			return consumeString(typ, b, &m.SenderID)
		case msgReceiver:
			return consumeString(typ, b, &m.ReceiverID)
		case msgGroup:
			return consumeString(typ, b, &m.GroupID)
		case msgContent:
			return consumeString(typ, b, &m.Content)
		case msgKind:
			return consumeString(typ, b, &kind)
		case msgFileURL:
			return consumeString(typ, b, &m.FileURL)
		case msgCreatedAt:
			return consumeTime(typ, b, &m.CreatedAt)
		case msgSeq:
			if typ != protowire.VarintType {
				return 0
			}
			v, n := protowire.ConsumeVarint(b)
			m.Seq = v
			return n
		}
		return 0
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message: %w", err)
	}
	m.Kind = domain.Kind(kind)
	return m, nil
}

func encodeUser(u domain.User) []byte {
	var b []byte
	b = appendString(b, userID, u.ID)
	b = appendString(b, userName, u.Name)
	b = appendString(b, userEmail, u.Email)
	b = appendString(b, userHash, u.PasswordHash)
	b = appendTime(b, userCreatedAt, u.CreatedAt)
	return b
}

func decodeUser(b []byte) (domain.User, error) {
	var u domain.User
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case userID:
			return consumeString(typ, b, &u.ID)
		case userName:
			return consumeString(typ, b, &u.Name)
		case userEmail:
			return consumeString(typ, b, &u.Email)
		case userHash:
			return consumeString(typ, b, &u.PasswordHash)
		case userCreatedAt:
			return consumeTime(typ, b, &u.CreatedAt)
		}
		return 0
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

func encodeGroup(g domain.Group) []byte {
	var b []byte
	b = appendString(b, grpID, g.ID)
	b = appendString(b, grpName, g.Name)
	b = appendString(b, grpDesc, g.Description)
	b = appendString(b, grpCreatedBy, g.CreatedBy)
	for _, m := range g.Members {
		b = appendString(b, grpMember, m)
	}
	for _, a := range g.Admins {
		b = appendString(b, grpAdmin, a)
	}
	b = appendTime(b, grpCreatedAt, g.CreatedAt)
	return b
}

func decodeGroup(b []byte) (domain.Group, error) {
	var g domain.Group
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case grpID:
			return consumeString(typ, b, &g.ID)
		case grpName:
			return consumeString(typ, b, &g.Name)
		case grpDesc:
			return consumeString(typ, b, &g.Description)
		case grpCreatedBy:
			return consumeString(typ, b, &g.CreatedBy)
		case grpMember, grpAdmin:
			var id string
			n := consumeString(typ, b, &id)
			if n > 0 && num == grpMember {
				g.Members = append(g.Members, id)
			} else if n > 0 {
				g.Admins = append(g.Admins, id)
			}
			return n
		case grpCreatedAt:
			return consumeTime(typ, b, &g.CreatedAt)
		}
		return 0
	})
	if err != nil {
		return domain.Group{}, fmt.Errorf("decode group: %w", err)
	}
	return g, nil
}
