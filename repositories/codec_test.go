package repositories

import (
	"testing"
	"time"

	"chat-presence/domain"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodeMessage_SkipsUnknownFields(t *testing.T) {
	req := require.New(t)

	// Given a record written by a newer version with an extra field
	at := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	raw := encodeMessage(domain.Message{ID: "m1", SenderID: "a", GroupID: "g", Content: "hi", Kind: domain.KindText, CreatedAt: at, Seq: 7})
	raw = protowire.AppendTag(raw, 42, protowire.BytesType)
	raw = protowire.AppendString(raw, "future")

	// When it is decoded
	msg, err := decodeMessage(raw)

	// Then known fields survive and the extra one is ignored
	req.NoError(err)
	req.Equal("m1", msg.ID)
	req.Equal("g", msg.GroupID)
	req.Equal(at, msg.CreatedAt)
	req.Equal(uint64(7), msg.Seq)
}

func TestDecodeGroup_RejectsTruncatedInput(t *testing.T) {
	raw := encodeGroup(domain.Group{ID: "g1", Name: "Team", Members: []string{"a", "b"}, CreatedAt: time.Now()})

	_, err := decodeGroup(raw[:len(raw)-3])
	require.Error(t, err)
}
