//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"chat-presence/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const messageSequenceBandwidth = 100

type IMessageRepository interface {
	// StoreMessage assigns the insertion sequence and returns the stored record.
	StoreMessage(ctx context.Context, message domain.Message) (domain.Message, error)
	// GetMessages returns the newest messages of a conversation in ascending order.
	GetMessages(ctx context.Context, filter domain.Filter) ([]domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	seq           *badger.Sequence
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:msg"), messageSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log, limitMessages: limitMessages}, nil
}

// Close hands unused sequence numbers back to badger.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

// conversationPrefix hex-encodes identifiers so ':' inside an id can't forge another conversation.
func conversationPrefix(filter domain.Filter) string {
	if filter.IsGroup() {
		return fmt.Sprintf("msg:grp:%s:", hex.EncodeToString([]byte(filter.GroupID())))
	}
	low, high := filter.Participants()
	return fmt.Sprintf("msg:dm:%s.%s:",
		hex.EncodeToString([]byte(low)),
		hex.EncodeToString([]byte(high)),
	)
}

func filterFor(message domain.Message) domain.Filter {
	if message.GroupID != "" {
		return domain.GroupHistory(message.GroupID)
	}
	return domain.Conversation(message.SenderID, message.ReceiverID)
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "{conversation}{timestamp_padded}:{seq_padded}" so that a
// lexicographical scan yields creation order, with equal timestamps kept in insertion order.
func (m *MessageRepository) StoreMessage(ctx context.Context, message domain.Message) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	seq, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, err
	}
	// badger sequences start at zero, sqlite rowids at one
	message.Seq = seq + 1
	key := fmt.Sprintf("%s%019d:%020d",
		conversationPrefix(filterFor(message)),
		message.CreatedAt.UnixNano(),
		message.Seq,
	)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encodeMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetMessages walks the conversation backwards so the limit keeps the newest messages.
func (m *MessageRepository) GetMessages(ctx context.Context, filter domain.Filter) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(filter))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts from the greatest key that is <= the seek key.
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := decodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}
