//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"chat-presence/domain"
	"chat-presence/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IGroupRepository interface {
	CreateGroup(ctx context.Context, group domain.Group) (domain.Group, error)
	GetGroup(ctx context.Context, id string) (domain.Group, error)
	ListGroups(ctx context.Context) ([]domain.Group, error)
}

type GroupRepository struct {
	db *badger.DB
}

func NewGroupRepository(db *badger.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func groupKey(id string) []byte {
	return []byte("group:" + id)
}

// prepareGroup makes the creator an admin and every admin a member.
func prepareGroup(group domain.Group) domain.Group {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	if group.CreatedBy != "" {
		group.Admins = append(group.Admins, group.CreatedBy)
	}
	group.Admins = lo.Uniq(group.Admins)
	group.Members = lo.Uniq(append(group.Members, group.Admins...))
	return group
}

func (g *GroupRepository) CreateGroup(ctx context.Context, group domain.Group) (domain.Group, error) {
	if err := ctx.Err(); err != nil {
		return domain.Group{}, err
	}
	group = prepareGroup(group)
	err := g.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(groupKey(group.ID)); err == nil {
			return fmt.Errorf("%w: %s", errors.ErrGroupAlreadyExists, group.ID)
		}
		return txn.Set(groupKey(group.ID), encodeGroup(group))
	})
	if err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

func (g *GroupRepository) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	if err := ctx.Err(); err != nil {
		return domain.Group{}, err
	}
	var group domain.Group
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", errors.ErrGroupNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			group, err = decodeGroup(value)
			return err
		})
	})
	return group, err
}

func (g *GroupRepository) ListGroups(ctx context.Context) ([]domain.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var groups []domain.Group
	err := g.db.View(func(txn *badger.Txn) error {
		prefix := []byte("group:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				group, err := decodeGroup(value)
				if err != nil {
					return err
				}
				groups = append(groups, group)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return groups, err
}
