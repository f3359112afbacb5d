package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"chat-presence/domain"
	"chat-presence/errors"

	"github.com/samber/lo"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));

CREATE TABLE IF NOT EXISTS chat_groups (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_by  TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id TEXT NOT NULL REFERENCES chat_groups(id),
	user_id  TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	conversation TEXT NOT NULL,
	sender_id    TEXT NOT NULL,
	receiver_id  TEXT NOT NULL DEFAULT '',
	group_id     TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL,
	kind         TEXT NOT NULL,
	file_url     TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation, created_at, seq);
`

// SQLiteStore implements the message, user and group repositories on one database file.
type SQLiteStore struct {
	db            *sql.DB
	log           *slog.Logger
	limitMessages *int
}

func NewSQLiteStore(dbPath string, log *slog.Logger, limitMessages *int) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return &SQLiteStore{db: db, log: log, limitMessages: limitMessages}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StoreMessage(ctx context.Context, message domain.Message) (domain.Message, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation, sender_id, receiver_id, group_id, content, kind, file_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		message.ID, conversationPrefix(filterFor(message)), message.SenderID, message.ReceiverID,
		message.GroupID, message.Content, string(message.Kind), message.FileURL, message.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.Message{}, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return domain.Message{}, err
	}
	message.Seq = uint64(seq)
	return message, nil
}

// GetMessages selects the newest rows first so LIMIT keeps the tail of the conversation.
func (s *SQLiteStore) GetMessages(ctx context.Context, filter domain.Filter) ([]domain.Message, error) {
	limit := -1
	if s.limitMessages != nil {
		limit = *s.limitMessages
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, sender_id, receiver_id, group_id, content, kind, file_url, created_at
		 FROM messages WHERE conversation = ?
		 ORDER BY created_at DESC, seq DESC LIMIT ?`,
		conversationPrefix(filter), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var kind string
		var createdAt int64
		if err := rows.Scan(&m.Seq, &m.ID, &m.SenderID, &m.ReceiverID, &m.GroupID,
			&m.Content, &kind, &m.FileURL, &createdAt); err != nil {
			return nil, err
		}
		m.Kind = domain.Kind(kind)
		m.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	user = prepareUser(user)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE id = ? OR lower(email) = lower(?)`, user.ID, user.Email,
		).Scan(&count)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", errors.ErrUserAlreadyExists, user.Email)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
			user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt.UnixNano(),
		)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.queryUser(ctx, `WHERE id = ?`, id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.queryUser(ctx, `WHERE lower(email) = lower(?)`, email)
}

func (s *SQLiteStore) queryUser(ctx context.Context, where string, arg string) (domain.User, error) {
	var u domain.User
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("%w: %s", errors.ErrUserNotFound, arg)
	}
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = time.Unix(0, createdAt).UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) CreateGroup(ctx context.Context, group domain.Group) (domain.Group, error) {
	group = prepareGroup(group)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_groups WHERE id = ?`, group.ID).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", errors.ErrGroupAlreadyExists, group.ID)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_groups (id, name, description, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
			group.ID, group.Name, group.Description, group.CreatedBy, group.CreatedAt.UnixNano(),
		)
		if err != nil {
			return err
		}
		for _, member := range group.Members {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO group_members (group_id, user_id, is_admin) VALUES (?, ?, ?)`,
				group.ID, member, lo.Ternary(group.IsAdmin(member), 1, 0),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	var g domain.Group
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_by, created_at FROM chat_groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &createdAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, fmt.Errorf("%w: %s", errors.ErrGroupNotFound, id)
	}
	if err != nil {
		return domain.Group{}, err
	}
	g.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := s.loadMembers(ctx, &g); err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func (s *SQLiteStore) ListGroups(ctx context.Context) ([]domain.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chat_groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The single connection is free again once rows are closed.
	groups := make([]domain.Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, g *domain.Group) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, is_admin FROM group_members WHERE group_id = ? ORDER BY rowid`, g.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		var isAdmin bool
		if err := rows.Scan(&userID, &isAdmin); err != nil {
			return err
		}
		g.Members = append(g.Members, userID)
		if isAdmin {
			g.Admins = append(g.Admins, userID)
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
