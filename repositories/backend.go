package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

type StorageConfig struct {
	Driver         string
	BadgerFilepath string
	SQLiteFilepath string
	LimitMessages  *int
}

// Backend bundles the repositories of one storage driver.
type Backend struct {
	Messages IMessageRepository
	Users    IUserRepository
	Groups   IGroupRepository
	closers  []func() error
}

func Open(cfg StorageConfig, log *slog.Logger) (*Backend, error) {
	switch cfg.Driver {
	case DriverBadger, "":
		return openBadger(cfg, log)
	case DriverSQLite:
		store, err := NewSQLiteStore(cfg.SQLiteFilepath, log, cfg.LimitMessages)
		if err != nil {
			return nil, err
		}
		log.Info("Storage opened", "driver", DriverSQLite, "path", cfg.SQLiteFilepath)
		return &Backend{Messages: store, Users: store, Groups: store, closers: []func() error{store.Close}}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openBadger(cfg StorageConfig, log *slog.Logger) (*Backend, error) {
	db, err := badger.Open(badger.DefaultOptions(cfg.BadgerFilepath).
		WithLogger(badgerLogger{log: log.With("component", "badger")}).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	messages, err := NewMessageRepository(db, log, cfg.LimitMessages)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Storage opened", "driver", DriverBadger, "path", cfg.BadgerFilepath)
	return &Backend{
		Messages: messages,
		Users:    NewUserRepository(db),
		Groups:   NewGroupRepository(db),
		// Sequence first, it writes its lease back to the db.
		closers: []func() error{messages.Close, db.Close},
	}, nil
}

// Close releases every resource in order and reports the first failure.
func (b *Backend) Close() error {
	var first error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
