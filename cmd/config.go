package main

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	GRPCPort             int           `env:"GRPC_PORT,default=8081"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	TokenIssuer          string        `env:"TOKEN_ISSUER,default=chat-presence"`
	StorageDriver        string        `env:"STORAGE_DRIVER,default=badger"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,default=./data/badger"`
	SQLiteFilepath       string        `env:"SQLITE_FILEPATH,default=./data/chat.db"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4000"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	MaxFrameSize         int           `env:"MAX_FRAME_SIZE,default=65536"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS,default=*"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	BreakerMaxFailures   int           `env:"BREAKER_MAX_FAILURES,default=5"`
	BreakerOpenTimeout   time.Duration `env:"BREAKER_OPEN_TIMEOUT,default=30s"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=15s"`
	CensoredWords        string        `env:"CENSORED_WORDS"`
	CharReplacement      string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

// Replacement is the first rune of MODERATION_CHARACTER_REPLACEMENT.
func (c Config) Replacement() rune {
	for _, r := range c.CharReplacement {
		return r
	}
	return '*'
}

// Words splits the comma separated censored words.
func (c Config) Words() []string {
	return split(c.CensoredWords)
}

// Origins splits the comma separated allow-list.
func (c Config) Origins() []string {
	return split(c.AllowedOrigins)
}

func split(list string) []string {
	return lo.Compact(lo.Map(strings.Split(list, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}
