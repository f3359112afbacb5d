// Command chatctl provisions users and groups and issues session tokens.
package main

import (
	"fmt"
	"os"

	"chat-presence/auth"
	"chat-presence/repositories"
	"chat-presence/services"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

type Config struct {
	StorageDriver  string `envconfig:"STORAGE_DRIVER" default:"badger"`
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"./data/badger"`
	SQLiteFilepath string `envconfig:"SQLITE_FILEPATH" default:"./data/chat.db"`
	JWTSecret      string `envconfig:"JWT_SECRET"`
	TokenIssuer    string `envconfig:"TOKEN_ISSUER" default:"chat-presence"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"WARN"`
}

// app is shared by every subcommand. Storage is opened per command so --help works without it.
type app struct {
	cfg Config
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "chatctl",
		Short:        "Administration tool for chat-presence",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return envconfig.Process("", &a.cfg)
		},
	}
	root.AddCommand(a.userCmd(), a.groupCmd(), a.seedCmd(), a.tokenCmd())
	return root
}

// withAdmin opens the storage for the duration of fn.
func (a *app) withAdmin(fn func(admin *services.AdminService) error) (err error) {
	backend, err := repositories.Open(repositories.StorageConfig{
		Driver:         a.cfg.StorageDriver,
		BadgerFilepath: a.cfg.BadgerFilepath,
		SQLiteFilepath: a.cfg.SQLiteFilepath,
	}, logs.GetLoggerFromString(a.cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("storage opening failed: %w", err)
	}
	defer func() {
		if closeErr := backend.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(services.NewAdminService(backend.Users, backend.Groups, auth.NewVerifier(a.cfg.JWTSecret, a.cfg.TokenIssuer)))
}

func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Render(fmt.Sprintf(format, args...)))
}

func notice(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgYellow).Render(fmt.Sprintf(format, args...)))
}
