package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chat-presence/auth"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const fixtures = `
users:
  - id: alice
    name: Alice
    email: alice@example.com
    password: Sup3r-Secret!
  - id: bob
    name: Bob
    email: bob@example.com
    password: An0ther-Secret!
groups:
  - id: g1
    name: Team
    createdBy: alice
    members: [bob]
`

func setup(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_FILEPATH", filepath.Join(dir, "chat.db"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("LOG_LEVEL", "ERROR")
	file := filepath.Join(dir, "fixtures.yaml")
	require.NoError(t, os.WriteFile(file, []byte(fixtures), 0o600))
	return file
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeed_IsRepeatable(t *testing.T) {
	req := require.New(t)
	file := setup(t)

	// Given a first seed
	out, err := execute("seed", "--file", file)
	req.NoError(err)
	req.Contains(out, "User alice@example.com created")
	req.Contains(out, "Group Team created")

	// When it runs again
	out, err = execute("seed", "--file", file)

	// Then nothing is duplicated
	req.NoError(err)
	req.Contains(out, "User alice@example.com already exists")
	req.Contains(out, "Group g1 already exists")

	out, err = execute("group", "list")
	req.NoError(err)
	req.Contains(out, "alice")
	req.Contains(out, "bob")
	req.Equal(1, strings.Count(out, "Team"))
}

func TestUserAddAndList(t *testing.T) {
	req := require.New(t)
	setup(t)

	out, err := execute("user", "add", "--id", "carol", "--name", "Carol", "--email", "carol@example.com", "--password", "C4rol-Password!")
	req.NoError(err)
	req.Contains(out, "User carol created")

	_, err = execute("user", "add", "--name", "Dave", "--email", "dave@example.com", "--password", "weak")
	req.Error(err)

	out, err = execute("user", "list")
	req.NoError(err)
	req.Contains(out, "carol@example.com")
	req.NotContains(out, "dave@example.com")
}

func TestGroupAdd_UnknownMemberIsRefused(t *testing.T) {
	req := require.New(t)
	setup(t)

	_, err := execute("group", "add", "--name", "Ghosts", "--members", "nobody")

	req.Error(err)
}

func TestTokenIssue(t *testing.T) {
	req := require.New(t)
	file := setup(t)
	_, err := execute("seed", "--file", file)
	req.NoError(err)

	out, err := execute("token", "issue", "--email", "alice@example.com", "--roles", "admin")
	req.NoError(err)

	identity, err := auth.NewVerifier(testSecret, "").Verify(strings.TrimSpace(out))
	req.NoError(err)
	req.Equal("alice", identity.UserID)
	req.Equal([]string{"admin"}, identity.Roles)
}

func TestTokenIssue_RequiresSecret(t *testing.T) {
	req := require.New(t)
	setup(t)
	t.Setenv("JWT_SECRET", "")

	_, err := execute("token", "issue", "--email", "alice@example.com")

	req.Error(err)
}
