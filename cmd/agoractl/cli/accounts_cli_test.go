package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agora-civic/agora/internal/identity"
)

type stubCreator struct {
	err   error
	calls int
	role  string
}

func (s *stubCreator) CreateAccount(ctx context.Context, email, password, roleLabel string, legacyModerator bool) error {
	s.calls++
	s.role = roleLabel
	return s.err
}

func TestSeedCommandJSONSuccess(t *testing.T) {
	creator := &stubCreator{}
	cli, err := NewAccountsCLI(creator)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := cli.SeedCommand(context.Background(), SeedOptions{
		Email:      "mayor@example.org",
		Password:   "correct-horse",
		Role:       "ADMIN",
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Zero(t, exitCode)
	require.Empty(t, stderr.String())
	require.Equal(t, 1, creator.calls)

	var summary SeedSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.True(t, summary.OK)
	require.Equal(t, "ADMIN", summary.Role)
}

func TestSeedCommandRejectsUnknownRole(t *testing.T) {
	creator := &stubCreator{}
	cli, err := NewAccountsCLI(creator)
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	exitCode := cli.SeedCommand(context.Background(), SeedOptions{
		Email:    "mayor@example.org",
		Password: "correct-horse",
		Role:     "wizard",
		Stderr:   stderr,
	})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "unknown role label")
	require.Zero(t, creator.calls)
}

func TestSeedCommandExistingAccount(t *testing.T) {
	creator := &stubCreator{err: identity.ErrAccountExists}
	cli, err := NewAccountsCLI(creator)
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	exitCode := cli.SeedCommand(context.Background(), SeedOptions{
		Email:    "mayor@example.org",
		Password: "correct-horse",
		Role:     "USER",
		Stderr:   stderr,
	})
	require.Equal(t, 10, exitCode)
	require.Contains(t, stderr.String(), "already exists")
}

func TestSeedCommandRejectsShortPassword(t *testing.T) {
	creator := &stubCreator{}
	cli, err := NewAccountsCLI(creator)
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	exitCode := cli.SeedCommand(context.Background(), SeedOptions{
		Email:    "mayor@example.org",
		Password: "short",
		Role:     "USER",
		Stderr:   stderr,
	})
	require.Equal(t, 1, exitCode)
	require.Zero(t, creator.calls)
}

func TestSeedCommandWrapsProviderFault(t *testing.T) {
	creator := &stubCreator{err: errors.New("connection refused")}
	cli, err := NewAccountsCLI(creator)
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	exitCode := cli.SeedCommand(context.Background(), SeedOptions{
		Email:    "mayor@example.org",
		Password: "correct-horse",
		Role:     "USER",
		Stderr:   stderr,
	})
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "create account")
}
