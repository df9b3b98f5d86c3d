package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/identity"
)

// AccountCreator is the slice of the local identity provider the CLI needs.
type AccountCreator interface {
	CreateAccount(ctx context.Context, email, password, roleLabel string, legacyModerator bool) error
}

// AccountsCLI seeds local accounts for development and first-run setups.
type AccountsCLI struct {
	creator AccountCreator
}

// NewAccountsCLI initialises the accounts CLI.
func NewAccountsCLI(creator AccountCreator) (*AccountsCLI, error) {
	if creator == nil {
		return nil, errors.New("accounts cli: creator not configured")
	}
	return &AccountsCLI{creator: creator}, nil
}

// SeedOptions carries the inputs for the seed command.
type SeedOptions struct {
	Email           string
	Password        string
	Role            string
	LegacyModerator bool
	JSONOutput      bool
	Stdout          io.Writer
	Stderr          io.Writer
}

// SeedSummary is the JSON shape emitted with --json.
type SeedSummary struct {
	OK    bool   `json:"ok"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SeedCommand creates one account and returns a process exit code.
// 0 success, 1 invalid input, 10 account already exists, 2 other failure.
func (c *AccountsCLI) SeedCommand(ctx context.Context, opts SeedOptions) int {
	stdout := opts.Stdout
	stderr := opts.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	email := strings.TrimSpace(opts.Email)
	if email == "" || !strings.Contains(email, "@") {
		fmt.Fprintln(stderr, "invalid email")
		return 1
	}
	if len(opts.Password) < 8 {
		fmt.Fprintln(stderr, "password must be at least 8 characters")
		return 1
	}
	role, ok := authn.NormalizeRoleLabel(opts.Role)
	if !ok {
		fmt.Fprintf(stderr, "unknown role label %q\n", opts.Role)
		return 1
	}

	if err := c.creator.CreateAccount(ctx, email, opts.Password, opts.Role, opts.LegacyModerator); err != nil {
		if errors.Is(err, identity.ErrAccountExists) {
			fmt.Fprintf(stderr, "account %s already exists\n", email)
			return 10
		}
		fmt.Fprintf(stderr, "create account: %v\n", err)
		return 2
	}

	if opts.JSONOutput {
		_ = json.NewEncoder(stdout).Encode(SeedSummary{OK: true, Email: email, Role: role.String()})
	} else {
		fmt.Fprintf(stdout, "created %s as %s\n", email, role)
	}
	return 0
}
