package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/agora-civic/agora/internal/shared"
)

// ErrAccountExists indicates a duplicate email during account creation.
var ErrAccountExists = errors.New("identity: account already exists")

// LocalProvider serves deployments without an external identity provider
// (development, CI). Accounts live in the local database with bcrypt
// password hashes. Role labels are stored as free text on purpose so the
// authn normalization path is exercised the same way it is against the
// remote provider.
type LocalProvider struct {
	pool *pgxpool.Pool
}

// NewLocalProvider constructs a LocalProvider over the given pool.
func NewLocalProvider(pool *pgxpool.Pool) *LocalProvider {
	return &LocalProvider{pool: pool}
}

// Exchange validates credentials against the local accounts table.
func (p *LocalProvider) Exchange(ctx context.Context, email, password string) (*Identity, error) {
	const query = `SELECT id, email, password_hash, role_label, legacy_moderator, backend_token, is_active
		FROM accounts WHERE email = $1`

	var (
		ident    Identity
		hash     string
		isActive bool
	)
	err := p.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&ident.ID, &ident.Email, &hash, &ident.RawRoleLabel, &ident.LegacyModeratorFlag, &ident.BackendToken, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !isActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	_, _ = p.pool.Exec(ctx, `UPDATE accounts SET last_login_at = $1 WHERE id = $2`, time.Now().UTC(), ident.ID)
	return &ident, nil
}

// CreateAccount registers a local account. Used by the seed script and by
// tests; production deployments use the remote provider.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password, roleLabel string, legacyModerator bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	const insert = `INSERT INTO accounts (id, email, password_hash, role_label, legacy_moderator, backend_token, is_active, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, '', TRUE, NOW())`
	_, err = p.pool.Exec(ctx, insert, strings.ToLower(strings.TrimSpace(email)), string(hash), roleLabel, legacyModerator)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAccountExists
		}
		return err
	}
	return nil
}

var _ Provider = (*LocalProvider)(nil)
