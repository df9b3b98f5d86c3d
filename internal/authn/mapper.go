package authn

import (
	"context"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agora-civic/agora/internal/audit"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/identity"
	"github.com/agora-civic/agora/internal/observability"
)

// Mapper turns a provider identity into session Claims: it normalizes the
// raw role label and snapshots the role's effective permission set from the
// table. The snapshot is deliberate; table changes apply on the next login
// or refresh, not retroactively.
type Mapper struct {
	table    *authz.Table
	logger   *slog.Logger
	recorder *audit.Recorder
	metrics  *observability.Metrics
}

// NewMapper constructs a Mapper. The table is injected so tests can supply
// alternate grants.
func NewMapper(table *authz.Table, logger *slog.Logger, recorder *audit.Recorder, metrics *observability.Metrics) *Mapper {
	if table == nil {
		table = authz.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{table: table, logger: logger, recorder: recorder, metrics: metrics}
}

// Issue derives Claims for a freshly exchanged identity.
func (m *Mapper) Issue(ctx context.Context, ident *identity.Identity) *Claims {
	role, known := NormalizeRoleLabel(ident.RawRoleLabel)
	if !known {
		m.logger.Warn("unrecognized role label, failing closed to USER",
			slog.String("identity", ident.ID),
			slog.String("label", ident.RawRoleLabel))
		if err := m.recorder.Record(ctx, audit.Entry{
			ActorID: ident.ID,
			Action:  audit.ActionRoleAnomaly,
			Subject: ident.Email,
			Meta:    map[string]any{"label": ident.RawRoleLabel},
		}); err != nil {
			m.logger.Warn("record role anomaly", slog.Any("error", err))
		}
		m.metrics.Login("anomaly")
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: ident.ID,
			Issuer:  "agora",
		},
		Email:           ident.Email,
		RoleName:        role.String(),
		Permissions:     m.table.Effective(role),
		LegacyModerator: ident.LegacyModeratorFlag,
		BackendToken:    ident.BackendToken,
	}
}
