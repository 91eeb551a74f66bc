package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tribunal store.
var Migrations = migrate.NewGroup("tribunal")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tribunal_tenants",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tribunal_tenants (
    org_id              TEXT PRIMARY KEY,
    org_name            TEXT NOT NULL DEFAULT '',
    plan                TEXT NOT NULL DEFAULT 'starter',
    status              TEXT NOT NULL DEFAULT 'active',
    contracts_limit     BIGINT NOT NULL DEFAULT 0,
    contracts_unbounded BOOLEAN NOT NULL DEFAULT FALSE,
    users_limit         BIGINT NOT NULL DEFAULT 0,
    users_unbounded     BOOLEAN NOT NULL DEFAULT FALSE,
    features            JSONB NOT NULL DEFAULT '[]',
    usage_count         BIGINT NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tribunal_tenants_status ON tribunal_tenants (status);
CREATE INDEX IF NOT EXISTS idx_tribunal_tenants_plan ON tribunal_tenants (plan);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tribunal_tenants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tribunal_decisions",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tribunal_decisions (
    id                   TEXT PRIMARY KEY,
    tenant_id            TEXT NOT NULL DEFAULT '',
    module               TEXT NOT NULL DEFAULT '',
    action               TEXT NOT NULL DEFAULT '',
    state                TEXT NOT NULL DEFAULT 'created',
    results              JSONB NOT NULL DEFAULT '[]',
    aggregate_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    requires_review      BOOLEAN NOT NULL DEFAULT FALSE,
    audit_hash           TEXT NOT NULL DEFAULT '',
    analysis_id          TEXT NOT NULL DEFAULT '',
    review_id            TEXT NOT NULL DEFAULT '',
    reviewed_by          TEXT NOT NULL DEFAULT '',
    reviewed_at          TIMESTAMPTZ,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tribunal_decisions_tenant ON tribunal_decisions (tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_tribunal_decisions_state ON tribunal_decisions (tenant_id, state);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tribunal_decisions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tribunal_audit_entries",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tribunal_audit_entries (
    payload_hash TEXT PRIMARY KEY,
    tenant_id    TEXT NOT NULL DEFAULT '',
    sequence     BIGINT NOT NULL DEFAULT 0,
    decision_id  TEXT NOT NULL DEFAULT '',
    module       TEXT NOT NULL DEFAULT '',
    action       TEXT NOT NULL DEFAULT '',
    outcome      TEXT NOT NULL DEFAULT '',
    confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
    prev_hash    TEXT NOT NULL DEFAULT '',
    timestamp    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tribunal_audit_tenant_seq ON tribunal_audit_entries (tenant_id, sequence);
CREATE INDEX IF NOT EXISTS idx_tribunal_audit_decision ON tribunal_audit_entries (decision_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tribunal_audit_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tribunal_analyses",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tribunal_analyses (
    id               TEXT PRIMARY KEY,
    tenant_id        TEXT NOT NULL DEFAULT '',
    decision_id      TEXT NOT NULL DEFAULT '',
    summary          TEXT NOT NULL DEFAULT '',
    key_terms        JSONB NOT NULL DEFAULT '[]',
    risks            JSONB NOT NULL DEFAULT '[]',
    compliance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    frameworks       JSONB NOT NULL DEFAULT '[]',
    overall_risk     TEXT NOT NULL DEFAULT 'LOW',
    audit_hash       TEXT NOT NULL DEFAULT '',
    timestamp        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tribunal_analyses_tenant ON tribunal_analyses (tenant_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_tribunal_analyses_decision ON tribunal_analyses (decision_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tribunal_analyses`)
				return err
			},
		},
	)
}
