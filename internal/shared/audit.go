// Package shared holds infrastructure shared by the ledger modules.
package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// AuditLog is one row of the audit_logs trail.
type AuditLog struct {
	TenantID int64
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) validate() error {
	switch {
	case l.TenantID == 0:
		return errors.New("audit: tenant_id required")
	case l.Action == "":
		return errors.New("audit: action required")
	case l.Entity == "" || l.EntityID == "":
		return errors.New("audit: entity and entity_id required")
	}
	return nil
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger appends to audit_logs.
type AuditLogger struct {
	db Execer
}

func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{db: db}
}

const insertAudit = `INSERT INTO audit_logs (tenant_id, actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, NOW()))`

// Record persists the log entry. A zero At is stamped by the database.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.db == nil {
		return errors.New("audit: logger not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	var actor, at any
	if log.ActorID != 0 {
		actor = log.ActorID
	}
	if !log.At.IsZero() {
		at = log.At
	}
	if _, err := l.db.Exec(ctx, insertAudit, log.TenantID, actor, log.Action, log.Entity, log.EntityID, meta, at); err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}
