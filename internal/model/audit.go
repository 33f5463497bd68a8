package model

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Audit event severities. SeverityAttack marks branches that indicate a
// potential attack (PKCE mismatch, stolen-code exchange, token reuse).
type AuditSeverity string

const (
	SeverityInfo   AuditSeverity = "info"
	SeverityWarn   AuditSeverity = "warn"
	SeverityAttack AuditSeverity = "attack"
)

// Audit event statuses.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditStore is append-only. There is deliberately no update or delete
// operation; archived ranges are exported, never removed.
type AuditStore interface {
	Append(ctx context.Context, event AuditEvent) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// ArchiveStorage writes exported audit batches to long-term storage.
type ArchiveStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64) error
}

// AuditEvent is an immutable record of a security-relevant operation.
type AuditEvent struct {
	ID           uuid.UUID
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Status       string
	Severity     AuditSeverity
	Detail       string
	CreatedAt    time.Time
}

// AuditFilter selects events for a query. Zero fields match everything;
// Limit defaults at the store when unset.
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Status       string
	Severity     AuditSeverity
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}
