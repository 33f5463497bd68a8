package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avollmer/oauthd/internal/logger"
	"github.com/avollmer/oauthd/internal/model"
)

// AuditRecorder is the single write path for the security event log.
// The log is append-only: events are never updated or deleted.
type AuditRecorder struct {
	store      model.AuditStore
	failClosed bool
	queryLimit int
	logger     *logger.Logger
}

// NewAuditRecorder creates a recorder. With failClosed set, a failed
// audit write propagates to the caller so the mutating operation that
// produced it fails as a whole.
func NewAuditRecorder(store model.AuditStore, failClosed bool, queryLimit int, logger *logger.Logger) *AuditRecorder {
	if queryLimit <= 0 {
		queryLimit = 100
	}
	return &AuditRecorder{
		store:      store,
		failClosed: failClosed,
		queryLimit: queryLimit,
		logger:     logger,
	}
}

// Record appends one event. ID, timestamp and severity default here so
// call sites stay terse.
func (r *AuditRecorder) Record(ctx context.Context, event model.AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.Severity == "" {
		event.Severity = model.SeverityInfo
	}

	if event.Severity == model.SeverityAttack {
		r.logger.Warn("Audit: potential attack recorded",
			"action", event.Action,
			"actor_id", event.ActorID,
			"resource_type", event.ResourceType,
			"resource_id", event.ResourceID,
			"detail", event.Detail)
	}

	if err := r.store.Append(ctx, event); err != nil {
		r.logger.Error("Audit: append failed",
			"action", event.Action,
			"error", err.Error())
		if r.failClosed {
			return fmt.Errorf("%w: %w", model.ErrAuditRejected, err)
		}
		return nil
	}
	return nil
}

// Query returns events matching the filter, newest first. The limit is
// clamped to the configured maximum.
func (r *AuditRecorder) Query(ctx context.Context, filter model.AuditFilter) ([]model.AuditEvent, error) {
	if filter.Limit <= 0 || filter.Limit > r.queryLimit {
		filter.Limit = r.queryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, err := r.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	return events, nil
}

// AuditArchiver exports closed time ranges of the audit log to object
// storage as JSON lines, for retention beyond the database.
type AuditArchiver struct {
	recorder *AuditRecorder
	storage  model.ArchiveStorage
	logger   *logger.Logger
}

func NewAuditArchiver(recorder *AuditRecorder, storage model.ArchiveStorage, logger *logger.Logger) *AuditArchiver {
	return &AuditArchiver{
		recorder: recorder,
		storage:  storage,
		logger:   logger,
	}
}

// Export writes every event in [from, to) to one object and returns the
// object key. Events stay in the database; export is a copy.
func (a *AuditArchiver) Export(ctx context.Context, from, to time.Time) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	offset := 0
	total := 0
	for {
		events, err := a.recorder.Query(ctx, model.AuditFilter{
			From:   from,
			To:     to,
			Limit:  a.recorder.queryLimit,
			Offset: offset,
		})
		if err != nil {
			return "", err
		}
		for _, event := range events {
			if err := enc.Encode(auditExportRow(event)); err != nil {
				return "", fmt.Errorf("failed to encode audit event: %w", err)
			}
		}
		total += len(events)
		if len(events) < a.recorder.queryLimit {
			break
		}
		offset += len(events)
	}

	key := fmt.Sprintf("audit/%s_%s.jsonl", from.UTC().Format("20060102T150405Z"), to.UTC().Format("20060102T150405Z"))
	if err := a.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return "", fmt.Errorf("failed to upload audit archive: %w", err)
	}

	a.logger.Info("Audit: range exported",
		"key", key,
		"events", total)
	return key, nil
}

type exportRow struct {
	ID           string `json:"id"`
	ActorID      string `json:"actor_id,omitempty"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Status       string `json:"status"`
	Severity     string `json:"severity"`
	Detail       string `json:"detail,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func auditExportRow(event model.AuditEvent) exportRow {
	return exportRow{
		ID:           event.ID.String(),
		ActorID:      event.ActorID,
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Status:       event.Status,
		Severity:     string(event.Severity),
		Detail:       event.Detail,
		CreatedAt:    event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
