package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/avollmer/oauthd/internal/model"
)

var _ model.AuditStore = (*AuditRepository)(nil)

// AuditRepository is insert-only by construction: it exposes no update
// or delete statement for audit_events.
type AuditRepository struct {
	db *Connection
}

func NewAuditRepository(db *Connection) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, event model.AuditEvent) error {
	const query = `
        INSERT INTO audit_events (id, actor_id, action, resource_type, resource_id, status, severity, detail, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `
	_, err := r.db.Exec(ctx, query,
		event.ID, event.ActorID, event.Action, event.ResourceType, event.ResourceID,
		event.Status, event.Severity, event.Detail, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, filter model.AuditFilter) ([]model.AuditEvent, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, cond+"$"+strconv.Itoa(len(args)))
	}

	if filter.ActorID != "" {
		add("actor_id = ", filter.ActorID)
	}
	if filter.Action != "" {
		add("action = ", filter.Action)
	}
	if filter.ResourceType != "" {
		add("resource_type = ", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		add("resource_id = ", filter.ResourceID)
	}
	if filter.Status != "" {
		add("status = ", filter.Status)
	}
	if filter.Severity != "" {
		add("severity = ", string(filter.Severity))
	}
	if !filter.From.IsZero() {
		add("created_at >= ", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at < ", filter.To)
	}

	query := `SELECT id, actor_id, action, resource_type, resource_id, status, severity, detail, created_at FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	args = append(args, filter.Limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var event model.AuditEvent
		if err := rows.Scan(
			&event.ID, &event.ActorID, &event.Action, &event.ResourceType, &event.ResourceID,
			&event.Status, &event.Severity, &event.Detail, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}
	return events, nil
}
