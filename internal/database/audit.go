package database

import (
	"time"

	"github.com/google/uuid"
)

func (db *DB) LogAudit(userID, action, category, target, targetID, details string) {
	if len(details) > 200 {
		details = details[:200]
	}
	id := uuid.New().String()
	now := time.Now().UTC()
	_, _ = db.Exec(
		"INSERT INTO audit_logs (id, user_id, action, category, target, target_id, details, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, userID, action, category, target, targetID, details, now,
	)
	if db.OnAudit != nil {
		db.OnAudit(action, category)
	}
}

func (db *DB) ListAuditLogs(limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := db.Query(
		"SELECT id, user_id, action, category, target, target_id, details, created_at FROM audit_logs ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []map[string]any{}
	for rows.Next() {
		var id, userID, action, category, target, targetID, details string
		var createdAt time.Time
		if err := rows.Scan(&id, &userID, &action, &category, &target, &targetID, &details, &createdAt); err != nil {
			return nil, err
		}
		logs = append(logs, map[string]any{
			"id":         id,
			"user_id":    userID,
			"action":     action,
			"category":   category,
			"target":     target,
			"target_id":  targetID,
			"details":    details,
			"created_at": createdAt,
		})
	}
	return logs, rows.Err()
}
