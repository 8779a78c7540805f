package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/davie-sparq/bizot/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateSession(agentID, title string) (*models.ChatSession, error) {
	session := &models.ChatSession{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	session.UpdatedAt = session.CreatedAt
	_, err := db.Exec(
		"INSERT INTO chat_sessions (id, agent_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		session.ID, session.AgentID, session.Title, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// GetSession returns (nil, nil) when no such session exists.
func (db *DB) GetSession(id string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := db.QueryRow(
		"SELECT id, agent_id, title, created_at, updated_at FROM chat_sessions WHERE id = ?", id,
	).Scan(&session.ID, &session.AgentID, &session.Title, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

func (db *DB) ListSessions(agentID string) ([]*models.ChatSession, error) {
	rows, err := db.Query(
		"SELECT id, agent_id, title, created_at, updated_at FROM chat_sessions WHERE agent_id = ? ORDER BY updated_at DESC",
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.ChatSession{}
	for rows.Next() {
		var session models.ChatSession
		if err := rows.Scan(&session.ID, &session.AgentID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

func (db *DB) DeleteSession(id string) error {
	res, err := db.Exec("DELETE FROM chat_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *DB) AddMessage(sessionID, role, content, toolName string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		ToolName:  toolName,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		"INSERT INTO chat_messages (id, session_id, role, content, tool_name, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.ToolName, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	db.Exec("UPDATE chat_sessions SET updated_at = ? WHERE id = ?", msg.CreatedAt, sessionID)
	return msg, nil
}

func (db *DB) ListMessages(sessionID string) ([]*models.ChatMessage, error) {
	rows, err := db.Query(
		"SELECT id, session_id, role, content, tool_name, created_at FROM chat_messages WHERE session_id = ? ORDER BY created_at",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.ChatMessage{}
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.ToolName, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// RecentTurns loads the last limit messages of a session in chronological
// order, shaped for the chat pipeline's history slot.
func (db *DB) RecentTurns(sessionID string, limit int) ([]models.ChatTurn, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT role, content FROM (
			SELECT role, content, created_at FROM chat_messages WHERE session_id = ? ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	turns := []models.ChatTurn{}
	for rows.Next() {
		var turn models.ChatTurn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// PurgeSessionsBefore deletes sessions not updated since cutoff. Messages
// go with them via the foreign key cascade.
func (db *DB) PurgeSessionsBefore(cutoff time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM chat_sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
