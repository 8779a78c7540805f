package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davie-sparq/bizot/internal/models"
	"github.com/google/uuid"
)

// CreateAgent inserts a new agent record. ID and timestamps are assigned
// here; the caller supplies everything else.
func (db *DB) CreateAgent(agent *models.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	if agent.Status == "" {
		agent.Status = models.AgentStatusDraft
	}
	now := time.Now().UTC()
	agent.CreatedAt = now
	agent.UpdatedAt = now

	kb, services, tools, err := encodeAgentColumns(agent)
	if err != nil {
		return err
	}

	_, err = db.Exec(
		`INSERT INTO agents (id, owner_id, name, business_name, system_instruction, knowledge_base, services, tools, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.OwnerID, agent.Name, agent.BusinessName, agent.SystemInstruction,
		kb, services, tools, agent.Status, agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent loads one agent by ID. A missing row returns (nil, nil) so
// callers can distinguish absence from a query failure.
func (db *DB) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, business_name, system_instruction, knowledge_base, services, tools, status, created_at, updated_at
		 FROM agents WHERE id = ?`, id)
	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

func (db *DB) ListAgents(ownerID string) ([]*models.Agent, error) {
	rows, err := db.Query(
		`SELECT id, owner_id, name, business_name, system_instruction, knowledge_base, services, tools, status, created_at, updated_at
		 FROM agents WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	agents := []*models.Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// UpdateAgent overwrites the mutable fields of an existing agent.
func (db *DB) UpdateAgent(agent *models.Agent) error {
	agent.UpdatedAt = time.Now().UTC()

	kb, services, tools, err := encodeAgentColumns(agent)
	if err != nil {
		return err
	}

	res, err := db.Exec(
		`UPDATE agents SET name = ?, business_name = ?, system_instruction = ?, knowledge_base = ?, services = ?, tools = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		agent.Name, agent.BusinessName, agent.SystemInstruction,
		kb, services, tools, agent.Status, agent.UpdatedAt, agent.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *DB) DeleteAgent(id string) error {
	res, err := db.Exec("DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendKnowledge adds chunks to the agent's knowledge base. Blank chunks
// are dropped; duplicates are kept, matching how owners paste raw notes.
func (db *DB) AppendKnowledge(id string, chunks []string) (*models.Agent, error) {
	agent, err := db.GetAgent(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, sql.ErrNoRows
	}
	for _, chunk := range chunks {
		if chunk == "" {
			continue
		}
		agent.KnowledgeBase = append(agent.KnowledgeBase, chunk)
	}
	if err := db.UpdateAgent(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func encodeAgentColumns(agent *models.Agent) (kb, services, tools string, err error) {
	if agent.KnowledgeBase == nil {
		agent.KnowledgeBase = []string{}
	}
	if agent.Services == nil {
		agent.Services = []models.Service{}
	}
	if agent.Tools == nil {
		agent.Tools = []string{}
	}

	kbBytes, err := json.Marshal(agent.KnowledgeBase)
	if err != nil {
		return "", "", "", fmt.Errorf("encode knowledge base: %w", err)
	}
	svcBytes, err := json.Marshal(agent.Services)
	if err != nil {
		return "", "", "", fmt.Errorf("encode services: %w", err)
	}
	toolBytes, err := json.Marshal(agent.Tools)
	if err != nil {
		return "", "", "", fmt.Errorf("encode tools: %w", err)
	}
	return string(kbBytes), string(svcBytes), string(toolBytes), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var agent models.Agent
	var kb, services, tools string
	err := row.Scan(
		&agent.ID, &agent.OwnerID, &agent.Name, &agent.BusinessName, &agent.SystemInstruction,
		&kb, &services, &tools, &agent.Status, &agent.CreatedAt, &agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(kb), &agent.KnowledgeBase); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	if err := json.Unmarshal([]byte(services), &agent.Services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	if err := json.Unmarshal([]byte(tools), &agent.Tools); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}
	return &agent, nil
}
