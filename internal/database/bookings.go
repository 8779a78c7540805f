package database

import (
	"fmt"
	"time"

	"github.com/davie-sparq/bizot/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateBooking(agentID, toolName, guestName, details string) (*models.Booking, error) {
	if details == "" {
		details = "{}"
	}
	booking := &models.Booking{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		ToolName:  toolName,
		GuestName: guestName,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		"INSERT INTO bookings (id, agent_id, tool_name, guest_name, details, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		booking.ID, booking.AgentID, booking.ToolName, booking.GuestName, booking.Details, booking.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return booking, nil
}

func (db *DB) ListBookings(agentID string) ([]*models.Booking, error) {
	rows, err := db.Query(
		"SELECT id, agent_id, tool_name, guest_name, details, created_at FROM bookings WHERE agent_id = ? ORDER BY created_at DESC",
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		var booking models.Booking
		if err := rows.Scan(&booking.ID, &booking.AgentID, &booking.ToolName, &booking.GuestName, &booking.Details, &booking.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, &booking)
	}
	return bookings, rows.Err()
}
