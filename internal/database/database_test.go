package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/davie-sparq/bizot/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedAgent(t *testing.T, db *DB) *models.Agent {
	t.Helper()
	user, err := db.CreateUser("owner", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	agent := &models.Agent{
		OwnerID:           user.ID,
		Name:              "Aria",
		BusinessName:      "Glow Spa",
		SystemInstruction: "You are {{chatbotName}}.",
		KnowledgeBase:     []string{"We open at 9am"},
		Services: []models.Service{
			{ID: "s1", Name: "Facial", Category: "Spa", Description: "60 minutes"},
		},
		Tools: []string{"bookAppointment"},
	}
	if err := db.CreateAgent(agent); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	return agent
}

func TestAgentRoundTrip(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db)

	got, err := db.GetAgent(context.Background(), agent.ID)
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got == nil {
		t.Fatal("expected agent, got nil")
	}
	if got.Name != "Aria" || got.BusinessName != "Glow Spa" {
		t.Errorf("unexpected agent fields: %+v", got)
	}
	if len(got.KnowledgeBase) != 1 || got.KnowledgeBase[0] != "We open at 9am" {
		t.Errorf("knowledge base not preserved: %v", got.KnowledgeBase)
	}
	if len(got.Services) != 1 || got.Services[0].Name != "Facial" {
		t.Errorf("services not preserved: %v", got.Services)
	}
	if len(got.Tools) != 1 || got.Tools[0] != "bookAppointment" {
		t.Errorf("tools not preserved: %v", got.Tools)
	}
	if got.Status != models.AgentStatusDraft {
		t.Errorf("expected draft status, got %q", got.Status)
	}
}

func TestGetAgentMissingReturnsNilNil(t *testing.T) {
	db := openTestDB(t)

	got, err := db.GetAgent(context.Background(), "no-such-agent")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing agent, got %+v", got)
	}
}

func TestUpdateAgent(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db)

	agent.Name = "Luna"
	agent.Status = models.AgentStatusActive
	agent.Tools = []string{"bookAppointment", "makeRestaurantReservation"}
	if err := db.UpdateAgent(agent); err != nil {
		t.Fatalf("UpdateAgent: %v", err)
	}

	got, err := db.GetAgent(context.Background(), agent.ID)
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.Name != "Luna" || got.Status != models.AgentStatusActive {
		t.Errorf("update not applied: %+v", got)
	}
	if len(got.Tools) != 2 {
		t.Errorf("expected 2 tools, got %v", got.Tools)
	}
}

func TestUpdateAgentMissing(t *testing.T) {
	db := openTestDB(t)

	err := db.UpdateAgent(&models.Agent{ID: "ghost"})
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestAppendKnowledge(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db)

	got, err := db.AppendKnowledge(agent.ID, []string{"We close at 6pm", "", "Walk-ins welcome"})
	if err != nil {
		t.Fatalf("AppendKnowledge: %v", err)
	}
	want := []string{"We open at 9am", "We close at 6pm", "Walk-ins welcome"}
	if len(got.KnowledgeBase) != len(want) {
		t.Fatalf("expected %d chunks, got %v", len(want), got.KnowledgeBase)
	}
	for i, chunk := range want {
		if got.KnowledgeBase[i] != chunk {
			t.Errorf("chunk %d: expected %q, got %q", i, chunk, got.KnowledgeBase[i])
		}
	}
}

func TestDeleteAgentCascades(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db)

	session, err := db.CreateSession(agent.ID, "first chat")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := db.AddMessage(session.ID, "user", "hello", ""); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if _, err := db.CreateBooking(agent.ID, "bookAppointment", "Dana", `{"time":"2pm"}`); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if err := db.DeleteAgent(agent.ID); err != nil {
		t.Fatalf("DeleteAgent: %v", err)
	}

	gotSession, err := db.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if gotSession != nil {
		t.Error("expected session deleted with agent")
	}
	bookings, err := db.ListBookings(agent.ID)
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(bookings) != 0 {
		t.Errorf("expected bookings deleted with agent, got %d", len(bookings))
	}
}

func TestSessionMessagesAndTurns(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db)

	session, err := db.CreateSession(agent.ID, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := db.AddMessage(session.ID, "user", "hi", ""); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if _, err := db.AddMessage(session.ID, "model", "hello there", ""); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	messages, err := db.ListMessages(session.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "model" {
		t.Errorf("messages out of order: %v, %v", messages[0].Role, messages[1].Role)
	}

	turns, err := db.RecentTurns(session.ID, 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "hi" || turns[1].Content != "hello there" {
		t.Errorf("unexpected turns: %+v", turns)
	}
}

func TestPurgeSessionsBefore(t *testing.T) {
	db := openTestDB(t)
	agent := seedAgent(t, db)

	old, err := db.CreateSession(agent.ID, "stale")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	db.Exec("UPDATE chat_sessions SET updated_at = ? WHERE id = ?",
		time.Now().UTC().Add(-48*time.Hour), old.ID)

	fresh, err := db.CreateSession(agent.ID, "recent")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	purged, err := db.PurgeSessionsBefore(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PurgeSessionsBefore: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged session, got %d", purged)
	}

	gotFresh, err := db.GetSession(fresh.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if gotFresh == nil {
		t.Error("recent session should survive purge")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetSetting("jwt_secret", "abc"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := db.SetSetting("jwt_secret", "def"); err != nil {
		t.Fatalf("SetSetting upsert: %v", err)
	}
	got, err := db.GetSetting("jwt_secret")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got != "def" {
		t.Errorf("expected def, got %q", got)
	}

	missing, err := db.GetSetting("nope")
	if err != nil {
		t.Fatalf("GetSetting missing: %v", err)
	}
	if missing != "" {
		t.Errorf("expected empty value for missing key, got %q", missing)
	}
}
