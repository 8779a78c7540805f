package handlers

import (
	"net/http"
	"strconv"

	"github.com/davie-sparq/bizot/internal/database"
)

type LogsHandler struct {
	db *database.DB
}

func NewLogsHandler(db *database.DB) *LogsHandler {
	return &LogsHandler{db: db}
}

func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	logs, err := h.db.ListAuditLogs(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
