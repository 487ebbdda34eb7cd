package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"research-assistant/internal/app"
	"research-assistant/internal/repository"
	"research-assistant/internal/transport/http/response"
)

// SessionHandler exposes per-session history: the durable transcript written
// by the persistence worker, and checkpoint deletion.
type SessionHandler struct {
	checkpoints *app.CheckpointService
	transcripts *repository.TranscriptRepository
}

func NewSessionHandler(checkpoints *app.CheckpointService, transcripts *repository.TranscriptRepository) *SessionHandler {
	return &SessionHandler{checkpoints: checkpoints, transcripts: transcripts}
}

// Transcript lists the session's persisted messages in chronological order.
func (h *SessionHandler) Transcript(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing session id")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.transcripts.ListBySessionID(sessionID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list transcript failed: "+err.Error())
		return
	}

	response.OK(c, gin.H{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// Delete removes the session's checkpoint so the next query starts a fresh
// conversation. The durable transcript rows are kept.
func (h *SessionHandler) Delete(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing session id")
		return
	}

	if err := h.checkpoints.Delete(c.Request.Context(), sessionID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete session failed: "+err.Error())
		return
	}

	response.OK(c, gin.H{"message": "session deleted"})
}
