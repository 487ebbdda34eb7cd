package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"research-assistant/internal/app"
	"research-assistant/internal/transport/http/response"
)

// AssistantHandler exposes the document upload / query / status / reset
// surface of the assistant.
type AssistantHandler struct {
	ingest      *app.IngestService
	workflow    *app.WorkflowService
	maxFileSize int64
}

type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

func NewAssistantHandler(ingest *app.IngestService, workflow *app.WorkflowService, maxFileSizeMB int) *AssistantHandler {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 50
	}
	return &AssistantHandler{
		ingest:      ingest,
		workflow:    workflow,
		maxFileSize: int64(maxFileSizeMB) << 20,
	}
}

// Upload accepts a multipart form with "file" (PDF) and starts a background
// ingestion job.
func (h *AssistantHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxFileSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are supported")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	jobID, err := h.ingest.Start(data, file.Filename)
	if err != nil {
		if errors.Is(err, app.ErrIngestionRunning) {
			response.Error(c, http.StatusConflict, response.CodeIngestionBusy, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "start ingestion failed: "+err.Error())
		}
		return
	}

	response.OK(c, gin.H{
		"job_id":   jobID,
		"filename": file.Filename,
		"message":  "document uploaded, processing in background",
	})
}

// Query runs one workflow invocation for the session.
func (h *AssistantHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if !h.ingest.Ready() {
		response.Error(c, http.StatusBadRequest, response.CodeDocumentNotReady, "no document has been uploaded and processed yet")
		return
	}

	result, err := h.workflow.Run(c.Request.Context(), req.SessionID, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyQuery):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrWorkflowTimeout):
			response.Error(c, http.StatusGatewayTimeout, response.CodeWorkflowTimeout, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeWorkflowFailed, err.Error())
		}
		return
	}

	response.OK(c, result)
}

// Status reports whether a document is indexed and the latest job's state.
func (h *AssistantHandler) Status(c *gin.Context) {
	status := gin.H{
		"ready":          h.ingest.Ready(),
		"workflow_ready": true,
	}
	if jobStatus, ok := h.ingest.Status(); ok {
		status["job_status"] = jobStatus
	}
	response.OK(c, status)
}

// Reset clears the corpus and image assets. Session checkpoints survive.
func (h *AssistantHandler) Reset(c *gin.Context) {
	h.ingest.Reset()
	response.OK(c, gin.H{"message": "system reset successfully"})
}
