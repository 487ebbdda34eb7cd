package http

import (
	"github.com/gin-gonic/gin"

	"research-assistant/internal/bootstrap"
	"research-assistant/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	assistantHandler := handler.NewAssistantHandler(app.Ingest, app.Workflow, app.Config.Ingest.MaxFileSizeMB)

	v1 := router.Group("/api/v1")
	assistant := v1.Group("/assistant")
	assistant.POST("/upload", assistantHandler.Upload)
	assistant.POST("/query", assistantHandler.Query)
	assistant.GET("/status", assistantHandler.Status)
	assistant.DELETE("/reset", assistantHandler.Reset)

	sessionHandler := handler.NewSessionHandler(app.Checkpoints, app.Transcripts)
	session := v1.Group("/session")
	session.GET("/:session_id/transcript", sessionHandler.Transcript)
	session.DELETE("/:session_id", sessionHandler.Delete)

	return router
}
