package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
)

// ChatService is the transport-facing subset of the response pipeline.
type ChatService interface {
	Ingest(ctx context.Context, session, text string) (domain.IngestSummary, error)
	Respond(ctx context.Context, session, message string) (string, error)
}

// HealthChecker reports reachability of the persistence backend.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP endpoints of the chat backend.
type Handler struct {
	pipeline ChatService
	health   HealthChecker
	log      *logger.Logger
}

func NewHandler(pipeline ChatService, health HealthChecker, log *logger.Logger) *Handler {
	return &Handler{pipeline: pipeline, health: health, log: log.With("component", "http")}
}

// Root is a plain liveness probe.
func (h *Handler) Root(c *gin.Context) {
	c.String(http.StatusOK, "AI Chatbot Backend Running")
}

// DBTest reports whether the storage backend is reachable.
func (h *Handler) DBTest(c *gin.Context) {
	if err := h.health.Ping(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, "storage_error", err)
		return
	}
	respondOK(c, gin.H{"status": "ok"})
}

type chatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat handles one conversation turn.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error",
			errors.New("session_id and message required"))
		return
	}
	reply, err := h.pipeline.Respond(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		h.log.Error("chat failed", "session", req.SessionID, "error", err)
		respondError(c, http.StatusInternalServerError, "storage_error", err)
		return
	}
	respondOK(c, chatResponse{Reply: reply})
}

type uploadResponse struct {
	Message  string `json:"message"`
	Chunks   int    `json:"chunks"`
	Embedded int    `json:"embedded"`
}

// Upload receives a multipart file, decodes it to text and hands it to the
// ingestion pipeline. The multipart temp artifact is handled by the HTTP
// layer; the pipeline only ever sees decoded text.
func (h *Handler) Upload(c *gin.Context) {
	session := c.PostForm("session_id")
	fileHeader, err := c.FormFile("file")
	if session == "" || err != nil {
		respondError(c, http.StatusBadRequest, "validation_error",
			errors.New("file and session_id required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	defer f.Close()
	text, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}

	summary, err := h.pipeline.Ingest(c.Request.Context(), session, string(text))
	if err != nil {
		h.log.Error("upload failed", "session", session, "error", err)
		respondError(c, http.StatusInternalServerError, "storage_error", err)
		return
	}
	respondOK(c, uploadResponse{
		Message:  "File processed and embeddings stored",
		Chunks:   summary.Chunks,
		Embedded: summary.Embedded,
	})
}
