package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"salesbot-gateway/internal/engine"
	"salesbot-gateway/internal/transport"
)

type DashboardHandler struct {
	Engine  *engine.Engine
	Manager *transport.Manager
}

func NewDashboardHandler(eng *engine.Engine, manager *transport.Manager) *DashboardHandler {
	return &DashboardHandler{Engine: eng, Manager: manager}
}

func (h *DashboardHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.Status())
}

func (h *DashboardHandler) GetConversations(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.ListConversations())
}

func (h *DashboardHandler) GetConversation(c *gin.Context) {
	phone := c.Param("phone")
	detail, err := h.Engine.GetConversation(phone)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

type SendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (h *DashboardHandler) SendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient and message are required"})
		return
	}

	if err := h.Engine.DirectSend(c.Request.Context(), req.To, req.Message); err != nil {
		log.Error().Str("phone", req.To).Err(err).Msg("direct send failed")
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrTransportNotReady) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type FollowUpRequest struct {
	Phones  []string `json:"phones"`
	Message string   `json:"message"`
	// Template switches the batch to a pre-approved template message, for
	// contacts outside the platform's reply window. Message is ignored then.
	Template string `json:"template"`
	Language string `json:"language"`
}

func (h *DashboardHandler) SendFollowUp(c *gin.Context) {
	var req FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Phones) == 0 || (req.Message == "" && req.Template == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone list and a message or template are required"})
		return
	}

	var (
		results []engine.FollowUpResult
		summary engine.FollowUpSummary
	)
	if req.Template != "" {
		language := req.Language
		if language == "" {
			language = "pt_BR"
		}
		results, summary = h.Engine.FollowUpTemplate(c.Request.Context(), req.Phones, req.Template, language)
	} else {
		results, summary = h.Engine.FollowUp(c.Request.Context(), req.Phones, req.Message)
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "summary": summary})
}

func (h *DashboardHandler) RestartTransport(c *gin.Context) {
	// Detached from the request context: the restart outlives this call.
	h.Manager.Restart(context.Background())
	c.JSON(http.StatusOK, gin.H{"message": "transport restarting"})
}
