package webhook

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"salesbot-gateway/internal/config"
	"salesbot-gateway/internal/engine"
	"salesbot-gateway/internal/models"
	pkgmodels "salesbot-gateway/pkg/models"
)

// broadcastOrigin marks platform broadcast pseudo-contacts the engine must
// ignore.
const broadcastOrigin = "status@broadcast"

type Handler struct {
	Config *config.Config
	Engine *engine.Engine
}

func NewHandler(cfg *config.Config, eng *engine.Engine) *Handler {
	return &Handler{Config: cfg, Engine: eng}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			log.Info().Msg("webhook verified")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

// HandleMessage flattens the platform payload into inbound events and hands
// each to the engine. The platform always gets 200 back, even for payloads
// that fail to parse: anything else makes Meta retry the delivery.
func (h *Handler) HandleMessage(c *gin.Context) {
	var payload pkgmodels.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Warn().Err(err).Msg("malformed webhook payload")
		c.Status(http.StatusOK)
		return
	}

	for _, ev := range flatten(payload) {
		go h.Engine.HandleInbound(context.Background(), ev)
	}

	c.Status(http.StatusOK)
}

// flatten extracts text-message events with their profile display name.
func flatten(payload pkgmodels.WebhookPayload) []models.InboundEvent {
	var events []models.InboundEvent

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value

			names := make(map[string]string, len(value.Contacts))
			for _, contact := range value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, msg := range value.Messages {
				if msg.Type != "text" {
					log.Debug().Str("type", msg.Type).Str("from", msg.From).Msg("skipping non-text message")
					continue
				}

				ts := time.Now()
				if secs, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil {
					ts = time.Unix(secs, 0)
				}

				events = append(events, models.InboundEvent{
					FromID:      msg.From,
					DisplayName: names[msg.From],
					Body:        msg.Text.Body,
					IsBroadcast: msg.From == broadcastOrigin,
					Timestamp:   ts,
				})
			}
		}
	}
	return events
}
