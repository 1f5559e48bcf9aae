package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"salesbot-gateway/internal/api"
	"salesbot-gateway/internal/archive"
	"salesbot-gateway/internal/config"
	"salesbot-gateway/internal/engine"
	"salesbot-gateway/internal/transport"
	"salesbot-gateway/internal/webhook"
	"salesbot-gateway/internal/ws"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.LoadConfig()

	hub := ws.NewHub()
	go hub.Run()

	session := transport.NewCloudSession(cfg)
	manager := transport.NewManager(session, hub)

	opts := engine.Options{}
	if cfg.ArchiveEnabled {
		store, err := archive.Open(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("opening archive")
		}
		defer store.Close()
		opts.Archiver = store
	}

	dispatcher := engine.NewDispatcher(manager, cfg.FollowUpPace)
	eng := engine.New(dispatcher, hub, manager, opts)

	webhookHandler := webhook.NewHandler(cfg, eng)
	authHandler := api.NewAuthHandler(cfg)
	dashboardHandler := api.NewDashboardHandler(eng, manager)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleMessage)

	// Dashboard API Routes
	r.POST("/api/login", authHandler.Login)

	apiGroup := r.Group("/api", authHandler.Middleware())
	{
		apiGroup.GET("/status", dashboardHandler.GetStatus)
		apiGroup.GET("/conversations", dashboardHandler.GetConversations)
		apiGroup.GET("/conversations/:phone", dashboardHandler.GetConversation)
		apiGroup.POST("/send-message", dashboardHandler.SendMessage)
		apiGroup.POST("/send-followup", dashboardHandler.SendFollowUp)
		apiGroup.POST("/restart-whatsapp", dashboardHandler.RestartTransport)
	}

	// Real-time observer channel
	r.GET("/ws", authHandler.Middleware(), func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	go manager.Start(context.Background())

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to run server")
	}
}
