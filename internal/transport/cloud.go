package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"salesbot-gateway/internal/config"
	"salesbot-gateway/internal/models"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// CloudSession talks to the WhatsApp Cloud API. Token-authenticated, so no
// pairing challenge is ever emitted; readiness is established during Init.
type CloudSession struct {
	cfg     *config.Config
	baseURL string
	client  *http.Client
}

func NewCloudSession(cfg *config.Config) *CloudSession {
	return &CloudSession{
		cfg:     cfg,
		baseURL: defaultGraphBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Init validates credentials and reports the session ready. The Cloud API is
// stateless per request; nothing to hold open.
func (s *CloudSession) Init(_ context.Context, events SessionEvents) error {
	if s.cfg.WhatsAppToken == "" || s.cfg.PhoneNumberID == "" {
		return fmt.Errorf("WHATSAPP_TOKEN and PHONE_NUMBER_ID must be configured")
	}
	events.StatusChanged(models.StatusAuthed, "")
	events.StatusChanged(models.StatusReady, "")
	return nil
}

func (s *CloudSession) Close() error {
	return nil
}

// --- Message Structures ---

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             *textObj `json:"text,omitempty"`
}

type textObj struct {
	Body string `json:"body"`
}

type templateMessage struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Template         templateObj `json:"template"`
}

type templateObj struct {
	Name     string      `json:"name"`
	Language languageObj `json:"language"`
}

type languageObj struct {
	Code string `json:"code"`
}

// Send delivers a plain text message.
func (s *CloudSession) Send(ctx context.Context, to, body string) error {
	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textObj{Body: body},
	}
	return s.post(ctx, fmt.Sprintf("%s/%s/messages", s.baseURL, s.cfg.PhoneNumberID), msg)
}

// SendTemplate delivers a pre-approved template message.
func (s *CloudSession) SendTemplate(ctx context.Context, to, templateName, languageCode string) error {
	msg := templateMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: templateObj{
			Name:     templateName,
			Language: languageObj{Code: languageCode},
		},
	}
	return s.post(ctx, fmt.Sprintf("%s/%s/messages", s.baseURL, s.cfg.PhoneNumberID), msg)
}

func (s *CloudSession) post(ctx context.Context, url string, body interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.WhatsAppToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}
	return nil
}
