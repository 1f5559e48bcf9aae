package models

import (
	"time"
)

// Direction tells whether a message was received from the contact or sent to them.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionSent     Direction = "sent"
)

// Message is a single entry in a customer's history. Immutable once appended;
// slice order within Customer.Messages is chronological.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
}

// Customer is the per-contact record kept for the lifetime of the process.
type Customer struct {
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Messages  []Message `json:"messages"`
}

// LastMessage returns the most recent message, or nil for an empty history.
func (c *Customer) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	m := c.Messages[len(c.Messages)-1]
	return &m
}

// StepResponse records what the contact said while a given script step was
// current. Later steps may reference it for personalization.
type StepResponse struct {
	Step      string    `json:"step"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation tracks a contact's position in the scripted flow.
type Conversation struct {
	Phone     string         `json:"phone"`
	Step      string         `json:"step"`
	StartTime time.Time      `json:"start_time"`
	Responses []StepResponse `json:"responses"`
}

// InboundEvent is the flattened message event delivered by the transport.
type InboundEvent struct {
	FromID      string    `json:"from_id"`
	DisplayName string    `json:"display_name"`
	Body        string    `json:"body"`
	IsBroadcast bool      `json:"is_broadcast"`
	Timestamp   time.Time `json:"timestamp"`
}

// TransportStatus is the lifecycle state of the messaging transport.
type TransportStatus string

const (
	StatusDisconnected TransportStatus = "disconnected"
	StatusInitializing TransportStatus = "initializing"
	StatusQRCode       TransportStatus = "qr_code"
	StatusAuthed       TransportStatus = "authenticated"
	StatusReady        TransportStatus = "ready"
	StatusAuthFailure  TransportStatus = "auth_failure"
	StatusError        TransportStatus = "error"
	StatusRestarting   TransportStatus = "restarting"
)

// EngineStatus is the aggregate snapshot returned by the status endpoint.
type EngineStatus struct {
	IsReady            bool            `json:"is_ready"`
	TransportStatus    TransportStatus `json:"transport_status"`
	TotalConversations int             `json:"total_conversations"`
	TotalCustomers     int             `json:"total_customers"`
	Timestamp          time.Time       `json:"timestamp"`
}

// ConversationSummary is the dashboard list entry. Customer carries only the
// last ten messages; the full history stays in the ledger.
type ConversationSummary struct {
	Phone        string        `json:"phone"`
	Customer     Customer      `json:"customer"`
	Conversation *Conversation `json:"conversation,omitempty"`
	LastMessage  *Message      `json:"last_message,omitempty"`
}

// ConversationDetail is the single-conversation view with full history.
type ConversationDetail struct {
	Phone        string        `json:"phone"`
	Customer     Customer      `json:"customer"`
	Conversation *Conversation `json:"conversation,omitempty"`
}
