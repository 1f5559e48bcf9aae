package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"salesbot-gateway/internal/models"
)

// DefaultCustomerName is used when the transport supplies no display name.
const DefaultCustomerName = "Cliente"

// lastMessagesProjection is how many trailing messages the dashboard list
// view carries per conversation.
const lastMessagesProjection = 10

// Publisher receives state-change notifications. Implementations must be
// best-effort and non-blocking.
type Publisher interface {
	PublishConversation(phone string, customer models.Customer, conversation *models.Conversation)
}

// Archiver persists ledger writes out-of-band. The engine never reads it
// back; it exists for audit only.
type Archiver interface {
	RecordContact(phone, name string)
	RecordMessage(phone, text string, direction models.Direction, ts time.Time)
}

// StatusSource reports the transport lifecycle state for the status endpoint.
type StatusSource interface {
	Status() models.TransportStatus
	Ready() bool
}

// Engine orchestrates the ledger, objection matcher, state machine,
// dispatcher and publisher for every inbound event and administrative
// operation. All work for one phone is serialized; distinct phones proceed
// concurrently.
type Engine struct {
	ledger        *Ledger
	flows         *FlowTable
	objections    *ObjectionTable
	conversations *ConversationStore
	dispatcher    *Dispatcher
	publisher     Publisher
	status        StatusSource
	archiver      Archiver
	locks         *phoneLocks
}

// Options carries optional collaborators.
type Options struct {
	Flows      *FlowTable
	Objections *ObjectionTable
	Archiver   Archiver
}

func New(dispatcher *Dispatcher, publisher Publisher, status StatusSource, opts Options) *Engine {
	flows := opts.Flows
	if flows == nil {
		flows = DefaultFlowTable()
	}
	objections := opts.Objections
	if objections == nil {
		objections = DefaultObjectionTable()
	}
	return &Engine{
		ledger:        NewLedger(),
		flows:         flows,
		objections:    objections,
		conversations: NewConversationStore(),
		dispatcher:    dispatcher,
		publisher:     publisher,
		status:        status,
		archiver:      opts.Archiver,
		locks:         newPhoneLocks(),
	}
}

// HandleInbound processes one inbound message event end to end: ensure the
// customer, append the received message, intercept objections, otherwise
// advance the flow, dispatch the reply, and publish the updated state.
// Errors are logged and absorbed; a failed turn never stops processing for
// other contacts.
func (e *Engine) HandleInbound(ctx context.Context, ev models.InboundEvent) {
	if ev.IsBroadcast {
		return
	}

	release := e.locks.acquire(ev.FromID)
	defer release()

	name := ev.DisplayName
	if name == "" {
		name = DefaultCustomerName
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	e.ledger.Ensure(ev.FromID, name)
	if e.archiver != nil {
		e.archiver.RecordContact(ev.FromID, name)
	}
	e.appendMessage(ev.FromID, ev.Body, models.DirectionReceived, ts)

	log.Info().Str("phone", ev.FromID).Str("name", name).Msg("message received")

	if reply, ok := e.objections.Match(ev.Body); ok {
		// Known objection: answer out of sequence, leave the flow untouched.
		e.deliverReply(ctx, ev.FromID, reply)
		e.publish(ev.FromID)
		return
	}

	turn, reply, ok := e.conversations.Plan(e.flows, ev.FromID, name, ev.Body, time.Now())
	if ok {
		if e.deliverReply(ctx, ev.FromID, reply) {
			e.conversations.Commit(turn)
		}
	}

	e.publish(ev.FromID)
}

// deliverReply dispatches and, on success, records the sent message.
func (e *Engine) deliverReply(ctx context.Context, phone, text string) bool {
	if err := e.dispatcher.Send(ctx, phone, text); err != nil {
		log.Error().Str("phone", phone).Err(err).Msg("reply dispatch failed")
		return false
	}
	e.appendMessage(phone, text, models.DirectionSent, time.Now())
	return true
}

func (e *Engine) appendMessage(phone, text string, direction models.Direction, ts time.Time) {
	if _, err := e.ledger.AppendMessage(phone, text, direction, ts); err != nil {
		log.Error().Str("phone", phone).Err(err).Msg("ledger append failed")
		return
	}
	if e.archiver != nil {
		e.archiver.RecordMessage(phone, text, direction, ts)
	}
}

func (e *Engine) publish(phone string) {
	if e.publisher == nil {
		return
	}
	customer, err := e.ledger.Snapshot(phone)
	if err != nil {
		return
	}
	e.publisher.PublishConversation(phone, customer, e.conversations.Snapshot(phone))
}

// DirectSend is the manual administrative send. It bypasses the flow and the
// objection matcher but still records the sent message and notifies
// observers.
func (e *Engine) DirectSend(ctx context.Context, phone, text string) error {
	release := e.locks.acquire(phone)
	defer release()

	if err := e.dispatcher.Send(ctx, phone, text); err != nil {
		return err
	}

	e.ledger.Ensure(phone, DefaultCustomerName)
	if e.archiver != nil {
		e.archiver.RecordContact(phone, DefaultCustomerName)
	}
	e.appendMessage(phone, text, models.DirectionSent, time.Now())
	e.publish(phone)
	return nil
}

// FollowUpSummary aggregates a bulk send.
type FollowUpSummary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// FollowUpResult is the per-phone outcome exposed to the caller.
type FollowUpResult struct {
	Phone   string `json:"phone"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// FollowUp sends text to every phone through the dispatcher's paced batch
// contract. Failures are counted, never aborting; the ledger records sent
// messages only for successful recipients.
func (e *Engine) FollowUp(ctx context.Context, phones []string, text string) ([]FollowUpResult, FollowUpSummary) {
	return e.collectFollowUp(e.dispatcher.SendBatch(ctx, phones, text), text)
}

// FollowUpTemplate sends a pre-approved template through the same paced batch
// contract, re-opening contacts outside the platform's reply window. The
// platform renders the body; the ledger records the template name.
func (e *Engine) FollowUpTemplate(ctx context.Context, phones []string, name, language string) ([]FollowUpResult, FollowUpSummary) {
	return e.collectFollowUp(e.dispatcher.SendTemplateBatch(ctx, phones, name, language), name)
}

func (e *Engine) collectFollowUp(batch []BatchResult, text string) ([]FollowUpResult, FollowUpSummary) {
	results := make([]FollowUpResult, 0, len(batch))
	summary := FollowUpSummary{Total: len(batch)}
	for _, r := range batch {
		fr := FollowUpResult{Phone: r.Phone, Success: r.Success()}
		if r.Success() {
			summary.Success++
			release := e.locks.acquire(r.Phone)
			e.ledger.Ensure(r.Phone, DefaultCustomerName)
			if e.archiver != nil {
				e.archiver.RecordContact(r.Phone, DefaultCustomerName)
			}
			e.appendMessage(r.Phone, text, models.DirectionSent, time.Now())
			e.publish(r.Phone)
			release()
		} else {
			summary.Failed++
			fr.Error = r.Err.Error()
		}
		results = append(results, fr)
	}

	log.Info().Int("total", summary.Total).Int("success", summary.Success).Int("failed", summary.Failed).Msg("follow-up batch processed")
	return results, summary
}

// Status returns the aggregate engine snapshot.
func (e *Engine) Status() models.EngineStatus {
	st := models.EngineStatus{
		TotalConversations: e.conversations.Count(),
		TotalCustomers:     e.ledger.Count(),
		Timestamp:          time.Now(),
	}
	if e.status != nil {
		st.IsReady = e.status.Ready()
		st.TransportStatus = e.status.Status()
	}
	return st
}

// ListConversations returns the dashboard list: every customer with its
// last-10-messages projection, conversation state and last message.
func (e *Engine) ListConversations() []models.ConversationSummary {
	customers := e.ledger.List()
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].Phone < customers[j].Phone
	})

	out := make([]models.ConversationSummary, 0, len(customers))
	for _, c := range customers {
		last := c.LastMessage()
		if n := len(c.Messages); n > lastMessagesProjection {
			c.Messages = c.Messages[n-lastMessagesProjection:]
		}
		out = append(out, models.ConversationSummary{
			Phone:        c.Phone,
			Customer:     c,
			Conversation: e.conversations.Snapshot(c.Phone),
			LastMessage:  last,
		})
	}
	return out
}

// GetConversation returns the full record for one phone.
func (e *Engine) GetConversation(phone string) (models.ConversationDetail, error) {
	customer, err := e.ledger.Snapshot(phone)
	if err != nil {
		return models.ConversationDetail{}, err
	}
	return models.ConversationDetail{
		Phone:        phone,
		Customer:     customer,
		Conversation: e.conversations.Snapshot(phone),
	}, nil
}
