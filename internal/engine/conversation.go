package engine

import (
	"sync"
	"time"

	"salesbot-gateway/internal/models"
)

// ConversationStore holds per-phone flow progress. A conversation exists only
// once an inbound message reached the state machine; objection hits before
// creation never create one.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{conversations: make(map[string]*models.Conversation)}
}

// Turn is a planned advancement of one conversation. The caller commits it
// only after the reply was dispatched, so a failed send never leaves a
// transitioned step without its recorded reply.
type Turn struct {
	phone    string
	create   bool
	now      time.Time
	response *models.StepResponse
	nextStep string
}

// Plan evaluates one inbound message against the flow table and returns the
// turn to commit plus the reply to send. ok is false when the conversation
// is terminal and the message is absorbed.
//
// The caller must hold the phone's serialization lock across Plan, the
// dispatch, and Commit.
func (s *ConversationStore) Plan(flows *FlowTable, phone, displayName, incoming string, now time.Time) (Turn, string, bool) {
	s.mu.RLock()
	conv, exists := s.conversations[phone]
	s.mu.RUnlock()

	if !exists {
		// First contact: greet with the entry step and move past it. The
		// entry template is the only one taking the display name.
		entry := flows.Entry()
		t := Turn{phone: phone, create: true, now: now, nextStep: entry.Next}
		return t, flows.Render(entry, displayName), true
	}

	current, ok := flows.Lookup(conv.Step)
	if !ok {
		// Terminal (or unknown) step: no reply, no state change.
		return Turn{}, "", false
	}

	arg := ""
	if current.ContextStep != "" {
		arg = priorResponse(conv, current.ContextStep)
	}

	t := Turn{
		phone: phone,
		now:   now,
		response: &models.StepResponse{
			Step:      current.Name,
			Response:  incoming,
			Timestamp: now,
		},
		nextStep: current.Next,
	}
	return t, flows.Render(current, arg), true
}

// Commit applies a planned turn.
func (s *ConversationStore) Commit(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.create {
		s.conversations[t.phone] = &models.Conversation{
			Phone:     t.phone,
			Step:      t.nextStep,
			StartTime: t.now,
		}
		return
	}

	conv, ok := s.conversations[t.phone]
	if !ok {
		return
	}
	if t.response != nil {
		conv.Responses = append(conv.Responses, *t.response)
	}
	conv.Step = t.nextStep
}

// priorResponse scans for the response recorded at the named step. The lookup
// is by exact step name; a response at some other step never substitutes.
func priorResponse(conv *models.Conversation, step string) string {
	for _, r := range conv.Responses {
		if r.Step == step {
			return r.Response
		}
	}
	return ""
}

// Snapshot returns a deep copy of the conversation, or nil if none exists.
func (s *ConversationStore) Snapshot(phone string) *models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[phone]
	if !ok {
		return nil
	}
	out := *conv
	out.Responses = make([]models.StepResponse, len(conv.Responses))
	copy(out.Responses, conv.Responses)
	return &out
}

// Count returns the number of active conversations.
func (s *ConversationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
