package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salesbot-gateway/internal/models"
)

func TestBroadcastEventNeverBlocks(t *testing.T) {
	h := NewHub() // Run is never started: the queue fills and then drops.

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			h.BroadcastEvent("conversation_update", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a saturated queue")
	}
}

func TestCurrentStateChallengePending(t *testing.T) {
	h := NewHub()

	_, ok := h.currentState()
	require.False(t, ok, "nothing to replay while connecting")

	h.PublishChallenge("qr-data")
	event, ok := h.currentState()
	require.True(t, ok)
	require.Equal(t, "qr", event.Type)
	require.Equal(t, "qr-data", event.Data)
}

func TestCurrentStateReadyClearsChallenge(t *testing.T) {
	h := NewHub()
	h.PublishChallenge("qr-data")

	h.PublishStatus(models.StatusReady, "")
	event, ok := h.currentState()
	require.True(t, ok)
	require.Equal(t, "ready", event.Type)
}

func TestSlowObserverDropSurvivesStateReply(t *testing.T) {
	h := NewHub()
	h.stateMu.Lock()
	h.challenge = "qr-data"
	h.stateMu.Unlock()
	go h.Run()

	// Observer whose queue is saturated.
	client := &Client{hub: h, send: make(chan []byte, 1)}
	h.register <- client
	require.True(t, client.trySend([]byte("backlog")))

	// Fan-out finds the full buffer and drops the observer.
	h.BroadcastEvent("status", nil)
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.closed
	}, 2*time.Second, 5*time.Millisecond)

	// The client's own goroutine may still be answering a request_state at
	// that moment; the reply must be dropped, never panic.
	event, ok := h.currentState()
	require.True(t, ok)
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NotPanics(t, func() {
		require.False(t, client.trySend(payload))
	})
}

func TestPublishConversationShapesEvent(t *testing.T) {
	h := NewHub()
	go h.Run()

	// Register a client by hand and read its queue.
	client := &Client{hub: h, send: make(chan []byte, 4)}
	h.register <- client

	customer := models.Customer{Phone: "p1", Name: "João"}
	h.PublishConversation("p1", customer, nil)

	select {
	case raw := <-client.send:
		require.Contains(t, string(raw), `"type":"conversation_update"`)
		require.Contains(t, string(raw), `"phone":"p1"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no event fanned out")
	}
}
