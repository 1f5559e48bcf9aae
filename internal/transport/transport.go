package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"salesbot-gateway/internal/models"
)

// Session is a concrete messaging-network connection. Init reports lifecycle
// transitions through the events sink; Send delivers one text message.
type Session interface {
	Init(ctx context.Context, events SessionEvents) error
	Send(ctx context.Context, to, body string) error
	Close() error
}

// SessionEvents receives lifecycle notifications from a session.
type SessionEvents interface {
	StatusChanged(status models.TransportStatus, detail string)
	ChallengeAvailable(payload string)
}

// Notifier forwards transport events to connected observers.
type Notifier interface {
	PublishStatus(status models.TransportStatus, detail string)
	PublishChallenge(payload string)
	PublishReady()
}

// restartDelay is the settle time between tearing a session down and
// bringing the replacement up.
const restartDelay = 2 * time.Second

// Manager owns the session lifecycle: status tracking, the pending pairing
// challenge, and asynchronous restarts. It is the Transport handed to the
// dispatcher; while a restart is in progress Ready is false and sends fail
// fast instead of corrupting engine state.
type Manager struct {
	session  Session
	notifier Notifier

	mu        sync.RWMutex
	status    models.TransportStatus
	challenge string
}

func NewManager(session Session, notifier Notifier) *Manager {
	return &Manager{
		session:  session,
		notifier: notifier,
		status:   models.StatusDisconnected,
	}
}

// Start brings the session up. Errors are reflected in the status, not
// returned: the operator restarts through the administrative surface.
func (m *Manager) Start(ctx context.Context) {
	m.StatusChanged(models.StatusInitializing, "")
	if err := m.session.Init(ctx, m); err != nil {
		log.Error().Err(err).Msg("transport init failed")
		m.StatusChanged(models.StatusError, err.Error())
	}
}

// Restart asynchronously reinitializes the session. Returns immediately.
func (m *Manager) Restart(ctx context.Context) {
	m.StatusChanged(models.StatusRestarting, "")
	m.setChallenge("")

	go func() {
		if err := m.session.Close(); err != nil {
			log.Warn().Err(err).Msg("session close during restart")
		}
		select {
		case <-time.After(restartDelay):
		case <-ctx.Done():
			return
		}
		m.Start(ctx)
	}()
}

// Ready reports whether sends may be attempted.
func (m *Manager) Ready() bool {
	return m.Status() == models.StatusReady
}

// Status returns the current lifecycle state.
func (m *Manager) Status() models.TransportStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Challenge returns the pending pairing payload, empty when none.
func (m *Manager) Challenge() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.challenge
}

// Send delivers through the session after the readiness gate.
func (m *Manager) Send(ctx context.Context, to, body string) error {
	return m.session.Send(ctx, to, body)
}

// TemplateSender is implemented by sessions that can deliver pre-approved
// template messages.
type TemplateSender interface {
	SendTemplate(ctx context.Context, to, name, language string) error
}

// SendTemplate delivers a template message when the session supports them.
func (m *Manager) SendTemplate(ctx context.Context, to, name, language string) error {
	ts, ok := m.session.(TemplateSender)
	if !ok {
		return errors.New("session does not support template messages")
	}
	return ts.SendTemplate(ctx, to, name, language)
}

// StatusChanged implements SessionEvents.
func (m *Manager) StatusChanged(status models.TransportStatus, detail string) {
	m.mu.Lock()
	m.status = status
	if status == models.StatusReady {
		m.challenge = ""
	}
	m.mu.Unlock()

	log.Info().Str("status", string(status)).Str("detail", detail).Msg("transport status changed")
	if m.notifier != nil {
		m.notifier.PublishStatus(status, detail)
		if status == models.StatusReady {
			m.notifier.PublishReady()
		}
	}
}

// ChallengeAvailable implements SessionEvents. The payload is forwarded
// verbatim to observers and kept for late joiners.
func (m *Manager) ChallengeAvailable(payload string) {
	m.setChallenge(payload)
	m.StatusChanged(models.StatusQRCode, "")
	if m.notifier != nil {
		m.notifier.PublishChallenge(payload)
	}
}

func (m *Manager) setChallenge(payload string) {
	m.mu.Lock()
	m.challenge = payload
	m.mu.Unlock()
}
