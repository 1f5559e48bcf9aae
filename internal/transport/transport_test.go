package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salesbot-gateway/internal/models"
)

type fakeSession struct {
	mu        sync.Mutex
	initCalls int
	closed    int
	initErr   error
	challenge string
	sent      []string
}

func (f *fakeSession) Init(_ context.Context, events SessionEvents) error {
	f.mu.Lock()
	f.initCalls++
	err := f.initErr
	challenge := f.challenge
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if challenge != "" {
		events.ChallengeAvailable(challenge)
		return nil
	}
	events.StatusChanged(models.StatusAuthed, "")
	events.StatusChanged(models.StatusReady, "")
	return nil
}

func (f *fakeSession) Send(_ context.Context, to, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeSession) SendTemplate(_ context.Context, to, name, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+"/"+name+"/"+language)
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	statuses   []models.TransportStatus
	challenges []string
	readies    int
}

func (n *fakeNotifier) PublishStatus(status models.TransportStatus, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

func (n *fakeNotifier) PublishChallenge(payload string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.challenges = append(n.challenges, payload)
}

func (n *fakeNotifier) PublishReady() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.readies++
}

func TestManagerStartToReady(t *testing.T) {
	session := &fakeSession{}
	notifier := &fakeNotifier{}
	m := NewManager(session, notifier)

	require.False(t, m.Ready())
	m.Start(context.Background())

	require.True(t, m.Ready())
	require.Equal(t, models.StatusReady, m.Status())
	require.Equal(t, []models.TransportStatus{
		models.StatusInitializing,
		models.StatusAuthed,
		models.StatusReady,
	}, notifier.statuses)
	require.Equal(t, 1, notifier.readies)
}

func TestManagerInitFailureReflectedInStatus(t *testing.T) {
	session := &fakeSession{initErr: errors.New("bad credentials")}
	m := NewManager(session, &fakeNotifier{})

	m.Start(context.Background())
	require.False(t, m.Ready())
	require.Equal(t, models.StatusError, m.Status())
}

func TestManagerChallengeKeptUntilReady(t *testing.T) {
	session := &fakeSession{challenge: "qr-payload"}
	notifier := &fakeNotifier{}
	m := NewManager(session, notifier)

	m.Start(context.Background())
	require.Equal(t, models.StatusQRCode, m.Status())
	require.Equal(t, "qr-payload", m.Challenge())
	require.Equal(t, []string{"qr-payload"}, notifier.challenges)
	require.False(t, m.Ready())

	// Pairing completes.
	m.StatusChanged(models.StatusReady, "")
	require.Empty(t, m.Challenge(), "challenge cleared once ready")
}

func TestManagerRestart(t *testing.T) {
	session := &fakeSession{}
	m := NewManager(session, &fakeNotifier{})
	m.Start(context.Background())
	require.True(t, m.Ready())

	m.Restart(context.Background())
	// Immediately after the call the transport refuses sends.
	require.False(t, m.Ready())
	require.Equal(t, models.StatusRestarting, m.Status())

	require.Eventually(t, m.Ready, 5*time.Second, 50*time.Millisecond)
	session.mu.Lock()
	defer session.mu.Unlock()
	require.Equal(t, 1, session.closed)
	require.Equal(t, 2, session.initCalls)
}

func TestManagerSendDelegates(t *testing.T) {
	session := &fakeSession{}
	m := NewManager(session, nil)
	m.Start(context.Background())

	require.NoError(t, m.Send(context.Background(), "p1", "oi"))
	require.Equal(t, []string{"p1"}, session.sent)
}

func TestManagerSendTemplateDelegates(t *testing.T) {
	session := &fakeSession{}
	m := NewManager(session, nil)
	m.Start(context.Background())

	require.NoError(t, m.SendTemplate(context.Background(), "p1", "reengage", "pt_BR"))
	require.Equal(t, []string{"p1/reengage/pt_BR"}, session.sent)
}

type textOnlySession struct{}

func (textOnlySession) Init(_ context.Context, events SessionEvents) error {
	events.StatusChanged(models.StatusReady, "")
	return nil
}

func (textOnlySession) Send(context.Context, string, string) error { return nil }

func (textOnlySession) Close() error { return nil }

func TestManagerSendTemplateUnsupportedSession(t *testing.T) {
	m := NewManager(textOnlySession{}, nil)
	m.Start(context.Background())

	err := m.SendTemplate(context.Background(), "p1", "reengage", "pt_BR")
	require.Error(t, err)
}
