package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu        sync.Mutex
	ready     bool
	sent      []string
	templates []string
	failFor   map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{ready: true, failFor: make(map[string]error)}
}

func (f *fakeTransport) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeTransport) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[to]; ok {
		return err
	}
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeTransport) SendTemplate(_ context.Context, to, name, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[to]; ok {
		return err
	}
	f.templates = append(f.templates, to+"/"+name+"/"+language)
	return nil
}

func (f *fakeTransport) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) sentTemplates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.templates))
	copy(out, f.templates)
	return out
}

func TestSendFailsFastWhenNotReady(t *testing.T) {
	ft := newFakeTransport()
	ft.ready = false
	d := NewDispatcher(ft, time.Millisecond)

	err := d.Send(context.Background(), "p1", "oi")
	require.ErrorIs(t, err, ErrTransportNotReady)
	require.Empty(t, ft.sentTo(), "no delivery attempt while not ready")
}

func TestSendWrapsTransportError(t *testing.T) {
	ft := newFakeTransport()
	cause := errors.New("boom")
	ft.failFor["p1"] = cause
	d := NewDispatcher(ft, time.Millisecond)

	err := d.Send(context.Background(), "p1", "oi")
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	require.Equal(t, "p1", sendErr.Phone)
	require.ErrorIs(t, err, cause)
}

func TestSendBatchContinuesPastFailures(t *testing.T) {
	ft := newFakeTransport()
	ft.failFor["b"] = errors.New("rejected")
	d := NewDispatcher(ft, time.Millisecond)

	results := d.SendBatch(context.Background(), []string{"a", "b", "c"}, "follow-up")
	require.Len(t, results, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{results[0].Phone, results[1].Phone, results[2].Phone})
	require.True(t, results[0].Success())
	require.False(t, results[1].Success())
	require.True(t, results[2].Success())
	require.Equal(t, []string{"a", "c"}, ft.sentTo())
}

func TestSendBatchPacesConsecutiveSends(t *testing.T) {
	ft := newFakeTransport()
	pace := 30 * time.Millisecond
	d := NewDispatcher(ft, pace)

	start := time.Now()
	d.SendBatch(context.Background(), []string{"a", "b", "c"}, "oi")
	// Two gaps between three sends.
	require.GreaterOrEqual(t, time.Since(start), 2*pace)
}

func TestSendBatchCancellation(t *testing.T) {
	ft := newFakeTransport()
	d := NewDispatcher(ft, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	results := d.SendBatch(ctx, []string{"a", "b", "c"}, "oi")
	require.Len(t, results, 3, "cancellation must still yield one result per phone")
	require.True(t, results[0].Success())
	require.False(t, results[1].Success())
	require.False(t, results[2].Success())
	require.Equal(t, []string{"a"}, ft.sentTo())
}

func TestSendTemplateBatch(t *testing.T) {
	ft := newFakeTransport()
	ft.failFor["b"] = errors.New("rejected")
	d := NewDispatcher(ft, time.Millisecond)

	results := d.SendTemplateBatch(context.Background(), []string{"a", "b", "c"}, "reengage", "pt_BR")
	require.Len(t, results, 3)
	require.True(t, results[0].Success())
	require.False(t, results[1].Success())
	require.True(t, results[2].Success())
	require.Equal(t, []string{"a/reengage/pt_BR", "c/reengage/pt_BR"}, ft.sentTemplates())
	require.Empty(t, ft.sentTo(), "template batches never fall back to text sends")
}

type textOnlyTransport struct{}

func (textOnlyTransport) Ready() bool { return true }

func (textOnlyTransport) Send(context.Context, string, string) error { return nil }

func TestSendTemplateUnsupportedTransport(t *testing.T) {
	d := NewDispatcher(textOnlyTransport{}, time.Millisecond)

	err := d.SendTemplate(context.Background(), "p1", "reengage", "pt_BR")
	require.ErrorIs(t, err, ErrTemplatesUnsupported)
}

func TestDefaultPaceApplied(t *testing.T) {
	d := NewDispatcher(newFakeTransport(), 0)
	require.Equal(t, DefaultPace, d.pace)
}
