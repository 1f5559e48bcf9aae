package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Transport is the outbound side of the messaging collaborator.
type Transport interface {
	Ready() bool
	Send(ctx context.Context, to, body string) error
}

// TemplateTransport is the optional capability of transports that can deliver
// pre-approved template messages, used to reach contacts outside the
// platform's reply window.
type TemplateTransport interface {
	SendTemplate(ctx context.Context, to, name, language string) error
}

// BatchResult is the outcome of one batch recipient.
type BatchResult struct {
	Phone string `json:"phone"`
	Err   error  `json:"-"`
}

// Success reports whether the send went through.
func (r BatchResult) Success() bool {
	return r.Err == nil
}

// Dispatcher hands outbound messages to the transport. It is stateless: the
// caller appends sent messages to the ledger after a successful send.
type Dispatcher struct {
	transport Transport
	// pace is the minimum interval between consecutive batch sends, to stay
	// under transport-side abuse detection.
	pace time.Duration
}

// DefaultPace is the contract value for batch pacing.
const DefaultPace = 2 * time.Second

func NewDispatcher(transport Transport, pace time.Duration) *Dispatcher {
	if pace <= 0 {
		pace = DefaultPace
	}
	return &Dispatcher{transport: transport, pace: pace}
}

// Send delivers one message, failing fast when the transport is not ready.
func (d *Dispatcher) Send(ctx context.Context, phone, text string) error {
	if !d.transport.Ready() {
		return ErrTransportNotReady
	}
	if err := d.transport.Send(ctx, phone, text); err != nil {
		return &SendError{Phone: phone, Cause: err}
	}
	return nil
}

// SendTemplate delivers one pre-approved template message, failing fast when
// the transport is not ready or cannot send templates at all.
func (d *Dispatcher) SendTemplate(ctx context.Context, phone, name, language string) error {
	if !d.transport.Ready() {
		return ErrTransportNotReady
	}
	tt, ok := d.transport.(TemplateTransport)
	if !ok {
		return ErrTemplatesUnsupported
	}
	if err := tt.SendTemplate(ctx, phone, name, language); err != nil {
		return &SendError{Phone: phone, Cause: err}
	}
	return nil
}

// SendBatch sends to every phone, strictly one at a time in input order, with
// the pacing interval between consecutive sends. A failed recipient never
// aborts the batch; the result slice always has one entry per input phone.
// Context cancellation fails the remaining recipients without skipping their
// result entries.
func (d *Dispatcher) SendBatch(ctx context.Context, phones []string, text string) []BatchResult {
	return d.batch(ctx, phones, func(ctx context.Context, phone string) error {
		return d.Send(ctx, phone, text)
	})
}

// SendTemplateBatch is SendBatch for template messages, under the same pacing
// and never-abort contract.
func (d *Dispatcher) SendTemplateBatch(ctx context.Context, phones []string, name, language string) []BatchResult {
	return d.batch(ctx, phones, func(ctx context.Context, phone string) error {
		return d.SendTemplate(ctx, phone, name, language)
	})
}

func (d *Dispatcher) batch(ctx context.Context, phones []string, send func(context.Context, string) error) []BatchResult {
	results := make([]BatchResult, 0, len(phones))
	for i, phone := range phones {
		if i > 0 {
			if err := d.wait(ctx); err != nil {
				results = append(results, BatchResult{Phone: phone, Err: &SendError{Phone: phone, Cause: err}})
				continue
			}
		}

		err := send(ctx, phone)
		if err != nil {
			log.Warn().Str("phone", phone).Err(err).Msg("batch send failed")
		}
		results = append(results, BatchResult{Phone: phone, Err: err})
	}
	return results
}

func (d *Dispatcher) wait(ctx context.Context) error {
	timer := time.NewTimer(d.pace)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
