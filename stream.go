// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mellium.im/stanzastream/internal/queue"
	"mellium.im/stanzastream/stanza"
)

// A Stream is the layer of abstraction above an element transport.
// It serializes concurrent senders into a single writer, routes inbound
// stanzas to registered handlers, watches stream liveness, and optionally
// provides acknowledged delivery and resumption via stream management.
//
// A stream is independent of any one transport: it can be started on a
// transport, stopped, and later started again on a replacement transport.
// The caller has to make sure the transports are compatible, identity-wise.
type Stream struct {
	logger *zap.Logger

	active   *queue.Deque[*Token]
	incoming *queue.Deque[Element]

	mu              sync.Mutex
	running         bool
	cancel          context.CancelFunc
	done            chan struct{}
	transportErr    error
	sm              *smState
	pingInterval    time.Duration
	pingOppInterval time.Duration

	// Broker state, touched only by the run goroutine.
	pingDeadline      time.Time
	pingEvent         pingEvent
	pingOpportunistic bool
	pendingOut        *Token
	pendingIn         Element

	handlerMu   sync.Mutex
	iqResponses map[iqResponseKey]IQResponseHandlerFunc
	iqRequests  map[iqRequestKey]IQHandler
	messages    map[stanzaKey]MessageHandler
	presences   map[stanzaKey]PresenceHandler

	failureMu       sync.Mutex
	failureSerial   uint64
	failureHandlers map[uint64]func(error)
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger returns an option that sets the logger used by the stream.
// By default nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPingInterval returns an option that sets the quiet interval between a
// proof of liveness and the next probing cycle.
func WithPingInterval(d time.Duration) Option {
	return func(s *Stream) {
		s.pingInterval = d
	}
}

// WithPingOpportunisticInterval returns an option that sets the window during
// which a liveness probe waits to ride along with other outbound traffic.
func WithPingOpportunisticInterval(d time.Duration) Option {
	return func(s *Stream) {
		s.pingOppInterval = d
	}
}

// New allocates and returns a new Stream.
func New(opts ...Option) *Stream {
	done := make(chan struct{})
	close(done)
	s := &Stream{
		logger:          zap.NewNop(),
		active:          queue.New[*Token](),
		incoming:        queue.New[Element](),
		done:            done,
		pingInterval:    DefaultPingInterval,
		pingOppInterval: DefaultPingOpportunisticInterval,
		iqResponses:     make(map[iqResponseKey]IQResponseHandlerFunc),
		iqRequests:      make(map[iqRequestKey]IQHandler),
		messages:        make(map[stanzaKey]MessageHandler),
		presences:       make(map[stanzaKey]PresenceHandler),
		failureHandlers: make(map[uint64]func(error)),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("stanzastream")
	return s
}

// PingInterval returns the quiet interval between a proof of liveness and the
// next probing cycle.
func (s *Stream) PingInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingInterval
}

// SetPingInterval changes the quiet interval.
// The new value takes effect at the next scheduling decision.
func (s *Stream) SetPingInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingInterval = d
}

// PingOpportunisticInterval returns the window during which a liveness probe
// waits to ride along with other outbound traffic.
func (s *Stream) PingOpportunisticInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingOppInterval
}

// SetPingOpportunisticInterval changes the opportunistic window.
// The new value takes effect at the next scheduling decision.
func (s *Stream) SetPingOpportunisticInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingOppInterval = d
}

func (s *Stream) smEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm != nil
}

// Enqueue appends st to the active queue to be sent and returns a token
// tracking its delivery.
// It never blocks and is safe to call from any goroutine whether or not the
// stream is running; stanzas enqueued while the stream is stopped are sent
// when it next starts.
//
// If onState is not nil it is called synchronously with every state change of
// the token.
func (s *Stream) Enqueue(st stanza.Stanza, onState func(*Token, State)) *Token {
	tok := &Token{stanza: st, state: Active, onState: onState}
	s.active.Put(tok)
	s.logger.Debug("enqueued stanza", zap.String("stanza", fmt.Sprintf("%T", st)))
	return tok
}

// Recv injects an inbound element into the incoming queue.
// It is the function the stream registers with its transport, exposed so that
// elements received out-of-band (for example during session negotiation) can
// be fed through the normal dispatch path.
func (s *Stream) Recv(el Element) {
	s.incoming.Put(el)
}

// FlushIncoming drains the incoming queue through the normal dispatch path
// while the stream is stopped.
// It returns ErrRunning while the broker is running, since the broker is then
// the queue's only consumer.
func (s *Stream) FlushIncoming() error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		return ErrRunning
	}
	for {
		el, ok := s.incoming.TryPop()
		if !ok {
			return nil
		}
		if err := s.processIncoming(nil, el); err != nil {
			return err
		}
	}
}

// Running reports whether the broker is currently running.
func (s *Stream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done returns a channel that is closed when the current run terminates.
// If the stream is not running the returned channel is already closed.
func (s *Stream) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// OnFailure registers f to be called when a run terminates due to an error.
// The notification fires at most once per run and never on an ordinary stop.
// The returned function cancels the registration.
func (s *Stream) OnFailure(f func(error)) (cancel func()) {
	s.failureMu.Lock()
	serial := s.failureSerial
	s.failureSerial++
	s.failureHandlers[serial] = f
	s.failureMu.Unlock()
	return func() {
		s.failureMu.Lock()
		delete(s.failureHandlers, serial)
		s.failureMu.Unlock()
	}
}

func (s *Stream) fail(err error) {
	s.failureMu.Lock()
	handlers := make([]func(error), 0, len(s.failureHandlers))
	for _, f := range s.failureHandlers {
		handlers = append(handlers, f)
	}
	s.failureMu.Unlock()
	for _, f := range handlers {
		f(err)
	}
}

// transportFailed records a failure reported by the transport and stops the
// broker. The recorded error is re-raised through the failure notification
// once the run has cleaned up.
func (s *Stream) transportFailed(err error) {
	s.mu.Lock()
	if s.running && s.transportErr == nil {
		s.transportErr = err
	}
	s.mu.Unlock()
	s.Stop()
}

// Start starts or resumes the stream on the given transport.
// The broker runs on its own goroutine until it is stopped or fails; the
// transport is exclusively owned by that goroutine for the duration of the
// run.
// Start returns ErrRunning if the stream is already running and panics if t
// is nil.
func (s *Stream) Start(t Transport) error {
	if t == nil {
		panic("stanzastream: attempted to start stream with nil transport")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.transportErr = nil
	smEnabled := s.sm != nil
	s.mu.Unlock()

	t.Handle(iqName, s.Recv)
	t.Handle(messageName, s.Recv)
	t.Handle(presenceName, s.Recv)
	if smEnabled {
		s.logger.Debug("using stream management")
		t.Handle(smAckName, s.Recv)
		t.Handle(smRequestName, s.Recv)
	}
	cancelFailure := t.OnFailure(s.transportFailed)

	s.resetPing(smEnabled)

	go func() {
		err := s.run(ctx, t)

		t.Unhandle(presenceName)
		t.Unhandle(messageName)
		t.Unhandle(iqName)
		if smEnabled {
			t.Unhandle(smRequestName)
			t.Unhandle(smAckName)
		}
		cancelFailure()

		s.mu.Lock()
		if s.transportErr != nil {
			err = s.transportErr
			s.transportErr = nil
		}
		s.running = false
		s.cancel = nil
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("stream failed", zap.Error(err))
			s.fail(err)
		}
		close(done)
	}()

	s.logger.Debug("broker started")
	return nil
}

// Stop signals the broker to terminate.
// The broker takes a moment to wind down; wait on Done to observe the end of
// the run.
// Once Stop has been called the broker is guaranteed not to touch the current
// transport again after the run ends.
// Stopping a stream that is not running is a no-op.
func (s *Stream) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		s.logger.Debug("sending stop signal to broker")
		cancel()
	}
}

// run is the broker: the single goroutine that owns the transport for the
// duration of one run.
func (s *Stream) run(ctx context.Context, t Transport) error {
	defer s.rescue()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		wait := time.Until(s.pingDeadline)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.active.Ready():
			timer.Stop()
			if tok, ok := s.active.TryPop(); ok {
				s.processOutgoing(t, tok)
			}
		case <-s.incoming.Ready():
			timer.Stop()
			if el, ok := s.incoming.TryPop(); ok {
				s.pendingIn = el
				if err := s.processIncoming(t, el); err != nil {
					return err
				}
				s.pendingIn = nil
			}
		case <-timer.C:
		}

		if !time.Now().Before(s.pingDeadline) {
			if err := s.processPingEvent(t); err != nil {
				return err
			}
		}
	}
}

// rescue restores any element that was pulled from a queue but never fully
// processed, so that terminating the broker cannot silently lose enqueued
// work.
func (s *Stream) rescue() {
	s.logger.Debug("broker terminating, rescuing stanzas")
	if s.pendingOut != nil {
		s.active.PutFront(s.pendingOut)
		s.pendingOut = nil
	}
	if s.pendingIn != nil {
		s.incoming.PutFront(s.pendingIn)
		s.pendingIn = nil
	}
}

// processOutgoing sends tok and then opportunistically drains every other
// token currently in the active queue before allowing a liveness probe to
// ride along with the flush.
func (s *Stream) processOutgoing(t Transport, tok *Token) {
	for ok := true; ok; tok, ok = s.active.TryPop() {
		s.pendingOut = tok
		s.sendToken(t, tok)
		s.pendingOut = nil
	}
	s.sendPing(t)
}

// sendToken hands a single stanza to the transport, unless its token was
// aborted while it sat in the queue.
func (s *Stream) sendToken(t Transport, tok *Token) {
	smEnabled := s.smEnabled()
	if !tok.markSent(smEnabled) {
		s.logger.Debug("discarding aborted stanza")
		return
	}
	t.Send(tok.Stanza())
	if smEnabled {
		s.mu.Lock()
		if s.sm != nil {
			s.sm.unacked = append(s.sm.unacked, tok)
		}
		s.mu.Unlock()
	}
}

// processIncoming dispatches one inbound element.
// The transport is nil when the element is processed by FlushIncoming rather
// than by a running broker.
// The returned error, if any, is fatal to the run.
func (s *Stream) processIncoming(t Transport, el Element) error {
	s.mu.Lock()
	if s.sm != nil {
		s.sm.inboundCtr++
	}
	s.mu.Unlock()

	switch el := el.(type) {
	case stanza.IQ:
		s.processIncomingIQ(el)
	case stanza.Message:
		s.processIncomingMessage(el)
	case stanza.Presence:
		s.processIncomingPresence(el)
	case SMAck:
		s.logger.Debug("received SM ack", zap.Uint32("remote_ctr", el.Counter))
		s.mu.Lock()
		if s.sm == nil {
			s.mu.Unlock()
			s.logger.Warn("received SM ack, but stream management is not enabled")
			return nil
		}
		acked := s.smAckLocked(el.Counter)
		s.mu.Unlock()
		for _, tok := range acked {
			tok.setState(Acked)
		}
		s.ackProvesLiveness()
	case SMRequest:
		s.logger.Debug("received SM ack request")
		s.mu.Lock()
		if s.sm == nil {
			s.mu.Unlock()
			s.logger.Warn("received SM ack request, but stream management is not enabled")
			return nil
		}
		ctr := s.sm.inboundCtr
		s.mu.Unlock()
		if t == nil {
			s.logger.Warn("cannot answer SM ack request without a transport")
			return nil
		}
		t.Send(SMAck{Counter: ctr})
	default:
		return fmt.Errorf("%w: %T", ErrUnexpectedElement, el)
	}
	return nil
}
