// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"context"
	"errors"
	"reflect"

	"go.uber.org/zap"
	"mellium.im/xmpp/jid"

	"mellium.im/stanzastream/stanza"
)

// IQHandler responds to an IQ request.
// The returned IQ becomes the reply and is sent through the normal outbound
// path; the handler must have produced the appropriate reply payload itself,
// normally by building on IQ.Result.
//
// Returning an error converts the request into an error reply instead: a
// stanza.Error passes through with its condition intact, any other error
// becomes a generic undefined-condition error of type cancel.
type IQHandler interface {
	HandleIQ(ctx context.Context, iq stanza.IQ) (stanza.IQ, error)
}

// The IQHandlerFunc type is an adapter to allow the use of ordinary functions
// as IQ handlers.
// If f is a function with the appropriate signature, IQHandlerFunc(f) is an
// IQHandler that calls f.
type IQHandlerFunc func(ctx context.Context, iq stanza.IQ) (stanza.IQ, error)

// HandleIQ calls f(ctx, iq).
func (f IQHandlerFunc) HandleIQ(ctx context.Context, iq stanza.IQ) (stanza.IQ, error) {
	return f(ctx, iq)
}

// IQResponseHandlerFunc is called with the reply to an IQ request.
// If the reply was an error IQ, err holds its error payload and the IQ is
// passed along for context; otherwise err is nil.
type IQResponseHandlerFunc func(iq stanza.IQ, err error)

// IQResponse is the outcome of an IQ request delivered through a response
// channel.
type IQResponse struct {
	IQ  stanza.IQ
	Err error
}

type iqResponseKey struct {
	from string
	id   string
}

type iqRequestKey struct {
	typ     stanza.IQType
	payload reflect.Type
}

// HandleIQResponse registers f to be called when an IQ of type result or
// error is received from the given sender with the given id.
// The registration is consumed by the first matching reply: f is called at
// most once.
// Error replies are converted before delivery, see IQResponseHandlerFunc.
func (s *Stream) HandleIQResponse(from jid.JID, id string, f IQResponseHandlerFunc) {
	key := iqResponseKey{from: from.String(), id: id}
	s.handlerMu.Lock()
	s.iqResponses[key] = f
	s.handlerMu.Unlock()
	s.logger.Debug("iq response handler registered",
		zap.String("from", key.from), zap.String("id", id))
}

// IQResponseChan is like HandleIQResponse except that the reply is delivered
// on the returned channel.
// The channel is buffered; the reply is never dropped if the receiver is not
// ready.
func (s *Stream) IQResponseChan(from jid.JID, id string) <-chan IQResponse {
	ch := make(chan IQResponse, 1)
	s.HandleIQResponse(from, id, func(iq stanza.IQ, err error) {
		ch <- IQResponse{IQ: iq, Err: err}
	})
	return ch
}

func (s *Stream) removeIQResponse(from jid.JID, id string) {
	s.handlerMu.Lock()
	delete(s.iqResponses, iqResponseKey{from: from.String(), id: id})
	s.handlerMu.Unlock()
}

// HandleIQRequest registers h for IQ requests of the given type carrying a
// payload of the same dynamic type as payload.
// The registration persists until UnhandleIQRequest is called for the same
// key.
// Matching requests spawn h on its own goroutine; the broker never waits for
// it.
func (s *Stream) HandleIQRequest(typ stanza.IQType, payload stanza.Payload, h IQHandler) {
	key := iqRequestKey{typ: typ, payload: reflect.TypeOf(payload)}
	s.handlerMu.Lock()
	s.iqRequests[key] = h
	s.handlerMu.Unlock()
	s.logger.Debug("iq request handler registered",
		zap.String("type", string(typ)), zap.Any("payload", key.payload))
}

// HandleIQRequestFunc registers f for IQ requests of the given type carrying
// a payload of the same dynamic type as payload.
func (s *Stream) HandleIQRequestFunc(typ stanza.IQType, payload stanza.Payload, f IQHandlerFunc) {
	s.HandleIQRequest(typ, payload, f)
}

// UnhandleIQRequest removes the handler registered for the given type and
// payload type, if any.
func (s *Stream) UnhandleIQRequest(typ stanza.IQType, payload stanza.Payload) {
	s.handlerMu.Lock()
	delete(s.iqRequests, iqRequestKey{typ: typ, payload: reflect.TypeOf(payload)})
	s.handlerMu.Unlock()
}

// SendIQ enqueues an IQ request and blocks until the matching reply arrives
// or ctx is done.
// If the IQ has no ID one is assigned before sending.
// An error reply is converted to its stanza.Error and returned as the error;
// the reply stanza is returned alongside it for context.
//
// A context without a deadline makes SendIQ wait forever; this is a
// deliberate opt-in, because the deadness of a stream that is not managed may
// only be detected after the request was sent.
// Callers should normally attach a timeout here or at a higher layer.
//
// If the IQ is itself a response (type result or error), it is enqueued
// without waiting and the zero IQ is returned.
func (s *Stream) SendIQ(ctx context.Context, iq stanza.IQ) (stanza.IQ, error) {
	if iq.ID == "" {
		iq.ID = stanza.NewID()
	}
	if iq.Response() {
		s.Enqueue(iq, nil)
		return stanza.IQ{}, nil
	}

	ch := s.IQResponseChan(iq.To, iq.ID)
	s.Enqueue(iq, nil)
	select {
	case <-ctx.Done():
		s.removeIQResponse(iq.To, iq.ID)
		return stanza.IQ{}, ctx.Err()
	case resp := <-ch:
		return resp.IQ, resp.Err
	}
}

// processIncomingIQ routes one inbound IQ: responses are matched against the
// one-shot response table, requests spawn the registered handler or are
// answered with a feature-not-implemented error.
func (s *Stream) processIncomingIQ(iq stanza.IQ) {
	if iq.Response() {
		key := iqResponseKey{from: iq.From.String(), id: iq.ID}
		s.handlerMu.Lock()
		f, ok := s.iqResponses[key]
		if !ok {
			// Registrations made without a sender match replies regardless of
			// who stamped the from attribute.
			key = iqResponseKey{id: iq.ID}
			f, ok = s.iqResponses[key]
		}
		if ok {
			delete(s.iqResponses, key)
		}
		s.handlerMu.Unlock()
		if !ok {
			s.logger.Warn("unexpected IQ response",
				zap.String("from", key.from), zap.String("id", iq.ID))
			return
		}

		var err error
		if iq.Type == stanza.ErrorIQ {
			if iq.Error != nil {
				err = *iq.Error
			} else {
				err = stanza.Error{Type: stanza.Cancel, Condition: stanza.UndefinedCondition}
			}
		}
		f(iq, err)
		return
	}

	key := iqRequestKey{typ: iq.Type, payload: reflect.TypeOf(iq.Payload)}
	s.handlerMu.Lock()
	h, ok := s.iqRequests[key]
	s.handlerMu.Unlock()
	if !ok {
		s.logger.Warn("unhandleable IQ request",
			zap.String("from", iq.From.String()),
			zap.String("id", iq.ID),
			zap.String("type", string(iq.Type)),
			zap.Any("payload", iq.Payload))
		s.Enqueue(iq.Failed(stanza.Error{
			Type:      stanza.Cancel,
			Condition: stanza.FeatureNotImplemented,
		}), nil)
		return
	}

	s.logger.Debug("starting task to handle IQ request", zap.String("id", iq.ID))
	go s.handleIQRequest(h, iq)
}

// handleIQRequest runs a single IQ request handler invocation and enqueues
// exactly one reply, converting failures into error replies.
// It runs on its own goroutine and never reports back to the broker.
func (s *Stream) handleIQRequest(h IQHandler, iq stanza.IQ) {
	reply, err := h.HandleIQ(context.Background(), iq)
	if err != nil {
		var stanzaErr stanza.Error
		if !errors.As(err, &stanzaErr) {
			stanzaErr = stanza.Error{
				Type:      stanza.Cancel,
				Condition: stanza.UndefinedCondition,
			}
		}
		reply = iq.Failed(stanzaErr)
	}
	s.Enqueue(reply, nil)
}
