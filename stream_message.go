// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"go.uber.org/zap"
	"mellium.im/xmpp/jid"

	"mellium.im/stanzastream/stanza"
)

// MessageHandler responds to a message stanza.
type MessageHandler interface {
	HandleMessage(msg stanza.Message)
}

// The MessageHandlerFunc type is an adapter to allow the use of ordinary
// functions as message handlers.
// If f is a function with the appropriate signature, MessageHandlerFunc(f) is
// a MessageHandler that calls f.
type MessageHandlerFunc func(msg stanza.Message)

// HandleMessage calls f(msg).
func (f MessageHandlerFunc) HandleMessage(msg stanza.Message) {
	f(msg)
}

// stanzaKey is a message or presence dispatch key.
// The zero value of either field acts as a wildcard when the key is looked
// up; a registration with a zero field matches stanzas of any type or from
// any sender respectively.
type stanzaKey struct {
	typ  string
	from string
}

// HandleMessage registers h for inbound messages of the given type from the
// given sender.
// The zero MessageType matches messages of any type and the zero JID matches
// messages from any sender; lookup prefers the most specific registration,
// trying (type, from), then (type, any sender), then (any type, any sender).
// Registering again with the same type and sender replaces the previous
// handler.
func (s *Stream) HandleMessage(typ stanza.MessageType, from jid.JID, h MessageHandler) {
	key := stanzaKey{typ: string(typ), from: from.String()}
	s.handlerMu.Lock()
	s.messages[key] = h
	s.handlerMu.Unlock()
	s.logger.Debug("message handler registered",
		zap.String("type", key.typ), zap.String("from", key.from))
}

// HandleMessageFunc registers f for inbound messages of the given type from
// the given sender.
func (s *Stream) HandleMessageFunc(typ stanza.MessageType, from jid.JID, f MessageHandlerFunc) {
	s.HandleMessage(typ, from, f)
}

// UnhandleMessage removes the handler registered for the given type and
// sender, if any.
func (s *Stream) UnhandleMessage(typ stanza.MessageType, from jid.JID) {
	s.handlerMu.Lock()
	delete(s.messages, stanzaKey{typ: string(typ), from: from.String()})
	s.handlerMu.Unlock()
}

// processIncomingMessage routes one inbound message to the most specific
// registered handler.
// Unmatched messages are dropped.
func (s *Stream) processIncomingMessage(msg stanza.Message) {
	keys := [...]stanzaKey{
		{typ: string(msg.Type), from: msg.From.String()},
		{typ: string(msg.Type)},
		{},
	}
	s.handlerMu.Lock()
	var h MessageHandler
	for _, key := range keys {
		if found, ok := s.messages[key]; ok {
			h = found
			break
		}
	}
	s.handlerMu.Unlock()
	if h == nil {
		s.logger.Warn("unsolicited message dropped",
			zap.String("from", msg.From.String()),
			zap.String("type", string(msg.Type)),
			zap.String("id", msg.ID))
		return
	}
	h.HandleMessage(msg)
}
