// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"go.uber.org/zap"
	"mellium.im/xmpp/jid"

	"mellium.im/stanzastream/stanza"
)

// PresenceHandler responds to a presence stanza.
type PresenceHandler interface {
	HandlePresence(p stanza.Presence)
}

// The PresenceHandlerFunc type is an adapter to allow the use of ordinary
// functions as presence handlers.
// If f is a function with the appropriate signature, PresenceHandlerFunc(f)
// is a PresenceHandler that calls f.
type PresenceHandlerFunc func(p stanza.Presence)

// HandlePresence calls f(p).
func (f PresenceHandlerFunc) HandlePresence(p stanza.Presence) {
	f(p)
}

// HandlePresence registers h for inbound presence of the given type from the
// given sender.
// Unlike messages the presence type is never a wildcard: AvailablePresence is
// the empty string on the wire and a meaningful type of its own.
// The zero JID matches presence from any sender; lookup prefers the
// registration for the exact sender over the any-sender one.
// Registering again with the same type and sender replaces the previous
// handler.
func (s *Stream) HandlePresence(typ stanza.PresenceType, from jid.JID, h PresenceHandler) {
	key := stanzaKey{typ: string(typ), from: from.String()}
	s.handlerMu.Lock()
	s.presences[key] = h
	s.handlerMu.Unlock()
	s.logger.Debug("presence handler registered",
		zap.String("type", key.typ), zap.String("from", key.from))
}

// HandlePresenceFunc registers f for inbound presence of the given type from
// the given sender.
func (s *Stream) HandlePresenceFunc(typ stanza.PresenceType, from jid.JID, f PresenceHandlerFunc) {
	s.HandlePresence(typ, from, f)
}

// UnhandlePresence removes the handler registered for the given type and
// sender, if any.
func (s *Stream) UnhandlePresence(typ stanza.PresenceType, from jid.JID) {
	s.handlerMu.Lock()
	delete(s.presences, stanzaKey{typ: string(typ), from: from.String()})
	s.handlerMu.Unlock()
}

// processIncomingPresence routes one inbound presence to the most specific
// registered handler.
// Unmatched presence is dropped.
func (s *Stream) processIncomingPresence(p stanza.Presence) {
	keys := [...]stanzaKey{
		{typ: string(p.Type), from: p.From.String()},
		{typ: string(p.Type)},
	}
	s.handlerMu.Lock()
	var h PresenceHandler
	for _, key := range keys {
		if found, ok := s.presences[key]; ok {
			h = found
			break
		}
	}
	s.handlerMu.Unlock()
	if h == nil {
		s.logger.Warn("unsolicited presence dropped",
			zap.String("from", p.From.String()),
			zap.String("type", string(p.Type)))
		return
	}
	h.HandlePresence(p)
}
