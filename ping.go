// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"time"

	"go.uber.org/zap"
	"mellium.im/xmpp/jid"

	"mellium.im/stanzastream/ping"
	"mellium.im/stanzastream/stanza"
)

// Default values for the liveness prober.
//
// DefaultPingInterval is the quiet time between the last proof of liveness
// and the start of the next probing cycle.
// DefaultPingOpportunisticInterval is the window after that quiet time during
// which a probe rides along with traffic that is being sent anyway; only when
// the window closes without any outbound traffic is a probe sent on its own.
const (
	DefaultPingInterval              = 15 * time.Second
	DefaultPingOpportunisticInterval = 15 * time.Second
)

// pingEvent is the kind of the next scheduled liveness event.
type pingEvent uint8

const (
	// pingSendOpportunistic means the peer recently proved liveness; when the
	// deadline elapses the opportunistic window opens.
	pingSendOpportunistic pingEvent = iota

	// pingSendNow means the opportunistic window elapsed without piggyback
	// traffic; when the deadline elapses a probe is forced.
	pingSendNow

	// pingTimeout means a probe is in flight; when the deadline elapses without
	// a reply the transport is declared dead.
	pingTimeout
)

// resetPing arms the prober for a fresh run.
// Called while the broker is not running, before the run goroutine starts.
func (s *Stream) resetPing(smEnabled bool) {
	s.pingDeadline = time.Now().Add(s.PingInterval())
	s.pingEvent = pingSendOpportunistic
	// With stream management an ack request is cheap, so it is always worth
	// piggybacking one; without it the flag is armed by the scheduler.
	s.pingOpportunistic = smEnabled
}

// processPingEvent drives the prober state machine when its deadline has
// elapsed. The returned error, if any, is fatal to the run.
func (s *Stream) processPingEvent(t Transport) error {
	switch s.pingEvent {
	case pingSendOpportunistic:
		s.logger.Debug("ping: opportunistic interval started")
		s.pingDeadline = s.pingDeadline.Add(s.PingOpportunisticInterval())
		s.pingEvent = pingSendNow
		if !s.smEnabled() {
			s.pingOpportunistic = true
		}
	case pingSendNow:
		s.logger.Debug("ping: requiring ping to be sent now")
		s.sendPing(t)
	case pingTimeout:
		s.logger.Warn("ping: response timeout tripped")
		return ErrPingTimeout
	}
	return nil
}

// sendPing opportunistically attaches a liveness probe to the current
// outbound flush.
//
// With stream management enabled an acknowledgement request is always sent.
// Otherwise a XEP-0199 ping is sent only while the opportunistic flag is
// armed, and a one-shot response listener feeds the reply back into the
// prober as proof of liveness.
// After any probe is sent the reply must arrive within PingInterval or the
// run fails.
func (s *Stream) sendPing(t Transport) {
	if !s.pingOpportunistic {
		return
	}

	if s.smEnabled() {
		s.logger.Debug("sending SM ack request")
		t.Send(SMRequest{})
	} else {
		iq := stanza.IQ{
			ID:      stanza.NewID(),
			Type:    stanza.GetIQ,
			Payload: ping.Ping{},
		}
		s.HandleIQResponse(jid.JID{}, iq.ID, s.recvPong)
		s.logger.Debug("sending liveness ping", zap.String("id", iq.ID))
		t.Send(iq)
		s.pingOpportunistic = false
	}

	if s.pingEvent != pingTimeout {
		s.logger.Debug("configuring ping timeout")
		s.pingDeadline = time.Now().Add(s.PingInterval())
		s.pingEvent = pingTimeout
	}
}

// recvPong processes a reply to a XEP-0199 liveness probe.
// Any reply proves liveness, including an error reply.
// Response listeners are invoked by the broker, so the prober state is safe
// to touch here.
func (s *Stream) recvPong(_ stanza.IQ, _ error) {
	if !s.Running() {
		return
	}
	if s.pingEvent != pingTimeout {
		return
	}
	s.pingDeadline = time.Now().Add(s.PingInterval())
	s.pingEvent = pingSendOpportunistic
}

// ackProvesLiveness downgrades a pending ping timeout after the remote
// acknowledged stanzas, which proves it is still responsive.
func (s *Stream) ackProvesLiveness() {
	if s.pingEvent != pingTimeout {
		return
	}
	s.logger.Debug("resetting ping timeout")
	s.pingDeadline = time.Now().Add(s.PingInterval())
	s.pingEvent = pingSendOpportunistic
}
