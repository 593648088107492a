// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"encoding/xml"
	"strconv"

	"go.uber.org/zap"
	"mellium.im/xmlstream"
)

// NSSM is the namespace of the stream management control elements (XEP-0198).
const NSSM = "urn:xmpp:sm:3"

// SMAck is a stream management acknowledgement.
// Counter is the number of stanzas handled by the sender of the
// acknowledgement.
type SMAck struct {
	Counter uint32
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (a SMAck) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: smAckName,
		Attr: []xml.Attr{{
			Name:  xml.Name{Local: "h"},
			Value: strconv.FormatUint(uint64(a.Counter), 10),
		}},
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (a SMAck) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, a.TokenReader())
}

// SMRequest asks the peer to acknowledge the stanzas it has handled so far.
type SMRequest struct{}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (SMRequest) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{Name: smRequestName})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (r SMRequest) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, r.TokenReader())
}

// smState is the complete state of one stream management session.
// It exists only while stream management is enabled; a Stream either holds no
// smState at all or a fully initialized one.
type smState struct {
	// outboundBase is the last sequence value acknowledged by the remote.
	// It only ever increases.
	outboundBase uint32

	// inboundCtr counts the elements received on this session and is used to
	// answer the remote's acknowledgement requests.
	inboundCtr uint32

	// unacked holds the tokens handed to the transport but not yet covered by
	// the remote's counter, in send order.
	unacked []*Token
}

// ack removes the prefix of the unacked list covered by the remote counter
// and returns it.
// It reports false without changing anything when the remote counter is
// behind the current base (a counter regression).
func (sm *smState) ack(remote uint32) (acked []*Token, ok bool) {
	n := int64(remote) - int64(sm.outboundBase)
	if n < 0 {
		return nil, false
	}
	if n > int64(len(sm.unacked)) {
		n = int64(len(sm.unacked))
	}
	acked = sm.unacked[:n:n]
	sm.unacked = sm.unacked[n:]
	sm.outboundBase = remote
	return acked, true
}

// StartSM enables stream management on the stream, initializing a fresh
// session with zeroed counters and an empty unacknowledged list.
// It may only be called while the stream is not running.
func (s *Stream) StartSM() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	s.logger.Info("starting stream management")
	s.sm = &smState{}
	return nil
}

// ResumeSM resumes a previous stream management session using the remote
// counter reported by the peer during resumption.
// Stanzas not covered by remote are requeued at the front of the active
// queue, in their original send order, so they are the first stanzas resent
// when the stream is started on a new transport.
// It may only be called while the stream is not running and while stream
// management is enabled.
func (s *Stream) ResumeSM(remote uint32) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	if s.sm == nil {
		s.mu.Unlock()
		return ErrSMDisabled
	}
	s.logger.Info("resuming stream management session", zap.Uint32("remote_ctr", remote))
	acked, ok := s.sm.ack(remote)
	if !ok {
		s.logger.Warn("remote stanza counter went backwards on resumption",
			zap.Uint32("outbound_base", s.sm.outboundBase),
			zap.Uint32("remote_ctr", remote))
	}
	unacked := s.sm.unacked
	s.sm.unacked = nil
	s.mu.Unlock()

	for _, tok := range acked {
		tok.setState(Acked)
	}
	for i := len(unacked) - 1; i >= 0; i-- {
		s.active.PutFront(unacked[i])
	}
	return nil
}

// StopSM disables stream management on the stream and discards its counters.
// Every stanza that was sent but not acknowledged moves to SentWithoutSM.
// It may only be called while the stream is not running and while stream
// management is enabled.
func (s *Stream) StopSM() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	if s.sm == nil {
		s.mu.Unlock()
		return ErrSMDisabled
	}
	s.logger.Info("stopping stream management")
	unacked := s.sm.unacked
	s.sm = nil
	s.mu.Unlock()

	for _, tok := range unacked {
		tok.setState(SentWithoutSM)
	}
	return nil
}

// SMAck processes an acknowledgement counter received from the remote while
// the stream is stopped, for example one carried by a failed resumption
// response.
// Acknowledged tokens move to Acked and the outbound base advances; a remote
// counter behind the current base is logged and ignored.
// While the stream is running acknowledgements are processed by the broker
// and SMAck returns ErrRunning.
func (s *Stream) SMAck(remote uint32) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	if s.sm == nil {
		s.mu.Unlock()
		return ErrSMDisabled
	}
	acked := s.smAckLocked(remote)
	s.mu.Unlock()

	for _, tok := range acked {
		tok.setState(Acked)
	}
	return nil
}

// smAckLocked advances the outbound base past remote and returns the newly
// acknowledged tokens. The caller must hold s.mu and transition the returned
// tokens to Acked after releasing it.
func (s *Stream) smAckLocked(remote uint32) []*Token {
	acked, ok := s.sm.ack(remote)
	if !ok {
		s.logger.Warn("remote stanza counter went backwards",
			zap.Uint32("outbound_base", s.sm.outboundBase),
			zap.Uint32("remote_ctr", remote))
		return nil
	}
	if len(acked) > 0 {
		s.logger.Debug("stanzas acked by remote", zap.Int("count", len(acked)))
	}
	return acked
}

// SMEnabled reports whether stream management is currently enabled on the
// stream.
func (s *Stream) SMEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm != nil
}

// SMOutboundBase returns the last sequence value acknowledged by the remote.
// It returns ErrSMDisabled while stream management is not enabled.
func (s *Stream) SMOutboundBase() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sm == nil {
		return 0, ErrSMDisabled
	}
	return s.sm.outboundBase, nil
}

// SMInboundCtr returns the current value of the inbound element counter.
// It returns ErrSMDisabled while stream management is not enabled.
func (s *Stream) SMInboundCtr() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sm == nil {
		return 0, ErrSMDisabled
	}
	return s.sm.inboundCtr, nil
}

// SMUnackedList returns a snapshot copy of the tokens that have been sent but
// not yet acknowledged by the remote, in send order.
// It returns ErrSMDisabled while stream management is not enabled.
func (s *Stream) SMUnackedList() ([]*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sm == nil {
		return nil, ErrSMDisabled
	}
	unacked := make([]*Token, len(s.sm.unacked))
	copy(unacked, s.sm.unacked)
	return unacked, nil
}
