// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"mellium.im/xmpp/jid"

	"mellium.im/stanzastream"
	"mellium.im/stanzastream/internal/streamtest"
	"mellium.im/stanzastream/stanza"
)

func waitState(t *testing.T, tok *stanzastream.Token, want stanzastream.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return tok.State() == want
	}, time.Second, 5*time.Millisecond, "token did not reach state %s", want)
}

func TestSMAckPrefix(t *testing.T) {
	s := stanzastream.New()
	require.NoError(t, s.StartSM())
	require.True(t, s.SMEnabled())

	tr := streamtest.NewTransport()
	juliet := jid.MustParse("juliet@example.net")

	var toks []*stanzastream.Token
	for _, id := range []string{"1", "2", "3"} {
		toks = append(toks, s.Enqueue(stanza.Message{ID: id, To: juliet, Type: stanza.ChatMessage}, nil))
	}

	require.NoError(t, s.Start(tr))
	defer func() {
		s.Stop()
		<-s.Done()
	}()
	require.True(t, tr.Handling(smAckName))
	require.True(t, tr.Handling(smReqName))

	for range toks {
		nextStanza(t, tr)
	}
	for _, tok := range toks {
		require.Equal(t, stanzastream.Sent, tok.State())
	}
	require.Eventually(t, func() bool {
		unacked, err := s.SMUnackedList()
		return err == nil && len(unacked) == 3
	}, time.Second, 5*time.Millisecond)

	// The remote acknowledges the first two stanzas.
	tr.Deliver(stanzastream.SMAck{Counter: 2})
	waitState(t, toks[0], stanzastream.Acked)
	waitState(t, toks[1], stanzastream.Acked)
	require.Equal(t, stanzastream.Sent, toks[2].State())

	base, err := s.SMOutboundBase()
	require.NoError(t, err)
	require.Equal(t, uint32(2), base)
	unacked, err := s.SMUnackedList()
	require.NoError(t, err)
	require.Len(t, unacked, 1)

	// A counter that went backwards is ignored.
	tr.Deliver(stanzastream.SMAck{Counter: 1})
	time.Sleep(50 * time.Millisecond)
	base, err = s.SMOutboundBase()
	require.NoError(t, err)
	require.Equal(t, uint32(2), base)
	require.Equal(t, stanzastream.Sent, toks[2].State())
}

func TestSMInboundCounting(t *testing.T) {
	s := stanzastream.New()
	require.NoError(t, s.StartSM())
	tr := streamtest.NewTransport()
	require.NoError(t, s.Start(tr))
	defer func() {
		s.Stop()
		<-s.Done()
	}()

	tr.Deliver(stanza.Message{ID: "1", Type: stanza.ChatMessage})
	tr.Deliver(stanza.Message{ID: "2", Type: stanza.ChatMessage})
	require.Eventually(t, func() bool {
		ctr, err := s.SMInboundCtr()
		return err == nil && ctr == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSMRequestAnswered(t *testing.T) {
	s := stanzastream.New()
	require.NoError(t, s.StartSM())
	tr := streamtest.NewTransport()
	require.NoError(t, s.Start(tr))
	defer func() {
		s.Stop()
		<-s.Done()
	}()

	// The request itself counts as a received element.
	tr.Deliver(stanzastream.SMRequest{})
	el := nextElement(t, tr)
	ack, ok := el.(stanzastream.SMAck)
	require.True(t, ok, "expected an SM ack, got %T", el)
	require.Equal(t, uint32(1), ack.Counter)
}

func TestResumeSM(t *testing.T) {
	s := stanzastream.New()
	require.NoError(t, s.StartSM())
	tr1 := streamtest.NewTransport()

	var toks []*stanzastream.Token
	for _, id := range []string{"a", "b", "c"} {
		toks = append(toks, s.Enqueue(stanza.Message{ID: id, Type: stanza.ChatMessage}, nil))
	}

	require.NoError(t, s.Start(tr1))
	for range toks {
		nextStanza(t, tr1)
	}
	require.Eventually(t, func() bool {
		unacked, err := s.SMUnackedList()
		return err == nil && len(unacked) == 3
	}, time.Second, 5*time.Millisecond)

	// Connection is lost.
	s.Stop()
	<-s.Done()

	// The peer reports that it handled only the first stanza, so the other two
	// must be retransmitted ahead of new traffic, in their original order.
	require.NoError(t, s.ResumeSM(1))
	require.Equal(t, stanzastream.Acked, toks[0].State())

	s.Enqueue(stanza.Message{ID: "d", Type: stanza.ChatMessage}, nil)

	tr2 := streamtest.NewTransport()
	require.NoError(t, s.Start(tr2))
	defer func() {
		s.Stop()
		<-s.Done()
	}()

	var ids []string
	for i := 0; i < 3; i++ {
		msg, ok := nextStanza(t, tr2).(stanza.Message)
		require.True(t, ok)
		ids = append(ids, msg.ID)
	}
	require.Equal(t, []string{"b", "c", "d"}, ids)
}

func TestStopSM(t *testing.T) {
	s := stanzastream.New()
	require.NoError(t, s.StartSM())
	tr := streamtest.NewTransport()

	tok := s.Enqueue(stanza.Message{ID: "1", Type: stanza.ChatMessage}, nil)

	require.NoError(t, s.Start(tr))
	nextStanza(t, tr)
	require.Eventually(t, func() bool {
		unacked, err := s.SMUnackedList()
		return err == nil && len(unacked) == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()
	<-s.Done()

	require.NoError(t, s.StopSM())
	require.False(t, s.SMEnabled())
	require.Equal(t, stanzastream.SentWithoutSM, tok.State())
	_, err := s.SMOutboundBase()
	require.ErrorIs(t, err, stanzastream.ErrSMDisabled)
	_, err = s.SMInboundCtr()
	require.ErrorIs(t, err, stanzastream.ErrSMDisabled)
	_, err = s.SMUnackedList()
	require.ErrorIs(t, err, stanzastream.ErrSMDisabled)
}

func TestSMAckWhileStopped(t *testing.T) {
	s := stanzastream.New()
	require.NoError(t, s.StartSM())
	tr := streamtest.NewTransport()

	tok := s.Enqueue(stanza.Message{ID: "1", Type: stanza.ChatMessage}, nil)
	require.NoError(t, s.Start(tr))
	nextStanza(t, tr)
	require.Eventually(t, func() bool {
		unacked, err := s.SMUnackedList()
		return err == nil && len(unacked) == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()
	<-s.Done()

	require.NoError(t, s.SMAck(1))
	require.Equal(t, stanzastream.Acked, tok.State())
	base, err := s.SMOutboundBase()
	require.NoError(t, err)
	require.Equal(t, uint32(1), base)
}

func TestSMGuards(t *testing.T) {
	s := stanzastream.New()

	// SM operations on a stream without SM.
	require.ErrorIs(t, s.ResumeSM(0), stanzastream.ErrSMDisabled)
	require.ErrorIs(t, s.StopSM(), stanzastream.ErrSMDisabled)
	require.ErrorIs(t, s.SMAck(0), stanzastream.ErrSMDisabled)

	require.NoError(t, s.StartSM())
	tr := streamtest.NewTransport()
	require.NoError(t, s.Start(tr))
	defer func() {
		s.Stop()
		<-s.Done()
	}()

	// SM lifecycle operations while the broker is running.
	require.ErrorIs(t, s.StartSM(), stanzastream.ErrRunning)
	require.ErrorIs(t, s.ResumeSM(0), stanzastream.ErrRunning)
	require.ErrorIs(t, s.StopSM(), stanzastream.ErrRunning)
	require.ErrorIs(t, s.SMAck(0), stanzastream.ErrRunning)
}
