// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"mellium.im/xmpp/jid"

	"mellium.im/stanzastream/stanza"
)

func TestPresenceDispatchSpecificity(t *testing.T) {
	s, tr := startedStream(t)
	romeo := jid.MustParse("romeo@example.net")
	juliet := jid.MustParse("juliet@example.net")

	got := make(chan string, 4)
	s.HandlePresenceFunc(stanza.SubscribePresence, romeo, func(stanza.Presence) {
		got <- "romeo"
	})
	s.HandlePresenceFunc(stanza.SubscribePresence, jid.JID{}, func(stanza.Presence) {
		got <- "any-sender"
	})

	for i, data := range [...]struct {
		p    stanza.Presence
		want string
	}{
		0: {stanza.Presence{From: romeo, Type: stanza.SubscribePresence}, "romeo"},
		1: {stanza.Presence{From: juliet, Type: stanza.SubscribePresence}, "any-sender"},
	} {
		tr.Deliver(data.p)
		select {
		case handler := <-got:
			require.Equal(t, data.want, handler, "presence %d hit the wrong handler", i)
		case <-time.After(time.Second):
			t.Fatalf("presence %d was not dispatched", i)
		}
	}
}

func TestPresenceTypeIsNotWildcard(t *testing.T) {
	s, tr := startedStream(t)
	romeo := jid.MustParse("romeo@example.net")

	got := make(chan stanza.Presence, 2)
	// Registered for available presence only (the zero type).
	s.HandlePresenceFunc(stanza.AvailablePresence, jid.JID{}, func(p stanza.Presence) {
		got <- p
	})

	// A different type must not fall back onto the available registration.
	tr.Deliver(stanza.Presence{From: romeo, Type: stanza.UnavailablePresence})
	select {
	case <-got:
		t.Fatal("unavailable presence hit the available handler")
	case <-time.After(50 * time.Millisecond):
	}

	tr.Deliver(stanza.Presence{From: romeo})
	select {
	case p := <-got:
		require.True(t, p.From.Equal(romeo))
	case <-time.After(time.Second):
		t.Fatal("available presence was not dispatched")
	}
}

func TestUnhandlePresence(t *testing.T) {
	s, tr := startedStream(t)

	got := make(chan struct{}, 1)
	s.HandlePresenceFunc(stanza.ProbePresence, jid.JID{}, func(stanza.Presence) {
		got <- struct{}{}
	})
	s.UnhandlePresence(stanza.ProbePresence, jid.JID{})

	tr.Deliver(stanza.Presence{Type: stanza.ProbePresence})
	select {
	case <-got:
		t.Fatal("unregistered handler was called")
	case <-time.After(50 * time.Millisecond):
	}
}
