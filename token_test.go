// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"mellium.im/stanzastream/stanza"
)

func TestTokenAbort(t *testing.T) {
	var states []State
	tok := &Token{
		stanza: stanza.Message{Type: stanza.ChatMessage},
		state:  Active,
		onState: func(_ *Token, s State) {
			states = append(states, s)
		},
	}

	require.NoError(t, tok.Abort())
	require.Equal(t, Aborted, tok.State())
	// Aborting twice is a no-op.
	require.NoError(t, tok.Abort())
	require.Equal(t, []State{Aborted}, states)
}

func TestTokenAbortAfterSend(t *testing.T) {
	tok := &Token{stanza: stanza.Message{}, state: Active}
	require.True(t, tok.markSent(false))
	err := tok.Abort()
	require.ErrorIs(t, err, ErrTokenState)
	require.Equal(t, SentWithoutSM, tok.State())
}

func TestTokenMarkSent(t *testing.T) {
	tok := &Token{stanza: stanza.Message{}, state: Active}
	require.True(t, tok.markSent(true))
	require.Equal(t, Sent, tok.State())

	tok = &Token{stanza: stanza.Message{}, state: Active}
	require.True(t, tok.markSent(false))
	require.Equal(t, SentWithoutSM, tok.State())

	tok = &Token{stanza: stanza.Message{}, state: Active}
	require.NoError(t, tok.Abort())
	require.False(t, tok.markSent(true))
	require.Equal(t, Aborted, tok.State())
}

func TestTokenSetState(t *testing.T) {
	var got State
	tok := &Token{
		stanza: stanza.Message{},
		state:  Sent,
		onState: func(_ *Token, s State) {
			got = s
		},
	}
	tok.setState(Acked)
	require.Equal(t, Acked, tok.State())
	require.Equal(t, Acked, got)
}

func TestStateString(t *testing.T) {
	for i, data := range [...]struct {
		state State
		s     string
	}{
		0: {Active, "active"},
		1: {Sent, "sent"},
		2: {Acked, "acked"},
		3: {SentWithoutSM, "sent-without-sm"},
		4: {Aborted, "aborted"},
		5: {State(250), "invalid(250)"},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			if s := data.state.String(); s != data.s {
				t.Errorf("wrong value for String: want=%q, got=%q", data.s, s)
			}
		})
	}
}
