// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"fmt"
	"sync"

	"mellium.im/stanzastream/stanza"
)

// State represents the delivery state of an outbound stanza.
type State uint8

const (
	// Active indicates that the stanza has been enqueued for sending and has
	// not been taken care of by the broker yet.
	Active State = iota

	// Sent indicates that the stanza has been handed to a transport with stream
	// management enabled but has not been acknowledged by the remote yet.
	Sent

	// Acked indicates that the stanza has been acknowledged by the remote.
	// This is a final state.
	Acked

	// SentWithoutSM indicates that the stanza has been handed to a transport
	// without stream management enabled, or that stream management was stopped
	// before the stanza was acknowledged.
	// This is a final state.
	SentWithoutSM

	// Aborted indicates that the stanza was retracted before it left the active
	// queue.
	// This is a final state.
	Aborted
)

// String satisfies fmt.Stringer for State.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Sent:
		return "sent"
	case Acked:
		return "acked"
	case SentWithoutSM:
		return "sent-without-sm"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("invalid(%d)", uint8(s))
}

// Token tracks a single outbound stanza on its way to the remote.
// Tokens are created by Stream.Enqueue in the Active state and are advanced
// by the broker as the stanza moves through the stream.
//
// If an observer was registered when the stanza was enqueued it is called
// synchronously with every state change; the observer must not assume that it
// runs on any particular goroutine.
type Token struct {
	mu      sync.Mutex
	stanza  stanza.Stanza
	state   State
	onState func(*Token, State)
}

// Stanza returns the stanza being tracked by the token.
func (t *Token) Stanza() stanza.Stanza {
	return t.stanza
}

// State returns the current delivery state of the token.
func (t *Token) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Abort retracts the stanza before it is sent.
// The stanza remains in the active queue but is discarded silently when the
// broker reaches it.
//
// Abort may only be called while the token is still Active; calling it again
// on an already aborted token is a no-op.
// In any other state the stanza has already left the queue and ErrTokenState
// is returned without changing the token.
func (t *Token) Abort() error {
	t.mu.Lock()
	switch t.state {
	case Aborted:
		t.mu.Unlock()
		return nil
	case Active:
		t.state = Aborted
		onState := t.onState
		t.mu.Unlock()
		if onState != nil {
			onState(t, Aborted)
		}
		return nil
	}
	state := t.state
	t.mu.Unlock()
	return fmt.Errorf("%w in state %s (already sent)", ErrTokenState, state)
}

// markSent claims the token for sending and moves it into Sent or
// SentWithoutSM depending on whether stream management is enabled.
// It reports false if the token was aborted, in which case the stanza must
// not be handed to the transport.
//
// The claim happens before the element hits the wire so that a concurrent
// Abort can never succeed on a stanza that is already being sent.
func (t *Token) markSent(sm bool) bool {
	t.mu.Lock()
	if t.state == Aborted {
		t.mu.Unlock()
		return false
	}
	state := SentWithoutSM
	if sm {
		state = Sent
	}
	t.state = state
	onState := t.onState
	t.mu.Unlock()
	if onState != nil {
		onState(t, state)
	}
	return true
}

// setState applies a transition decided by the stream management logic
// (Acked on acknowledgement, SentWithoutSM on disablement).
func (t *Token) setState(state State) {
	t.mu.Lock()
	t.state = state
	onState := t.onState
	t.mu.Unlock()
	if onState != nil {
		onState(t, state)
	}
}
