// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"errors"
)

// Errors returned by the stanzastream package.
var (
	// ErrRunning is returned by operations that may only be performed while the
	// stream's broker is stopped.
	ErrRunning = errors.New("stanzastream: stream is running")

	// ErrSMDisabled is returned by stream management operations and accessors
	// when stream management is not enabled on the stream.
	ErrSMDisabled = errors.New("stanzastream: stream management is not enabled")

	// ErrTokenState is returned by Token.Abort when the stanza has already left
	// the active queue.
	ErrTokenState = errors.New("stanzastream: cannot abort stanza")

	// ErrPingTimeout terminates a run when the peer fails to prove that it is
	// still responsive within the configured window.
	ErrPingTimeout = errors.New("stanzastream: ping timeout")

	// ErrUnexpectedElement terminates a run when an element that the engine
	// does not understand reaches the broker.
	// Transports only deliver the element kinds registered with them, so this
	// indicates an internal consistency violation.
	ErrUnexpectedElement = errors.New("stanzastream: unexpected element on stream")
)
