// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanzastream implements a stanza broker for XMPP sessions.
//
// A Stream sits between application code and an element transport.
// It owns two queues: concurrent senders enqueue stanzas on the active queue
// and receive a Token that tracks delivery, while the transport feeds inbound
// elements into the incoming queue.
// A single broker goroutine drains both, so that application code never
// touches the transport directly and stanzas are sent in the order they were
// enqueued.
//
// Inbound stanzas are routed through per-class dispatch tables: IQ responses
// are matched by sender and ID, IQ requests by type and payload type, and
// messages and presence by type and sender with wildcard fallbacks.
//
// The stream watches its own liveness.
// After a period without proof that the peer is responsive it probes with a
// XEP-0199 ping, or with a stream management acknowledgement request if
// stream management is enabled, and fails the run if no answer arrives in
// time.
//
// With stream management (XEP-0198) enabled the stream counts stanzas in both
// directions, retains sent stanzas until the peer acknowledges them, and can
// resume on a new transport after a connection is lost, retransmitting
// whatever the peer did not acknowledge.
package stanzastream // import "mellium.im/stanzastream"
