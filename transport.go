// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/stanzastream/stanza"
)

// Element is a stream-level element that can travel over a Transport: one of
// the three stanza types or one of the stream management control elements.
//
// The set is closed. The broker matches elements against exactly the kinds it
// registered with the transport and treats anything else as an internal
// consistency violation that is fatal to the run.
type Element interface {
	xmlstream.Marshaler
}

// Names of the element kinds understood by the engine.
// A Stream registers each of them with its transport for the duration of a
// run (the stream management names only while stream management is enabled).
var (
	iqName        = xml.Name{Space: stanza.NSClient, Local: "iq"}
	messageName   = xml.Name{Space: stanza.NSClient, Local: "message"}
	presenceName  = xml.Name{Space: stanza.NSClient, Local: "presence"}
	smAckName     = xml.Name{Space: NSSM, Local: "a"}
	smRequestName = xml.Name{Space: NSSM, Local: "r"}
)

// Transport is the element-level connection that a Stream runs on top of.
// It owns framing, TLS, and parsing of the wire into typed elements; the
// stream engine only ever hands it elements to send and receives typed
// elements back through the registered handlers.
//
// A transport is exclusively owned by the running broker for the duration of
// a run; the broker is guaranteed not to touch it after the run terminates.
type Transport interface {
	// Send hands one element to the wire.
	// Write failures are reported out-of-band through the handler registered
	// with OnFailure, never by return value.
	Send(el Element)

	// Handle registers interest in inbound elements with the given name.
	// Elements of that kind are delivered, already parsed, to f.
	Handle(name xml.Name, f func(Element))

	// Unhandle removes the registration for the given name, if any.
	Unhandle(name xml.Name)

	// OnFailure registers f to be called when the transport fails.
	// The returned function cancels the registration.
	OnFailure(f func(error)) (cancel func())
}
