// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
)

// Namespaces used by stanzas and their children.
const (
	// NSClient is the namespace of stanzas on a client-to-server stream.
	NSClient = "jabber:client"

	// NSStanza is the namespace of stanza error conditions.
	NSStanza = "urn:ietf:params:xml:ns:xmpp-stanzas"

	nsXML = "http://www.w3.org/XML/1998/namespace"
)

// Stanza is one of the three application stanza types: IQ, Message, or
// Presence.
// It is a closed set and is only implemented by types in this package.
type Stanza interface {
	xmlstream.Marshaler
	xmlstream.WriterTo

	stanza()
}

// Payload is a child element carried by a stanza.
// Payloads are opaque to the stream engine; they only need to know how to
// marshal themselves.
type Payload interface {
	xmlstream.Marshaler
}

// Is tests whether name is the name of a stanza.
func Is(name xml.Name) bool {
	return name.Local == "iq" || name.Local == "message" || name.Local == "presence"
}
