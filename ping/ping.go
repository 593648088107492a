// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ping implements the XEP-0199: XMPP Ping payload.
//
// The stream engine uses it as its liveness probe on streams without stream
// management, but it can be attached to any IQ.
package ping // import "mellium.im/stanzastream/ping"

import (
	"encoding/xml"

	"mellium.im/xmlstream"
)

// NS is the XML namespace used by XMPP pings. It is provided as a
// convenience.
const NS = `urn:xmpp:ping`

// Ping is a ping payload. Replying to a ping requires no payload at all.
type Ping struct{}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (Ping) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "ping"},
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (p Ping) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, p.TokenReader())
}
