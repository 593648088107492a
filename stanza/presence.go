// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
)

// Presence is an XMPP stanza that is used as an indication that an entity is
// available for communication.
// It is used to set a status message, broadcast availability, and advertise
// entity capabilities.
type Presence struct {
	ID      string
	To      jid.JID
	From    jid.JID
	Lang    string
	Type    PresenceType
	Payload Payload
}

// PresenceType is the type of a presence stanza.
// It should normally be one of the constants defined in this package.
// Unlike with messages the zero value is meaningful: it indicates that the
// sender is available for communication.
type PresenceType string

const (
	// AvailablePresence signals that the entity is available for communication.
	// It is never marshaled as a type attribute.
	AvailablePresence PresenceType = ""

	// ErrorPresence is generated by an entity that experiences an error while
	// processing a presence stanza received from another entity.
	ErrorPresence PresenceType = "error"

	// ProbePresence is a request for an entity's current presence. It should
	// generally only be generated and processed by servers.
	ProbePresence PresenceType = "probe"

	// SubscribePresence is a request to subscribe to another entity's presence.
	SubscribePresence PresenceType = "subscribe"

	// SubscribedPresence indicates that a subscription request has been
	// approved.
	SubscribedPresence PresenceType = "subscribed"

	// UnavailablePresence signals that the entity is no longer available for
	// communication.
	UnavailablePresence PresenceType = "unavailable"

	// UnsubscribePresence is a request to unsubscribe from another entity's
	// presence.
	UnsubscribePresence PresenceType = "unsubscribe"

	// UnsubscribedPresence indicates that a subscription request has been
	// denied or a previously granted subscription has been canceled.
	UnsubscribedPresence PresenceType = "unsubscribed"
)

// StartElement converts the presence into an XML start element token.
func (p Presence) StartElement() xml.StartElement {
	attr := make([]xml.Attr, 0, 5)
	if p.ID != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: p.ID})
	}
	if !p.To.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: p.To.String()})
	}
	if !p.From.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: p.From.String()})
	}
	if p.Lang != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Space: nsXML, Local: "lang"}, Value: p.Lang})
	}
	if p.Type != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(p.Type)})
	}

	return xml.StartElement{
		Name: xml.Name{Space: NSClient, Local: "presence"},
		Attr: attr,
	}
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (p Presence) TokenReader() xml.TokenReader {
	var inner xml.TokenReader
	if p.Payload != nil {
		inner = p.Payload.TokenReader()
	}
	return xmlstream.Wrap(inner, p.StartElement())
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (p Presence) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, p.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (p Presence) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := p.WriteXML(e)
	return err
}

func (Presence) stanza() {}
