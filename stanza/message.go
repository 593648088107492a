// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
)

// Message is an XMPP stanza that contains a payload for direct one-to-one
// communication or for broadcast via a chat room.
type Message struct {
	ID      string
	To      jid.JID
	From    jid.JID
	Lang    string
	Type    MessageType
	Body    string
	Payload Payload
}

// MessageType is the type of a message stanza.
// It should normally be one of the constants defined in this package.
// The zero value is reserved by the stream engine as a routing wildcard, so
// normal messages should use NormalMessage explicitly.
type MessageType string

const (
	// NormalMessage is a standalone message that is sent outside the context of
	// a one-to-one conversation or group chat and to which it is expected that
	// the recipient will reply.
	NormalMessage MessageType = "normal"

	// ChatMessage is sent in the context of a one-to-one chat session.
	ChatMessage MessageType = "chat"

	// ErrorMessage is generated by an entity that experiences an error when
	// processing a message received from another entity.
	ErrorMessage MessageType = "error"

	// GroupChatMessage is sent in the context of a multi-user chat environment.
	GroupChatMessage MessageType = "groupchat"

	// HeadlineMessage provides an alert, a notification, or other transient
	// information to which no reply is expected.
	HeadlineMessage MessageType = "headline"
)

// StartElement converts the message into an XML start element token.
func (m Message) StartElement() xml.StartElement {
	attr := make([]xml.Attr, 0, 5)
	if m.ID != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: m.ID})
	}
	if !m.To.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: m.To.String()})
	}
	if !m.From.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: m.From.String()})
	}
	if m.Lang != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Space: nsXML, Local: "lang"}, Value: m.Lang})
	}
	if m.Type != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(m.Type)})
	}

	return xml.StartElement{
		Name: xml.Name{Space: NSClient, Local: "message"},
		Attr: attr,
	}
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (m Message) TokenReader() xml.TokenReader {
	var inner xml.TokenReader
	if m.Body != "" {
		inner = xmlstream.Wrap(
			xmlstream.Token(xml.CharData(m.Body)),
			xml.StartElement{Name: xml.Name{Local: "body"}},
		)
	}
	if m.Payload != nil {
		if inner == nil {
			inner = m.Payload.TokenReader()
		} else {
			inner = xmlstream.MultiReader(inner, m.Payload.TokenReader())
		}
	}
	return xmlstream.Wrap(inner, m.StartElement())
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (m Message) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, m.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (m Message) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := m.WriteXML(e)
	return err
}

func (Message) stanza() {}
