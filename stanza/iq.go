// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
)

// IQ ("Information Query") is used as a general request/response mechanism.
// IQs are one-to-one, provide get and set semantics, and always require a
// response in the form of a result or an error.
type IQ struct {
	ID      string
	To      jid.JID
	From    jid.JID
	Lang    string
	Type    IQType
	Payload Payload
	Error   *Error
}

// IQType is the type of an IQ stanza.
// It should normally be one of the constants defined in this package.
type IQType string

const (
	// GetIQ is used to query another entity for information.
	GetIQ IQType = "get"

	// SetIQ is used to provide data to another entity, set new values, and
	// replace existing values.
	SetIQ IQType = "set"

	// ResultIQ is sent in response to a successful get or set IQ.
	ResultIQ IQType = "result"

	// ErrorIQ is sent to report that an error occurred during the delivery or
	// processing of a get or set IQ.
	ErrorIQ IQType = "error"
)

// Response reports whether the IQ is a response to an earlier request (ie. it
// is of type result or error).
func (iq IQ) Response() bool {
	return iq.Type == ResultIQ || iq.Type == ErrorIQ
}

// Result returns a result IQ addressed back to the sender of iq carrying the
// provided payload (which may be nil).
// The ID of the original request is preserved.
func (iq IQ) Result(payload Payload) IQ {
	return IQ{
		ID:      iq.ID,
		To:      iq.From,
		From:    iq.To,
		Lang:    iq.Lang,
		Type:    ResultIQ,
		Payload: payload,
	}
}

// Failed returns an error IQ addressed back to the sender of iq carrying the
// provided stanza error.
// The ID of the original request is preserved.
func (iq IQ) Failed(e Error) IQ {
	return IQ{
		ID:    iq.ID,
		To:    iq.From,
		From:  iq.To,
		Lang:  iq.Lang,
		Type:  ErrorIQ,
		Error: &e,
	}
}

// StartElement converts the IQ into an XML start element token.
func (iq IQ) StartElement() xml.StartElement {
	attr := make([]xml.Attr, 0, 5)
	if iq.ID != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: iq.ID})
	}
	if !iq.To.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: iq.To.String()})
	}
	if !iq.From.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: iq.From.String()})
	}
	if iq.Lang != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Space: nsXML, Local: "lang"}, Value: iq.Lang})
	}
	attr = append(attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(iq.Type)})

	return xml.StartElement{
		Name: xml.Name{Space: NSClient, Local: "iq"},
		Attr: attr,
	}
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (iq IQ) TokenReader() xml.TokenReader {
	var inner xml.TokenReader
	switch {
	case iq.Payload != nil && iq.Error != nil:
		inner = xmlstream.MultiReader(iq.Payload.TokenReader(), iq.Error.TokenReader())
	case iq.Payload != nil:
		inner = iq.Payload.TokenReader()
	case iq.Error != nil:
		inner = iq.Error.TokenReader()
	}
	return xmlstream.Wrap(inner, iq.StartElement())
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (iq IQ) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, iq.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (iq IQ) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := iq.WriteXML(e)
	return err
}

func (IQ) stanza() {}
