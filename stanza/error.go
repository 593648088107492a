// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
)

// ErrorType is the type of a stanza error payload.
// It should normally be one of the constants defined in this package.
type ErrorType string

const (
	// Cancel indicates that the error cannot be remedied and the operation
	// should not be retried.
	Cancel ErrorType = "cancel"

	// Auth indicates that an operation should be retried after providing
	// credentials.
	Auth ErrorType = "auth"

	// Continue indicates that the operation can proceed (the condition was only
	// a warning).
	Continue ErrorType = "continue"

	// Modify indicates that the operation can be retried after changing the
	// data sent.
	Modify ErrorType = "modify"

	// Wait indicates that an error is temporary and may be retried.
	Wait ErrorType = "wait"
)

// Condition represents a more specific stanza error condition that can be
// encapsulated by an <error/> element.
type Condition string

// A list of stanza error conditions defined in RFC 6120 §8.3.3.
const (
	// BadRequest indicates that the sender has sent a stanza containing XML
	// that does not conform to the appropriate schema or that cannot be
	// processed.
	BadRequest Condition = "bad-request"

	// FeatureNotImplemented indicates that the feature represented in the
	// stanza is not implemented by the recipient and therefore the stanza
	// cannot be processed.
	FeatureNotImplemented Condition = "feature-not-implemented"

	// InternalServerError indicates that the recipient has experienced a
	// misconfiguration or other internal error that prevents it from processing
	// the stanza.
	InternalServerError Condition = "internal-server-error"

	// ItemNotFound indicates that the addressed JID or item requested cannot be
	// found.
	ItemNotFound Condition = "item-not-found"

	// NotAcceptable indicates that the recipient understands the request but
	// cannot process it because it does not meet criteria defined by the
	// recipient.
	NotAcceptable Condition = "not-acceptable"

	// RemoteServerTimeout indicates that a remote entity needed to fulfill the
	// request was resolved but communications could not be established within a
	// reasonable amount of time.
	RemoteServerTimeout Condition = "remote-server-timeout"

	// ResourceConstraint indicates that the recipient is busy or lacks the
	// system resources necessary to service the request.
	ResourceConstraint Condition = "resource-constraint"

	// ServiceUnavailable indicates that the recipient does not currently
	// provide the requested service.
	ServiceUnavailable Condition = "service-unavailable"

	// UndefinedCondition indicates an error condition that is not one of the
	// defined conditions.
	UndefinedCondition Condition = "undefined-condition"

	// UnexpectedRequest indicates that the recipient understood the request but
	// was not expecting it at this time.
	UnexpectedRequest Condition = "unexpected-request"
)

// Error is a stanza error payload.
// It implements the error interface so that handlers and response listeners
// can return and inspect protocol failures directly.
type Error struct {
	By        jid.JID
	Type      ErrorType
	Condition Condition
	Text      string
}

// Error satisfies the error interface by returning the condition.
func (e Error) Error() string {
	return string(e.Condition)
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (e Error) TokenReader() xml.TokenReader {
	start := xml.StartElement{
		Name: xml.Name{Local: "error"},
	}
	if e.Type != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(e.Type)})
	}
	if !e.By.Equal(jid.JID{}) {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "by"}, Value: e.By.String()})
	}

	inner := xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NSStanza, Local: string(e.Condition)},
	})
	if e.Text != "" {
		inner = xmlstream.MultiReader(inner, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(e.Text)),
			xml.StartElement{Name: xml.Name{Space: NSStanza, Local: "text"}},
		))
	}

	return xmlstream.Wrap(inner, start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (e Error) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, e.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (e Error) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := e.WriteXML(enc)
	return err
}
