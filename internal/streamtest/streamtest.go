// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package streamtest provides utilities for stanza stream testing.
package streamtest // import "mellium.im/stanzastream/internal/streamtest"

import (
	"encoding/xml"
	"fmt"
	"sync"

	"mellium.im/stanzastream"
	"mellium.im/stanzastream/stanza"
)

// Transport is a fake element transport for testing.
// It records everything sent through it and routes delivered elements to the
// handlers the stream registered, the way a real session would.
//
// The zero value is not valid, use NewTransport.
type Transport struct {
	mu       sync.Mutex
	handlers map[xml.Name]func(stanzastream.Element)
	failures map[uint64]func(error)
	serial   uint64
	sent     []stanzastream.Element

	// Sent receives every element sent through the transport, in order.
	// The channel is buffered; tests that send more than its capacity must
	// drain it.
	Sent chan stanzastream.Element
}

// NewTransport returns a fake transport ready for use.
func NewTransport() *Transport {
	return &Transport{
		handlers: make(map[xml.Name]func(stanzastream.Element)),
		failures: make(map[uint64]func(error)),
		Sent:     make(chan stanzastream.Element, 64),
	}
}

// Send implements stanzastream.Transport.
func (t *Transport) Send(el stanzastream.Element) {
	t.mu.Lock()
	t.sent = append(t.sent, el)
	t.mu.Unlock()
	t.Sent <- el
}

// Handle implements stanzastream.Transport.
func (t *Transport) Handle(name xml.Name, f func(stanzastream.Element)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[name] = f
}

// Unhandle implements stanzastream.Transport.
func (t *Transport) Unhandle(name xml.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, name)
}

// OnFailure implements stanzastream.Transport.
func (t *Transport) OnFailure(f func(error)) (cancel func()) {
	t.mu.Lock()
	serial := t.serial
	t.serial++
	t.failures[serial] = f
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.failures, serial)
	}
}

// SentElements returns a copy of every element sent so far, in order.
func (t *Transport) SentElements() []stanzastream.Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]stanzastream.Element, len(t.sent))
	copy(out, t.sent)
	return out
}

// Handling reports whether a handler is currently registered for the element
// with the given name.
func (t *Transport) Handling(name xml.Name) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.handlers[name]
	return ok
}

// Deliver routes el to the handler registered for its element name, as a real
// transport would on receipt.
// Deliver panics if no handler is registered, since that means the element
// would have been dropped on the floor.
func (t *Transport) Deliver(el stanzastream.Element) {
	name := elementName(el)
	t.mu.Lock()
	f, ok := t.handlers[name]
	t.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("streamtest: no handler registered for %v", name))
	}
	f(el)
}

// Fail invokes every registered failure callback with err.
func (t *Transport) Fail(err error) {
	t.mu.Lock()
	callbacks := make([]func(error), 0, len(t.failures))
	for _, f := range t.failures {
		callbacks = append(callbacks, f)
	}
	t.mu.Unlock()
	for _, f := range callbacks {
		f(err)
	}
}

func elementName(el stanzastream.Element) xml.Name {
	switch el.(type) {
	case stanza.IQ:
		return xml.Name{Space: stanza.NSClient, Local: "iq"}
	case stanza.Message:
		return xml.Name{Space: stanza.NSClient, Local: "message"}
	case stanza.Presence:
		return xml.Name{Space: stanza.NSClient, Local: "presence"}
	case stanzastream.SMAck:
		return xml.Name{Space: stanzastream.NSSM, Local: "a"}
	case stanzastream.SMRequest:
		return xml.Name{Space: stanzastream.NSSM, Local: "r"}
	}
	panic(fmt.Sprintf("streamtest: unknown element type %T", el))
}
