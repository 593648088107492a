// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanza contains the basic stanza types used by the stanza stream
// engine.
//
// Stanzas are the basic unit of communication: IQ ("Information Query")
// stanzas provide request/response semantics and always carry exactly one
// payload, message stanzas provide fire-and-forget delivery, and presence
// stanzas broadcast availability.
// The types in this package hold addressing and routing information; payload
// schemas are defined by the protocol packages that use them and are attached
// as opaque marshalable values.
package stanza // import "mellium.im/stanzastream/stanza"
