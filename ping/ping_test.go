// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ping_test

import (
	"bytes"
	"encoding/xml"
	"testing"

	"mellium.im/stanzastream/ping"
)

func TestMarshalPing(t *testing.T) {
	var buf bytes.Buffer
	e := xml.NewEncoder(&buf)
	if _, err := (ping.Ping{}).WriteXML(e); err != nil {
		t.Fatal(err)
	}
	if err := e.Flush(); err != nil {
		t.Fatal(err)
	}
	const want = `<ping xmlns="urn:xmpp:ping"></ping>`
	if buf.String() != want {
		t.Errorf("wrong output:\nwant=%s\n got=%s", want, buf.String())
	}
}
