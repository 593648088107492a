// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanzastream_test

import (
	"fmt"

	"mellium.im/xmpp/jid"

	"mellium.im/stanzastream"
	"mellium.im/stanzastream/internal/streamtest"
	"mellium.im/stanzastream/stanza"
)

func Example_echo() {
	s := stanzastream.New()
	tr := streamtest.NewTransport()

	// Echo chat messages back to their sender.
	s.HandleMessageFunc(stanza.ChatMessage, jid.JID{}, func(msg stanza.Message) {
		s.Enqueue(stanza.Message{
			To:   msg.From,
			Type: stanza.ChatMessage,
			Body: msg.Body,
		}, nil)
	})

	if err := s.Start(tr); err != nil {
		fmt.Println(err)
		return
	}

	tr.Deliver(stanza.Message{
		From: jid.MustParse("romeo@example.net"),
		Type: stanza.ChatMessage,
		Body: "Hello!",
	})

	echoed := (<-tr.Sent).(stanza.Message)
	fmt.Printf("%s to %s\n", echoed.Body, echoed.To)

	s.Stop()
	<-s.Done()

	// Output: Hello! to romeo@example.net
}
