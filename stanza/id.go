// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"github.com/google/uuid"
)

// NewID generates a unique ID suitable for the id attribute of a stanza.
// IQ requests sent through the stream engine without an ID are assigned one
// automatically.
func NewID() string {
	return uuid.NewString()
}
