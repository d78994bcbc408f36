// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

// Message is one topic-tagged message. On the wire it is always exactly two
// frames, the topic followed by the payload.
//
// A received Message may be shared by every subscriber of the publisher, it
// must not be modified.
type Message struct {
	Topic   string
	Payload []byte
}

type MessageReader interface {
	ReadMessage() (topic string, payload []byte, err error)
}

type MessageWriter interface {
	WriteMessage(topic string, payload []byte) error
}

type MessageReadWriter interface {
	MessageReader
	MessageWriter
}
