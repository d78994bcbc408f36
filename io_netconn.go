// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"net"
)

var (
	errFrameLength = errors.New("netconn io: wrong frame length")
	errFrameFormat = errors.New("netconn io: wrong frame sequence")
)

const (
	frameMore       byte = 0x01
	frameHeaderSize      = 5
)

// FrameMaxLength is the maximum length of one frame.
const FrameMaxLength = 32 * 1024 * 1024

type netbufconn struct {
	conn net.Conn
	*bufio.ReadWriter
}

func newNetbufConn(conn net.Conn) netbufconn {
	return netbufconn{
		conn:       conn,
		ReadWriter: bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
	}
}

func (c *netbufconn) Close() error {
	return c.conn.Close()
}

// NetconnMRW converts a net.Conn to a MessageReadWriter.
//
// In the transport layer, a message is two frames, each laid out as:
//
//	Flags(1-byte, bit0 = more)Length(4-bytes uint, big-endian)Body
//
// The topic frame has the more flag set, the payload frame does not.
type NetconnMRW struct {
	c netbufconn
}

// NewNetconnMRW wraps conn, the caller still owns it.
func NewNetconnMRW(conn net.Conn) NetconnMRW {
	return NetconnMRW{c: newNetbufConn(conn)}
}

func (rw NetconnMRW) Close() error {
	return rw.c.Close()
}

func (rw NetconnMRW) readFrame() (body []byte, more bool, err error) {
	var h [frameHeaderSize]byte
	if _, err = io.ReadFull(rw.c, h[:]); err != nil {
		return
	}

	if h[0]&^frameMore != 0 {
		err = errFrameFormat
		return
	}
	more = h[0]&frameMore != 0

	l := binary.BigEndian.Uint32(h[1:])
	if l > FrameMaxLength {
		err = errFrameLength
		return
	}

	body = make([]byte, l)
	if _, err = io.ReadFull(rw.c, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return
	}
	return
}

func (rw NetconnMRW) ReadMessage() (topic string, payload []byte, err error) {
	t, more, err := rw.readFrame()
	if err != nil {
		return
	}
	if !more {
		err = errFrameFormat
		return
	}

	payload, more, err = rw.readFrame()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return
	}
	if more {
		err = errFrameFormat
		return
	}

	topic = string(t)
	return
}

func (rw NetconnMRW) writeFrame(body []byte, more bool) error {
	if len(body) > FrameMaxLength {
		return errFrameLength
	}

	var h [frameHeaderSize]byte
	if more {
		h[0] = frameMore
	}
	binary.BigEndian.PutUint32(h[1:], uint32(len(body)))

	if _, err := rw.c.Write(h[:]); err != nil {
		return err
	}
	_, err := rw.c.Write(body)
	return err
}

func (rw NetconnMRW) WriteMessage(topic string, payload []byte) error {
	if len(topic) > FrameMaxLength || len(payload) > FrameMaxLength {
		return errFrameLength
	}

	if err := rw.writeFrame([]byte(topic), true); err != nil {
		return err
	}
	if err := rw.writeFrame(payload, false); err != nil {
		return err
	}

	return rw.c.Flush()
}
