// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"fmt"
	"io"
	"sync"
)

// DumpFilter reports whether a message should be dumped. read is true for
// received messages.
type DumpFilter func(topic string, payload []byte, read bool) bool

// MessageDump is a debugging helper, it implements the MessageReadWriter
// interface and provides message dump function.
//
// The dump format is:
//
//	R|W:Topic:PayloadSize\nPayload\n\n
//
// Dump may be shared by many MessageDump values, writes to it are serialized.
type MessageDump struct {
	RW   MessageReadWriter
	Dump io.Writer

	// Filter can be nil. If nil, dump all messages.
	Filter DumpFilter

	// Lock can be nil. If set, it guards Dump.
	Lock sync.Locker
}

func (d *MessageDump) needDump(t string, m []byte, read bool) bool {
	if d.Filter != nil {
		return d.Filter(t, m, read)
	}
	return true
}

func (d *MessageDump) dump(dir string, t string, m []byte) {
	if d.Lock != nil {
		d.Lock.Lock()
		defer d.Lock.Unlock()
	}

	fmt.Fprintf(d.Dump, "%s:%s:%v\n", dir, t, len(m))
	d.Dump.Write(m)
	fmt.Fprintf(d.Dump, "\n\n")
}

func (d *MessageDump) ReadMessage() (t string, m []byte, err error) {
	t, m, err = d.RW.ReadMessage()
	if err != nil {
		return
	}

	if d.needDump(t, m, true) {
		d.dump("R", t, m)
	}
	return
}

func (d *MessageDump) WriteMessage(t string, m []byte) (err error) {
	err = d.RW.WriteMessage(t, m)
	if err != nil {
		return
	}

	if d.needDump(t, m, false) {
		d.dump("W", t, m)
	}
	return
}

// dumpWriter holds the dump target of one socket, its mutex is shared by
// all the MessageDump values it wraps.
type dumpWriter struct {
	mu     sync.Mutex
	w      io.Writer
	filter DumpFilter
}

func newDumpWriter(s settings) *dumpWriter {
	if s.dump == nil {
		return nil
	}
	return &dumpWriter{w: s.dump, filter: s.dumpFilter}
}

// wrap returns rw itself when dumping is disabled.
func (dw *dumpWriter) wrap(rw MessageReadWriter) MessageReadWriter {
	if dw == nil {
		return rw
	}
	return &MessageDump{RW: rw, Dump: dw.w, Filter: dw.filter, Lock: &dw.mu}
}
