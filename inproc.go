// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"sync/atomic"

	"github.com/alphadose/haxmap"
)

// inprocEndpoint is one name of a context's in-process namespace. At most
// one publisher is bound to it, any number of subscribers are connected,
// before or after the bind.
type inprocEndpoint struct {
	name  string
	bound atomic.Bool
	subs  *haxmap.Map[string, *Subscriber]
}

func newInprocEndpoint(name string) *inprocEndpoint {
	return &inprocEndpoint{
		name: name,
		subs: haxmap.New[string, *Subscriber](),
	}
}

func (e *inprocEndpoint) bind() error {
	if !e.bound.CompareAndSwap(false, true) {
		return ErrAddressInUse
	}
	return nil
}

func (e *inprocEndpoint) unbind() {
	e.bound.Store(false)
}

func (e *inprocEndpoint) connect(s *Subscriber) {
	e.subs.Set(s.id, s)
}

func (e *inprocEndpoint) disconnect(s *Subscriber) {
	e.subs.Del(s.id)
}

func (e *inprocEndpoint) peers() int {
	return int(e.subs.Len())
}

// publish hands m to every connected subscriber, without copying, and
// returns how many of them dropped it.
func (e *inprocEndpoint) publish(m Message) (dropped int) {
	e.subs.ForEach(func(_ string, s *Subscriber) bool {
		if !s.deliver(m) {
			dropped++
		}
		return true
	})
	return
}
