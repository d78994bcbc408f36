// Copyright 2019 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpeer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/someonegg/msgpubsub"
)

type Request = []byte
type Response = []byte
type Notify = []byte

var (
	// ErrPublish is returned when the outbound publisher refused a message.
	ErrPublish = errors.New("msgpeer: publish failed")
	// ErrStopped is returned when the peer stops while waiting for a response.
	ErrStopped = errors.New("msgpeer: peer stopped")
	// ErrStarted is returned by Start when the subscriber loop can not start.
	ErrStarted = errors.New("msgpeer: subscriber loop already running or closed")
)

type ResponseWriter func(ctx context.Context, resp Response) error

// Handler is the request processor.
//
// Handler is called on the subscriber loop, it should return as soon as
// possible and must not call Do itself, see AsyncHandler. It is valid to use
// the ResponseWriter after returning.
type Handler interface {
	Process(ctx context.Context, t string, r Request, w ResponseWriter)
	// notify message
	OnNotify(ctx context.Context, t string, n Notify)
	// unknown message
	OnUnknown(ctx context.Context, topic string, m []byte)
}

// Peer composes an outbound publisher and an inbound subscriber into a
// request response model. Two peers are wired crosswise: each one publishes
// on its own endpoint and subscribes to the endpoint of the other.
//
// The topic layout is:
//
//	R,origin,request-id,request-type  for request
//	P,origin,request-id,request-type  for response
//	N,notify-type                     for notify
//
// A peer subscribes to requests, notifies and the responses carrying its own
// id as origin.
type Peer struct {
	id  string
	pub *msgpubsub.Publisher
	sub *msgpubsub.Subscriber
	h   Handler

	pubLocker sync.Mutex

	locker sync.Mutex
	nrid   uint32
	resps  map[string]chan Response
	stopC  chan struct{}
}

// NewPeer builds a peer over pub and sub. The peer does not own them, they
// should be closed after Stop.
func NewPeer(pub *msgpubsub.Publisher, sub *msgpubsub.Subscriber, h Handler) *Peer {
	return &Peer{
		id:    uuid.Must(uuid.NewV7()).String(),
		pub:   pub,
		sub:   sub,
		h:     h,
		resps: make(map[string]chan Response),
		stopC: make(chan struct{}),
	}
}

// ID returns the origin id carried by the requests of this peer.
func (p *Peer) ID() string {
	return p.id
}

// Start registers the filters and starts the subscriber loop. A stopped
// peer can not be started again.
func (p *Peer) Start() error {
	select {
	case <-p.stopC:
		return ErrStopped
	default:
	}

	if !p.sub.Subscribe("R,", "N,", "P,"+p.id+",") {
		return ErrStarted
	}
	if !p.sub.StartLoop(p) {
		return ErrStarted
	}
	return nil
}

// Stop stops the subscriber loop, pending Do calls return ErrStopped.
func (p *Peer) Stop() {
	p.sub.StopLoop()

	p.locker.Lock()
	select {
	case <-p.stopC:
	default:
		close(p.stopC)
	}
	p.locker.Unlock()
}

func (p *Peer) publish(topic string, m []byte) error {
	p.pubLocker.Lock()
	defer p.pubLocker.Unlock()

	if !p.pub.Publish(topic, m) {
		return ErrPublish
	}
	return nil
}

// Do will send the request and wait for a response.
func (p *Peer) Do(ctx context.Context, t string, r Request) (Response, error) {
	respC := make(chan Response, 1)

	p.locker.Lock()
	rid := strconv.FormatUint(uint64(p.nrid), 16)
	p.nrid += 1
	p.resps[rid] = respC
	p.locker.Unlock()

	defer func() {
		p.locker.Lock()
		delete(p.resps, rid)
		p.locker.Unlock()
	}()

	mt := "R," + p.id + "," + rid + "," + t
	if err := p.publish(mt, r); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stopC:
		return nil, ErrStopped
	case resp := <-respC:
		return resp, nil
	}
}

// Notify will publish the notify.
func (p *Peer) Notify(ctx context.Context, t string, n Notify) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.publish("N,"+t, n)
}

// Process implements the msgpubsub.Handler interface.
func (p *Peer) Process(ctx context.Context, mt string, msg []byte) {
	ss := strings.SplitN(mt, ",", 4)
	switch {
	case ss[0] == "R" && len(ss) == 4:
		origin, rid, t := ss[1], ss[2], ss[3]
		p.h.Process(ctx, t, msg,
			func(ctx context.Context, resp Response) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return p.publish("P,"+origin+","+rid+","+t, resp)
			})
	case ss[0] == "P" && len(ss) == 4:
		if ss[1] != p.id {
			return
		}
		rid := ss[2]
		p.locker.Lock()
		respC := p.resps[rid]
		if respC != nil {
			select {
			case respC <- msg:
			default:
			}
			delete(p.resps, rid)
		}
		p.locker.Unlock()
	case ss[0] == "N" && len(ss) >= 2:
		p.h.OnNotify(ctx, strings.TrimPrefix(mt, "N,"), msg)
	default:
		p.h.OnUnknown(ctx, mt, msg)
	}
}
