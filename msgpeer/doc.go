// Copyright 2019 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package msgpeer implements a synchronous request response model over two
// publish/subscribe endpoints. Each peer publishes on its own endpoint and
// subscribes to the endpoint of the other one, allowing each to send
// requests to the other concurrently.
//
// Here is a quick example, includes client and server on one context.
//
// Server
//   type ServerPeer struct {
//   	peer *msgpeer.Peer
//   }
//
//   func (p *ServerPeer) Start(ctx *msgpubsub.Context) error {
//   	pub, err := ctx.NewPublisher("server", msgpubsub.InProc)
//   	if err != nil {
//   		return err
//   	}
//   	sub, err := ctx.NewSubscriber("client", msgpubsub.InProc)
//   	if err != nil {
//   		return err
//   	}
//
//   	h := msgpeer.AsyncHandler(p, 5*time.Second)
//   	p.peer = msgpeer.NewPeer(pub, sub, h)
//   	return p.peer.Start()
//   }
//
//   func (p *ServerPeer) Process(ctx context.Context, t string, r msgpeer.Request, w msgpeer.ResponseWriter) {
//   	log.Printf("server process request: %v, %s", t, r)
//
//   	switch t {
//   	case "client-hello":
//   		w(ctx, []byte("AAA"))
//   	case "client-ask":
//   		w(ctx, r)
//   	default:
//   		log.Print("unknown client request")
//   	}
//   }
//
//   func (p *ServerPeer) OnNotify(ctx context.Context, t string, n msgpeer.Notify) {
//   	log.Printf("server receive notify: %v, %s", t, n)
//   }
//
//   func (p *ServerPeer) OnUnknown(ctx context.Context, topic string, m []byte) {
//   	log.Printf("server receive unknown message: %v", topic)
//   }
//
// Client
//   pub, _ := ctx.NewPublisher("client", msgpubsub.InProc)
//   sub, _ := ctx.NewSubscriber("server", msgpubsub.InProc)
//
//   client := msgpeer.NewPeer(pub, sub, clientHandler)
//   client.Start()
//   defer client.Stop()
//
//   resp, err := client.Do(context.Background(), "client-hello", []byte("aaa"))
//   log.Printf("client-hello response: %s, %v", resp, err)
//
// Messages published before the other side is connected are lost, as with
// any subscriber.
package msgpeer
