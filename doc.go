// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package msgpubsub provides a minimal topic-based publish/subscribe facility.
//
// A message is a topic (a byte string) and a payload (a byte slice), always
// transmitted as one unit of two frames. A Publisher binds an endpoint, the
// Subscribers connect to it and receive the messages whose topic starts with
// one of their registered prefixes. Delivery is best-effort and at-most-once:
// there is no persistence and no acknowledgment, and full queues drop
// messages instead of blocking the publisher.
//
// An endpoint is a name plus a transport:
//   IPC     cross-process, a unix socket at <ipc-root>/<name>.ipc
//   InProc  in-process, visible to the sockets created on one Context
//
// Here is a quick example, with two goroutines over the in-process transport.
//
//  ctx, err := msgpubsub.NewContext()
//  if err != nil {
//  	log.Fatal(err)
//  }
//  defer ctx.Close()
//
//  sub, err := ctx.NewSubscriber("sensors", msgpubsub.InProc)
//  if err != nil {
//  	log.Fatal(err)
//  }
//  defer sub.Close()
//  sub.Subscribe("temp", "status")
//
//  sub.StartLoop(msgpubsub.HandlerFunc(func(ctx context.Context, t string, m []byte) {
//  	log.Printf("receive: %v, %s", t, m)
//  }))
//
//  go func() {
//  	pub, err := ctx.NewPublisher("sensors", msgpubsub.InProc)
//  	if err != nil {
//  		log.Fatal(err)
//  	}
//  	defer pub.Close()
//
//  	for i := 0; i < 10; i++ {
//  		pub.PublishString("temp", fmt.Sprint(20+i))
//  		time.Sleep(500 * time.Millisecond)
//  	}
//  }()
//
// And a synchronous receiver in another process.
//
//  sub, err := msgpubsub.NewSubscriber("test_channel", msgpubsub.IPC)
//  if err != nil {
//  	log.Fatal(err)
//  }
//  defer sub.Close()
//  sub.Subscribe()
//
//  for {
//  	t, m, ok := sub.Receive(time.Second)
//  	if !ok {
//  		continue
//  	}
//  	log.Printf("receive: %v, %s", t, m)
//  }
package msgpubsub
