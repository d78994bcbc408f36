// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub_test

import (
	"context"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someonegg/msgpubsub"
)

func ExampleSubscriber_Receive() {
	ctx, err := msgpubsub.NewContext()
	if err != nil {
		log.Fatal(err)
	}
	defer ctx.Close()

	pub, err := ctx.NewPublisher("example", msgpubsub.InProc)
	if err != nil {
		log.Fatal(err)
	}
	defer pub.Close()

	sub, err := ctx.NewSubscriber("example", msgpubsub.InProc)
	if err != nil {
		log.Fatal(err)
	}
	defer sub.Close()
	sub.Subscribe("sensor")

	pub.PublishString("sensor", "20")
	pub.PublishString("log", "skipped")
	pub.PublishString("sensor_b", "21")

	for {
		t, m, ok := sub.Receive(0)
		if !ok {
			break
		}
		fmt.Printf("%s: %s\n", t, m)
	}
	// Output:
	// sensor: 20
	// sensor_b: 21
}

// producer and consumer goroutines over one shared context
func TestExample(t *testing.T) {
	ctx, err := msgpubsub.NewContext()
	require.NoError(t, err)

	sub, err := ctx.NewSubscriber("inproc_channel", msgpubsub.InProc)
	require.NoError(t, err)
	sub.Subscribe("")

	var (
		mu     sync.Mutex
		counts = map[string]int{}
		endD   = make(chan struct{})
	)
	ok := sub.StartLoop(msgpubsub.HandlerFunc(func(ctx context.Context, topic string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		counts[topic]++
		if topic == "control" {
			close(endD)
		}
	}))
	require.True(t, ok)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		pub, err := ctx.NewPublisher("inproc_channel", msgpubsub.InProc)
		if !assert.NoError(t, err) {
			return
		}
		defer pub.Close()

		for i := 0; i < 9; i++ {
			switch i % 3 {
			case 0:
				pub.PublishString("sensor", fmt.Sprint("temp ", 20+i))
			case 1:
				pub.PublishString("status", "ok")
			default:
				pub.PublishString("log", fmt.Sprint("round ", i))
			}
			time.Sleep(time.Millisecond)
		}
		pub.PublishString("control", "end")
	}()

	select {
	case <-endD:
	case <-time.After(2 * time.Second):
		t.Fatal("control message not received")
	}
	wg.Wait()

	sub.StopLoop()
	require.NoError(t, sub.Close())
	require.NoError(t, ctx.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"sensor": 3, "status": 3, "log": 3, "control": 1}, counts)
}
