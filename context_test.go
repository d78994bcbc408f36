package msgpubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someonegg/msgpubsub"
)

func TestContextClose(t *testing.T) {
	ctx, err := msgpubsub.NewContext(testOptions(t)...)
	require.NoError(t, err)

	pub, err := ctx.NewPublisher("e", msgpubsub.InProc)
	require.NoError(t, err)
	sub, err := ctx.NewSubscriber("e", msgpubsub.InProc)
	require.NoError(t, err)
	sub.Subscribe("")

	// a blocking receive returns as soon as the context terminates
	recvD := make(chan bool)
	go func() {
		_, _, ok := sub.Receive(-1)
		recvD <- ok
	}()

	closeD := make(chan struct{})
	go func() {
		ctx.Close()
		close(closeD)
	}()

	select {
	case ok := <-recvD:
		assert.False(t, ok)
	case <-time.After(waitFor):
		t.Fatal("receive not released")
	}
	assert.Eventually(t, ctx.Terminated, waitFor, time.Millisecond)

	_, err = sub.ReceiveContext(context.Background())
	assert.ErrorIs(t, err, msgpubsub.ErrContextTerminated)
	assert.False(t, pub.PublishString("a", "b"))

	_, err = ctx.NewSubscriber("f", msgpubsub.InProc)
	assert.ErrorIs(t, err, msgpubsub.ErrContextTerminated)

	// Close waits for the sockets
	require.NoError(t, pub.Close())
	select {
	case <-closeD:
		t.Fatal("context closed before its sockets")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, sub.Close())
	select {
	case <-closeD:
	case <-time.After(waitFor):
		t.Fatal("context close blocked")
	}

	require.NoError(t, ctx.Close())
}

func TestContextCloseStopsLoop(t *testing.T) {
	ctx, err := msgpubsub.NewContext(testOptions(t)...)
	require.NoError(t, err)

	sub, err := ctx.NewSubscriber("e", msgpubsub.IPC)
	require.NoError(t, err)
	sub.Subscribe("")
	require.True(t, sub.StartLoop(msgpubsub.HandlerFunc(func(context.Context, string, []byte) {})))

	closeD := make(chan struct{})
	go func() {
		ctx.Close()
		close(closeD)
	}()

	assert.Eventually(t, func() bool { return !sub.Running() }, waitFor, time.Millisecond)
	assert.ErrorIs(t, sub.LoopError(), msgpubsub.ErrContextTerminated)
	assert.False(t, sub.StartLoop(msgpubsub.HandlerFunc(func(context.Context, string, []byte) {})))

	require.NoError(t, sub.Close())
	select {
	case <-closeD:
	case <-time.After(waitFor):
		t.Fatal("context close blocked")
	}
}

func TestContextIdle(t *testing.T) {
	ctx, err := msgpubsub.NewContext(testOptions(t)...)
	require.NoError(t, err)
	assert.False(t, ctx.Terminated())
	require.NoError(t, ctx.Close())
	assert.True(t, ctx.Terminated())
	require.NoError(t, ctx.Close())

	_, err = ctx.NewPublisher("e", msgpubsub.InProc)
	assert.ErrorIs(t, err, msgpubsub.ErrContextTerminated)
}

func TestContextInvalidOptions(t *testing.T) {
	_, err := msgpubsub.NewContext(msgpubsub.WithHighWaterMark(-1))
	assert.ErrorIs(t, err, msgpubsub.ErrInvalidConfig)

	ctx := newContext(t)
	_, err = ctx.NewSubscriber("e", msgpubsub.InProc, msgpubsub.WithHighWaterMark(0))
	assert.ErrorIs(t, err, msgpubsub.ErrInvalidConfig)

	_, err = ctx.NewPublisher("", msgpubsub.InProc)
	assert.ErrorIs(t, err, msgpubsub.ErrInvalidEndpoint)
}

func TestPrivateContext(t *testing.T) {
	opts := testOptions(t)

	pub, err := msgpubsub.NewPublisher("private", msgpubsub.IPC, opts...)
	require.NoError(t, err)
	defer pub.Close()

	sub, err := msgpubsub.NewSubscriber("private", msgpubsub.IPC, opts...)
	require.NoError(t, err)
	defer sub.Close()
	sub.Subscribe("")

	waitConnected(t, pub, sub)
	pub.PublishString("a", "hello")
	assert.Equal(t, received{"a", "hello"}, mustReceive(t, sub))
}
