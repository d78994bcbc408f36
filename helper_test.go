package msgpubsub_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/someonegg/msgpubsub"
)

var transports = []msgpubsub.Transport{msgpubsub.InProc, msgpubsub.IPC}

const waitFor = 2 * time.Second

// ipcRoot returns a short private channel root, unix socket paths are
// limited.
func ipcRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "mps")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func testOptions(t *testing.T, extra ...msgpubsub.Option) []msgpubsub.Option {
	t.Helper()
	opts := []msgpubsub.Option{
		msgpubsub.WithIPCRoot(ipcRoot(t)),
		msgpubsub.WithLoopPollInterval(10 * time.Millisecond),
		msgpubsub.WithReconnectInterval(10 * time.Millisecond),
	}
	return append(opts, extra...)
}

func newContext(t *testing.T, extra ...msgpubsub.Option) *msgpubsub.Context {
	t.Helper()
	ctx, err := msgpubsub.NewContext(testOptions(t, extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func newPublisher(t *testing.T, ctx *msgpubsub.Context, name string, tr msgpubsub.Transport, opts ...msgpubsub.Option) *msgpubsub.Publisher {
	t.Helper()
	pub, err := ctx.NewPublisher(name, tr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { pub.Close() })
	return pub
}

func newSubscriber(t *testing.T, ctx *msgpubsub.Context, name string, tr msgpubsub.Transport, opts ...msgpubsub.Option) *msgpubsub.Subscriber {
	t.Helper()
	sub, err := ctx.NewSubscriber(name, tr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })
	return sub
}

// waitConnected waits until every subscriber is attached to pub. Messages
// published earlier may be lost on the ipc transport.
func waitConnected(t *testing.T, pub *msgpubsub.Publisher, subs ...*msgpubsub.Subscriber) {
	t.Helper()
	require.Eventually(t, func() bool {
		if pub.Peers() != len(subs) {
			return false
		}
		for _, s := range subs {
			if !s.Connected() {
				return false
			}
		}
		return true
	}, waitFor, 5*time.Millisecond)
}

type received struct {
	Topic   string
	Payload string
}

func mustReceive(t *testing.T, sub *msgpubsub.Subscriber) received {
	t.Helper()
	topic, payload, ok := sub.Receive(waitFor)
	require.True(t, ok, "no message received")
	return received{topic, string(payload)}
}

func forEachTransport(t *testing.T, f func(t *testing.T, tr msgpubsub.Transport)) {
	for _, tr := range transports {
		t.Run(tr.String(), func(t *testing.T) { f(t, tr) })
	}
}
