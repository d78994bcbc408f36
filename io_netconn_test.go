package msgpubsub

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNetConn struct {
	bytes.Buffer
}

func (c *mockNetConn) Close() error {
	return nil
}

func (c *mockNetConn) LocalAddr() net.Addr {
	return &net.UnixAddr{}
}

func (c *mockNetConn) RemoteAddr() net.Addr {
	return &net.UnixAddr{}
}

func (c *mockNetConn) SetDeadline(t time.Time) error {
	return nil
}

func (c *mockNetConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (c *mockNetConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func writeFrameHeader(b *bytes.Buffer, flags byte, l uint32) {
	b.WriteByte(flags)
	binary.Write(b, binary.BigEndian, l)
}

func TestNetconnRead(t *testing.T) {
	c := &mockNetConn{}
	rw := NewNetconnMRW(c)

	writeFrameHeader(&c.Buffer, frameMore, 2)
	c.Buffer.WriteString("t1")
	writeFrameHeader(&c.Buffer, 0, 2)
	c.Buffer.WriteString("m1")

	topic, m, err := rw.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "t1", topic)
	assert.Equal(t, []byte("m1"), m)

	_, _, err = rw.ReadMessage()
	assert.Equal(t, io.EOF, err)
}

func TestNetconnReadEmpty(t *testing.T) {
	c := &mockNetConn{}
	rw := NewNetconnMRW(c)

	writeFrameHeader(&c.Buffer, frameMore, 0)
	writeFrameHeader(&c.Buffer, 0, 0)

	topic, m, err := rw.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "", topic)
	assert.Empty(t, m)
}

func TestNetconnReadBadFrames(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *bytes.Buffer)
		err   error
	}{
		{
			name: "unknown flags",
			build: func(b *bytes.Buffer) {
				writeFrameHeader(b, 0x02, 1)
				b.WriteString("t")
			},
			err: errFrameFormat,
		},
		{
			name: "topic without more",
			build: func(b *bytes.Buffer) {
				writeFrameHeader(b, 0, 1)
				b.WriteString("t")
			},
			err: errFrameFormat,
		},
		{
			name: "payload with more",
			build: func(b *bytes.Buffer) {
				writeFrameHeader(b, frameMore, 1)
				b.WriteString("t")
				writeFrameHeader(b, frameMore, 1)
				b.WriteString("m")
			},
			err: errFrameFormat,
		},
		{
			name: "too long",
			build: func(b *bytes.Buffer) {
				writeFrameHeader(b, frameMore, FrameMaxLength+1)
			},
			err: errFrameLength,
		},
		{
			name: "truncated body",
			build: func(b *bytes.Buffer) {
				writeFrameHeader(b, frameMore, 5)
				b.WriteString("t")
			},
			err: io.ErrUnexpectedEOF,
		},
		{
			name: "missing payload",
			build: func(b *bytes.Buffer) {
				writeFrameHeader(b, frameMore, 1)
				b.WriteString("t")
			},
			err: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockNetConn{}
			tt.build(&c.Buffer)

			_, _, err := NewNetconnMRW(c).ReadMessage()
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestNetconnWrite(t *testing.T) {
	c := &mockNetConn{}
	rw := NewNetconnMRW(c)

	require.NoError(t, rw.WriteMessage("t1", []byte("m1")))
	assert.Equal(t, []byte{
		frameMore, 0, 0, 0, 2, 't', '1',
		0, 0, 0, 0, 2, 'm', '1',
	}, c.Buffer.Bytes())

	topic, m, err := rw.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "t1", topic)
	assert.Equal(t, []byte("m1"), m)
}

func TestNetconnPipe(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	payload := []byte{0, 1, 2, 0xff, '\n', 0}
	go NewNetconnMRW(c1).WriteMessage("bin", payload)

	topic, m, err := NewNetconnMRW(c2).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "bin", topic)
	assert.Equal(t, payload, m)
}
