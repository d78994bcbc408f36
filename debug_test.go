package msgpubsub

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDump(t *testing.T) {
	rw := &mockMRW{}

	dump := &bytes.Buffer{}

	md := &MessageDump{
		RW:   rw,
		Dump: dump,
	}

	topic, m, err := md.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, md.WriteMessage(topic, m))

	assert.Equal(t, "R:t1:2\nm1\n\nW:t1:2\nm1\n\n", dump.String())
	assert.Equal(t, "t1:m1;", rw.b.String())
}

func TestMessageDumpFilter(t *testing.T) {
	rw := &mockMRW{}

	dump := &bytes.Buffer{}

	md := &MessageDump{
		RW:     rw,
		Dump:   dump,
		Filter: func(topic string, m []byte, read bool) bool { return !read },
	}

	topic, m, err := md.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, md.WriteMessage(topic, m))

	assert.Equal(t, "W:t1:2\nm1\n\n", dump.String())
}

func TestMessageDumpError(t *testing.T) {
	rw := &mockMRW{rmax: 1, wmax: 1}

	dump := &bytes.Buffer{}

	md := &MessageDump{
		RW:   rw,
		Dump: dump,
	}

	_, _, err := md.ReadMessage()
	require.NoError(t, err)
	_, _, err = md.ReadMessage()
	require.Error(t, err)

	require.NoError(t, md.WriteMessage("a", nil))
	require.Error(t, md.WriteMessage("b", nil))

	assert.Equal(t, "R:t1:2\nm1\n\nW:a:0\n\n\n", dump.String())
}

func TestDumpWriterDisabled(t *testing.T) {
	dw := newDumpWriter(settings{})
	assert.Nil(t, dw)

	rw := &mockMRW{}
	assert.Same(t, rw, dw.wrap(rw))
}
