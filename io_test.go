package msgpubsub

import (
	"bytes"
	"fmt"
	"io"
)

type mockMRW struct {
	rcnt int
	rmax int

	wcnt int
	wmax int

	// Topic:Payload;
	b bytes.Buffer
}

func (rw *mockMRW) ReadMessage() (t string, m []byte, err error) {
	if rw.rmax > 0 && rw.rcnt >= rw.rmax {
		err = io.EOF
		return
	}

	rw.rcnt++
	return fmt.Sprint("t", rw.rcnt), []byte(fmt.Sprint("m", rw.rcnt)), nil
}

func (rw *mockMRW) WriteMessage(t string, m []byte) error {
	if rw.wmax > 0 && rw.wcnt >= rw.wmax {
		return io.ErrClosedPipe
	}

	rw.wcnt++
	rw.b.WriteString(t)
	rw.b.WriteString(":")
	rw.b.Write(m)
	rw.b.WriteString(";")
	return nil
}
