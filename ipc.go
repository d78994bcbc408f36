// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/someonegg/gox/syncx"

	"github.com/someonegg/msgpubsub/internal/slogx"
)

const acceptRetryDelay = 10 * time.Millisecond

// ipcListener is the bound side of an ipc channel. Every accepted
// subscriber connection becomes a peer with its own send queue.
type ipcListener struct {
	path string
	set  settings
	log  *slog.Logger
	dw   *dumpWriter

	l     *net.UnixListener
	peers *haxmap.Map[string, *ipcPeer]

	mu     sync.Mutex
	closeD syncx.DoneChan
	wg     sync.WaitGroup
}

func listenIPC(path string, set settings, log *slog.Logger) (*ipcListener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, fmt.Errorf("msgpubsub: create ipc root: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		// a live listener answers, a stale socket file does not
		conn, err := net.DialTimeout("unix", path, set.DialTimeout)
		if err == nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %s", ErrAddressInUse, path)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("msgpubsub: remove stale ipc socket: %w", err)
		}
	}

	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("msgpubsub: bind %s: %w", path, err)
	}

	il := &ipcListener{
		path:   path,
		set:    set,
		log:    log,
		dw:     newDumpWriter(set),
		l:      l,
		peers:  haxmap.New[string, *ipcPeer](),
		closeD: syncx.NewDoneChan(),
	}

	il.wg.Add(1)
	go il.accepting()
	return il, nil
}

func (l *ipcListener) accepting() {
	defer l.wg.Done()

	for {
		conn, err := l.l.Accept()
		if err != nil {
			if l.closeD.R().Done() {
				return
			}
			l.log.Warn("ipc accept failed", slogx.Error(err))
			select {
			case <-l.closeD:
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}
		l.addPeer(conn)
	}
}

func (l *ipcListener) addPeer(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closeD.R().Done() {
		conn.Close()
		return
	}

	p := &ipcPeer{
		id:     newID(),
		conn:   conn,
		rw:     l.dw.wrap(NewNetconnMRW(conn)),
		q:      make(chan Message, l.set.HighWaterMark),
		closeD: syncx.NewDoneChan(),
	}
	p.onClose = func() { l.peers.Del(p.id) }
	l.peers.Set(p.id, p)

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		p.writing(l.log)
	}()
	go func() {
		defer l.wg.Done()
		p.watching()
	}()

	l.log.Debug("ipc subscriber connected", slogx.Socket(p.id))
}

// publish queues m on every peer and returns how many peers dropped it.
func (l *ipcListener) publish(m Message) (dropped int) {
	l.peers.ForEach(func(_ string, p *ipcPeer) bool {
		select {
		case p.q <- m:
		default:
			dropped++
		}
		return true
	})
	return
}

func (l *ipcListener) numPeers() int {
	return int(l.peers.Len())
}

func (l *ipcListener) close() {
	l.mu.Lock()
	if l.closeD.R().Done() {
		l.mu.Unlock()
		return
	}
	l.closeD.SetDone()
	// also unlinks the socket file
	l.l.Close()
	var peers []*ipcPeer
	l.peers.ForEach(func(_ string, p *ipcPeer) bool {
		peers = append(peers, p)
		return true
	})
	l.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
	l.wg.Wait()
}

type ipcPeer struct {
	id      string
	conn    net.Conn
	rw      MessageReadWriter
	q       chan Message
	closeD  syncx.DoneChan
	once    sync.Once
	onClose func()
}

func (p *ipcPeer) writing(log *slog.Logger) {
	for {
		select {
		case <-p.closeD:
			return
		case m := <-p.q:
			if err := p.rw.WriteMessage(m.Topic, m.Payload); err != nil {
				if errors.Is(err, errFrameLength) {
					// nothing was written, the stream is intact
					log.Warn("ipc message skipped", slogx.Socket(p.id), slogx.Topic(m.Topic), slogx.Error(err))
					continue
				}
				if !p.closeD.R().Done() {
					log.Debug("ipc write failed", slogx.Socket(p.id), slogx.Error(err))
				}
				p.close()
				return
			}
		}
	}
}

// watching detects the subscriber hanging up, it never sends anything.
func (p *ipcPeer) watching() {
	io.Copy(io.Discard, p.conn)
	p.close()
}

func (p *ipcPeer) close() {
	p.once.Do(func() {
		p.closeD.SetDone()
		p.conn.Close()
		if p.onClose != nil {
			p.onClose()
		}
	})
}

// ipcConnector is the connected side of an ipc channel. It dials in the
// background and redials whenever the publisher goes away.
type ipcConnector struct {
	path    string
	set     settings
	log     *slog.Logger
	dw      *dumpWriter
	deliver func(Message) bool

	mu     sync.Mutex
	conn   net.Conn
	closeD syncx.DoneChan
	doneD  syncx.DoneChan
}

func connectIPC(path string, set settings, log *slog.Logger, deliver func(Message) bool) *ipcConnector {
	c := &ipcConnector{
		path:    path,
		set:     set,
		log:     log,
		dw:      newDumpWriter(set),
		deliver: deliver,
		closeD:  syncx.NewDoneChan(),
		doneD:   syncx.NewDoneChan(),
	}
	go c.connecting()
	return c
}

func (c *ipcConnector) connecting() {
	defer c.doneD.SetDone()

	for {
		conn, err := net.DialTimeout("unix", c.path, c.set.DialTimeout)
		if err == nil {
			if !c.setConn(conn) {
				conn.Close()
				return
			}
			c.log.Debug("ipc connected")
			c.reading(conn)
			c.setConn(nil)
		}

		select {
		case <-c.closeD:
			return
		case <-time.After(c.set.ReconnectInterval):
		}
	}
}

func (c *ipcConnector) reading(conn net.Conn) {
	defer conn.Close()

	rw := c.dw.wrap(NewNetconnMRW(conn))
	for {
		t, m, err := rw.ReadMessage()
		if err != nil {
			if !c.closeD.R().Done() && !errors.Is(err, io.EOF) {
				c.log.Debug("ipc read failed", slogx.Error(err))
			}
			return
		}
		c.deliver(Message{Topic: t, Payload: m})
	}
}

// setConn records the live connection, it fails once the connector is
// closed.
func (c *ipcConnector) setConn(conn net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closeD.R().Done() {
		return false
	}
	c.conn = conn
	return true
}

func (c *ipcConnector) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *ipcConnector) close() {
	c.mu.Lock()
	if !c.closeD.R().Done() {
		c.closeD.SetDone()
		if c.conn != nil {
			c.conn.Close()
		}
	}
	c.mu.Unlock()

	<-c.doneD
}
