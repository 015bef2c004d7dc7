// Package network holds the connection layer used to reach the
// conodes: a message-framed Conn over websockets, a pool keeping one
// connection per conode, and the protobuf request/reply helper every
// service client is built on.
package network

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// Conn is a message-framed link to a single conode. Frames are opaque
// byte sequences, the conode protocol defines their content.
type Conn interface {
	// Send writes one frame on the connection.
	Send(ctx context.Context, msg []byte) error
	// Receive returns the next frame from the connection. It only
	// completes once the underlying transport is open.
	Receive(ctx context.Context) ([]byte, error)
	// Exchange sends a frame and returns the reply to it. Concurrent
	// exchanges on the same connection are serialized, so a reply is
	// never handed to the wrong caller. This is what request/reply
	// protocols must use.
	Exchange(ctx context.Context, msg []byte) ([]byte, error)
	// Close shuts the connection down. Subsequent sends and receives
	// dial again.
	Close() error
}

// WSConn is a Conn over one persistent websocket. The websocket is
// dialed lazily on the first send or receive and kept for the lifetime
// of the connection; after a transport failure the next call dials
// again.
type WSConn struct {
	url string

	// one request/reply pair in flight at a time
	exchMu sync.Mutex
	// gorilla allows only one concurrent writer and one concurrent
	// reader
	sendMu sync.Mutex
	recvMu sync.Mutex

	openMu sync.Mutex
	ws     *websocket.Conn
}

// NewWSConn prepares a connection to the given websocket URL. No
// network activity happens before the first use.
func NewWSConn(url string) *WSConn {
	return &WSConn{url: url}
}

// Send writes msg as one binary frame.
func (c *WSConn) Send(ctx context.Context, msg []byte) error {
	ws, err := c.open(ctx)
	if err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	stop := watchCtx(ctx, ws.SetWriteDeadline)
	err = ws.WriteMessage(websocket.BinaryMessage, msg)
	stop()
	if err != nil {
		c.reset(ws)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return xerrors.Errorf("sending to %s: %v", c.url, err)
	}
	return nil
}

// Receive returns the next inbound frame.
func (c *WSConn) Receive(ctx context.Context) ([]byte, error) {
	ws, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	c.recvMu.Lock()
	defer c.recvMu.Unlock()
	stop := watchCtx(ctx, ws.SetReadDeadline)
	_, buf, err := ws.ReadMessage()
	stop()
	if err != nil {
		c.reset(ws)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, xerrors.Errorf("receiving from %s: %v", c.url, err)
	}
	return buf, nil
}

// Exchange sends msg and returns the reply frame. The exchange lock
// guarantees that no other exchange can interleave between the send
// and its matching receive.
func (c *WSConn) Exchange(ctx context.Context, msg []byte) ([]byte, error) {
	c.exchMu.Lock()
	defer c.exchMu.Unlock()
	if err := c.Send(ctx, msg); err != nil {
		return nil, err
	}
	return c.Receive(ctx)
}

// Close closes the websocket if it is open.
func (c *WSConn) Close() error {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	if c.ws == nil {
		return nil
	}
	err := c.ws.Close()
	c.ws = nil
	if err != nil {
		return xerrors.Errorf("closing connection to %s: %v", c.url, err)
	}
	return nil
}

// open returns the websocket, dialing it on first use. A failed dial
// is not cached, the next call retries.
func (c *WSConn) open(ctx context.Context) (*websocket.Conn, error) {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	if c.ws != nil {
		return c.ws, nil
	}
	log.Lvlf3("opening websocket to %s", c.url)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, xerrors.Errorf("dialing %s: %v", c.url, err)
	}
	c.ws = ws
	return ws, nil
}

// reset drops the cached websocket after a transport failure so that
// the next call dials again.
func (c *WSConn) reset(ws *websocket.Conn) {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	if c.ws == ws {
		ws.Close()
		c.ws = nil
	}
}

// watchCtx aborts a pending read or write when the context is done by
// expiring the deadline of that direction. Each watcher touches only
// its own deadline so that a send finishing cannot clear the deadline
// a cancelled receive depends on. The returned function must be called
// once the operation has finished.
func watchCtx(ctx context.Context, setDeadline func(time.Time) error) func() {
	if ctx.Done() == nil {
		return func() {}
	}
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			setDeadline(time.Now())
		case <-stopped:
		}
	}()
	return func() {
		close(stopped)
		setDeadline(time.Time{})
	}
}
