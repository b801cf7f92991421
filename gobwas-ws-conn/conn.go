// Package gobwas_ws_conn implements the Conn interface from
// https://github.com/SirGFM/go-chat-relay over a WebSocket connection
// from https://github.com/gobwas/ws.
//
// Differently from the gorilla-based adapter, this one operates on a
// plain `net.Conn` that was already upgraded, for example by
// `ws.Upgrader.Upgrade` on the server or `ws.Dialer.Upgrade` on the
// client.
package gobwas_ws_conn

import (
    relay "github.com/SirGFM/go-chat-relay"
    "github.com/gobwas/ws"
    "github.com/gobwas/ws/wsutil"
    "net"
    "sync"
    "sync/atomic"
)

// gbwsConn wrap an upgraded gobwas/ws connection into a relay.Conn.
type gbwsConn struct {
    // The underlying, already upgraded, connection.
    conn net.Conn

    // state of this endpoint (server side or client side), which decides
    // how frames are masked.
    state ws.State

    // pending messages already read from the connection but not yet
    // returned by `Recv`, as a single read may yield multiple messages.
    pending []wsutil.Message

    // sendMutex synchronizes write operations on `conn`.
    sendMutex sync.Mutex

    // Whether the connection is currently active.
    active uint32
}

// isActive check if the connection is still active.
func (c *gbwsConn) isActive() bool {
    return atomic.LoadUint32(&c.active) == 1
}

// Close the connection.
//
// This can safely be called multiple times without any issue.
func (c *gbwsConn) Close() error {
    if atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        c.conn.Close()
    }

    return nil
}

// frameOp convert a gobwas opcode to the relay's frame operation.
func frameOp(op ws.OpCode) relay.FrameOp {
    switch op {
    case ws.OpText:
        return relay.OpText
    case ws.OpBinary:
        return relay.OpBinary
    case ws.OpContinuation:
        return relay.OpContinuation
    case ws.OpPing:
        return relay.OpPing
    case ws.OpPong:
        return relay.OpPong
    case ws.OpClose:
        return relay.OpClose
    default:
        return relay.OpNone
    }
}

// opCode convert the relay's frame operation to a gobwas opcode,
// reporting whether there's anything to send at all.
func opCode(op relay.FrameOp) (ws.OpCode, bool) {
    switch op {
    case relay.OpText:
        return ws.OpText, true
    case relay.OpBinary:
        return ws.OpBinary, true
    case relay.OpContinuation:
        return ws.OpContinuation, true
    case relay.OpPing:
        return ws.OpPing, true
    case relay.OpPong:
        return ws.OpPong, true
    case relay.OpClose:
        return ws.OpClose, true
    default:
        return 0, false
    }
}

// Recv blocks until a new frame was received.
func (c *gbwsConn) Recv() (relay.Frame, error) {
    for len(c.pending) == 0 {
        if !c.isActive() {
            return relay.Frame{}, relay.ConnEOF
        }

        msgs, err := wsutil.ReadMessage(c.conn, c.state, c.pending[:0])
        if err != nil {
            c.Close()
            return relay.Frame{}, relay.ConnEOF
        }
        c.pending = msgs
    }

    msg := c.pending[0]
    c.pending = c.pending[1:]

    return relay.Frame {
        Op: frameOp(msg.OpCode),
        Payload: msg.Payload,
    }, nil
}

// Send the frame to the remote endpoint, properly synchronizing the
// connection.
func (c *gbwsConn) Send(frame relay.Frame) error {
    op, ok := opCode(frame.Op)
    if !ok {
        // Nothing to send.
        return nil
    } else if !c.isActive() {
        return relay.ConnEOF
    }

    c.sendMutex.Lock()
    err := wsutil.WriteMessage(c.conn, c.state, op, frame.Payload)
    c.sendMutex.Unlock()

    if err != nil {
        c.Close()
        return relay.ConnEOF
    }
    return nil
}

// newConn wrap the upgraded `conn` into a relay.Conn for the given
// `state`.
func newConn(conn net.Conn, state ws.State) relay.Conn {
    return &gbwsConn {
        conn: conn,
        state: state,
        active: 1,
    }
}

// NewServerConn wrap `conn`, previously upgraded by a gobwas/ws
// upgrader, into the server side of a Chat Connection.
func NewServerConn(conn net.Conn) relay.Conn {
    return newConn(conn, ws.StateServerSide)
}

// NewClientConn wrap `conn`, previously upgraded by a gobwas/ws dialer,
// into the client side of a Chat Connection.
func NewClientConn(conn net.Conn) relay.Conn {
    return newConn(conn, ws.StateClientSide)
}
