// Package gorilla_ws_conn implements the Conn interface from
// https://github.com/SirGFM/go-chat-relay over a WebSocket connection
// from https://github.com/gorilla/websocket.
package gorilla_ws_conn

import (
    relay "github.com/SirGFM/go-chat-relay"
    gows "github.com/gorilla/websocket"
    "net/http"
    "sync"
    "sync/atomic"
)

// gwsConn wrap a gorilla/ws connection into a relay.Conn.
//
// gorilla/ws only reports data messages from its `ReadMessage`, handling
// control frames through callbacks invoked while reading. To surface
// every frame to the session in arrival order, a dedicated goroutine
// reads from the WebSocket and both it and the control callbacks push
// onto a single channel, which `Recv` consumes.
//
// Note that gorilla/ws reassembles fragmented messages internally, so a
// continuation frame is never surfaced by this `Conn`.
type gwsConn struct {
    // The gorilla WebSocket connection.
    conn *gows.Conn

    // recv frames parsed from the connection, in arrival order.
    recv chan relay.Frame

    // sendMutex synchronizes write operations on `conn`.
    sendMutex sync.Mutex

    // Whether the connection is currently active.
    active uint32

    // stop signals, by getting closed, that the connection should get
    // closed.
    stop chan struct{}
}

// isActive check if the connection is still active.
func (c *gwsConn) isActive() bool {
    return atomic.LoadUint32(&c.active) == 1
}

// Close the connection.
//
// This can safely be called multiple times without any issue.
func (c *gwsConn) Close() error {
    if atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        close(c.stop)
        c.conn.Close()
    }

    return nil
}

// push a parsed frame, unless the connection was closed.
func (c *gwsConn) push(frame relay.Frame) {
    select {
    case c.recv <- frame:
    case <-c.stop:
    }
}

// read frames from the WebSocket and queue them for `Recv`.
//
// Control frames are queued by the handlers configured in `NewConn`,
// which gorilla/ws invokes from this same goroutine, so the arrival
// order is kept.
func (c *gwsConn) read() {
    for c.isActive() {
        typ, data, err := c.conn.ReadMessage()
        if err != nil {
            c.Close()
            return
        }

        switch typ {
        case gows.TextMessage:
            c.push(relay.Frame { Op: relay.OpText, Payload: data })
        case gows.BinaryMessage:
            c.push(relay.Frame { Op: relay.OpBinary, Payload: data })
        }
    }
}

// Recv blocks until a new frame was received.
func (c *gwsConn) Recv() (relay.Frame, error) {
    select {
    case frame := <-c.recv:
        return frame, nil
    case <-c.stop:
        return relay.Frame{}, relay.ConnEOF
    }
}

// Send the frame to the remote endpoint, properly synchronizing the
// connection.
func (c *gwsConn) Send(frame relay.Frame) error {
    var mType int

    if !c.isActive() {
        return relay.ConnEOF
    }

    switch frame.Op {
    case relay.OpText:
        mType = gows.TextMessage
    case relay.OpBinary:
        mType = gows.BinaryMessage
    case relay.OpPing:
        mType = gows.PingMessage
    case relay.OpPong:
        mType = gows.PongMessage
    case relay.OpClose:
        mType = gows.CloseMessage
    default:
        // Nothing to send.
        return nil
    }

    c.sendMutex.Lock()
    err := c.conn.WriteMessage(mType, frame.Payload)
    c.sendMutex.Unlock()

    if err != nil {
        c.Close()
        return relay.ConnEOF
    }
    return nil
}

// ping handle received ping frames, forwarding them to the session.
//
// The WebSocket protocol defines that the receiver must respond with a
// pong carrying the same `appData` as received. That reply is issued by
// the session itself, which also uses the ping as a liveness signal, so
// the default handler (which would pong on its own) must be replaced.
func (c *gwsConn) ping(appData string) error {
    c.push(relay.Frame { Op: relay.OpPing, Payload: []byte(appData) })
    return nil
}

// pong handle received pong frames, forwarding them to the session.
func (c *gwsConn) pong(appData string) error {
    c.push(relay.Frame { Op: relay.OpPong, Payload: []byte(appData) })
    return nil
}

// closed handle a received close frame, forwarding it to the session.
//
// The session echoes the close frame back before terminating, so the
// default handler (which would echo it on its own) must be replaced.
func (c *gwsConn) closed(code int, text string) error {
    c.push(relay.Frame {
        Op: relay.OpClose,
        Payload: gows.FormatCloseMessage(code, text),
    })
    return nil
}

// Upgrade a HTTP connection to a Chat Connection.
//
// The supplied `upgrader` is used to upgrade the HTTP request into a
// WebSocket connection. From then on, every received frame, control
// frames included, is surfaced through `Recv`, and the liveness of the
// remote endpoint is left entirely to the session's own heartbeat.
func NewConn(upgrader gows.Upgrader, w http.ResponseWriter,
        req *http.Request) (relay.Conn, error) {

    conn, err := upgrader.Upgrade(w, req, nil)
    if err != nil {
        return nil, err
    }

    c := &gwsConn {
        conn: conn,
        recv: make(chan relay.Frame),
        active: 1,
        stop: make(chan struct{}),
    }
    conn.SetPingHandler(c.ping)
    conn.SetPongHandler(c.pong)
    conn.SetCloseHandler(c.closed)
    go c.read()

    return c, nil
}
