package go_chat_relay

import (
    "sync/atomic"
    "time"
)

// A simple mock connection, used to test the relay without an actual
// HTTP connection.
//
// Although the session may use the `Conn` API to use this connection,
// tests must access this structure directly to simulate interactions.
//
// To simulate a frame arriving from the client's remote endpoint, push a
// frame with `TestSend`:
//
//     c := NewMockConn()
//     /* Hand the connection over to the server. */
//     c.TestSend(TextFrame("the message"))
//
// On the other hand, to simulate a client receiving a frame, pop one
// with `TestRecv`, which times out instead of hanging the test:
//
//     frame, err := c.TestRecv(time.Second)
type mockConn struct {
    // fromClient simulates incoming frames (from the server's
    // perspective) from the client's remote endpoint. Therefore, tests
    // must push directly to this channel.
    fromClient chan Frame

    // fromServer simulates outgoing frames (from the server's
    // perspective) to the client's remote endpoint. Therefore, tests
    // must read directly from this channel.
    fromServer chan Frame

    // stop signals, by getting closed, that the connection was closed.
    stop chan struct{}

    // Whether the connection is currently running.
    running uint32
}

// isClosed check if the connection is closed.
func (mc *mockConn) isClosed() bool {
    return atomic.LoadUint32(&mc.running) == 0
}

// Close the connection.
//
// This can safely be called multiple times without any issue.
func (mc *mockConn) Close() error {
    if atomic.CompareAndSwapUint32(&mc.running, 1, 0) {
        close(mc.stop)
    }
    return nil
}

// Recv blocks until a new frame was received.
func (mc *mockConn) Recv() (Frame, error) {
    select {
    case frame := <-mc.fromClient:
        return frame, nil
    case <-mc.stop:
        return Frame{}, ConnEOF
    }
}

// Send the frame to the remote endpoint.
func (mc *mockConn) Send(frame Frame) error {
    if mc.isClosed() {
        return ConnEOF
    }

    mc.fromServer <- frame

    return nil
}

// TestSend send a frame from the client to the server.
func (mc *mockConn) TestSend(frame Frame) error {
    if mc.isClosed() {
        return ConnEOF
    }

    select {
    case mc.fromClient <- frame:
        return nil
    case <-mc.stop:
        return ConnEOF
    }
}

// TestRecv wait for `timeout` to receive a frame from the server.
func (mc *mockConn) TestRecv(timeout time.Duration) (Frame, error) {
    select {
    case frame := <-mc.fromServer:
        return frame, nil
    case <-time.After(timeout):
        return Frame{}, TestTimeout
    case <-mc.stop:
        // The connection may have been closed right after a frame was
        // queued, so drain anything still pending before giving up.
        select {
        case frame := <-mc.fromServer:
            return frame, nil
        default:
            return Frame{}, ConnEOF
        }
    }
}

// TestRecvText wait for `timeout` to receive a text frame from the
// server, skipping over any control frame (e.g., the session's pings).
func (mc *mockConn) TestRecvText(timeout time.Duration) (Frame, error) {
    deadline := time.Now().Add(timeout)

    for {
        frame, err := mc.TestRecv(time.Until(deadline))
        if err != nil {
            return Frame{}, err
        } else if frame.Op == OpText {
            return frame, nil
        }
    }
}

// NewMockConn create a dummy, mock connection that may be used in tests.
func NewMockConn() *mockConn {
    return &mockConn {
        fromClient: make(chan Frame),
        fromServer: make(chan Frame, 100),
        stop: make(chan struct{}),
        running: 1,
    }
}
