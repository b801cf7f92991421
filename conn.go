package go_chat_relay

import (
    "io"
)

// FrameOp identify the kind of a frame exchanged with the remote client.
type FrameOp uint8

const (
    // OpNone is an empty frame that carries no information at all. It
    // should simply be ignored.
    OpNone FrameOp = iota
    // OpText carries an UTF-8 payload, either a chat message or a
    // slash-prefixed command.
    OpText
    // OpBinary carries an opaque payload.
    OpBinary
    // OpContinuation is the continuation of a fragmented frame. The relay
    // does not accept fragmented frames.
    OpContinuation
    // OpPing requests a OpPong carrying the same payload.
    OpPing
    // OpPong answers a previously sent OpPing.
    OpPong
    // OpClose announces that the remote endpoint is going away.
    OpClose
)

// String return a human readable name for the operation, for logging.
func (op FrameOp) String() string {
    switch op {
    case OpNone:
        return "none"
    case OpText:
        return "text"
    case OpBinary:
        return "binary"
    case OpContinuation:
        return "continuation"
    case OpPing:
        return "ping"
    case OpPong:
        return "pong"
    case OpClose:
        return "close"
    default:
        return "unknown"
    }
}

// Frame is a single message received from, or sent to, the remote client.
type Frame struct {
    // Op describe how the frame's `Payload` should be interpreted.
    Op FrameOp

    // Payload carried by the frame. May be empty.
    Payload []byte
}

// TextFrame build a text frame from `msg`.
func TextFrame(msg string) Frame {
    return Frame {
        Op: OpText,
        Payload: []byte(msg),
    }
}

// Conn is a generic interface for exchanging frames with a remote client.
//
// Differently from a message-oriented connection, a `Conn` must surface
// control frames (ping, pong and close) to the caller, as the session
// tracks the client's liveness based on those.
type Conn interface {
    io.Closer

    // Recv blocks until a new frame was received.
    //
    // Once the connection is closed, `Recv` must fail with `ConnEOF`.
    // Any other error is treated as a transport fault and terminates
    // the session.
    Recv() (Frame, error)

    // Send the frame to the remote endpoint.
    //
    // `Send` may be called concurrently to `Recv`, but the `Conn` itself
    // is responsible for synchronizing concurrent `Send`s.
    Send(frame Frame) error
}
