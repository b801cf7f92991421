package go_chat_relay

import (
    "encoding/json"
    "github.com/google/uuid"
    "log"
    "strings"
    "sync/atomic"
    "time"
)

// session represent a single live connection: its identity, its liveness
// timer and its protocol handling.
//
// A session starts with a locally generated placeholder id, which gets
// overwritten by the coordinator-assigned one as soon as the blocking
// connect request returns. Frames are handled one at a time, in arrival
// order, but the liveness timer runs concurrently to frame handling and
// may report a disconnect on its own. That's fine, as disconnecting is
// idempotent at the coordinator.
type session struct {
    // The session's id. Replaced by the coordinator's on connect.
    id uuid.UUID

    // coord receives every request issued by this session.
    coord Coordinator

    // The connection to the session's remote endpoint.
    conn Conn

    // defaultRoom to move back to on a `/leave`.
    defaultRoom string

    // timeout after which, without any liveness signal from the remote
    // endpoint, the session considers the client gone.
    timeout time.Duration

    // last liveness signal from the remote endpoint, as unix
    // nanoseconds. Accessed atomically, as the liveness timer and the
    // frame handler run on different goroutines.
    last int64

    // recv notifications queued by the coordinator, pending delivery to
    // the remote endpoint. The coordinator never blocks on this queue:
    // if it's full, or if the session terminated, the notification is
    // silently dropped.
    recv chan *Notification

    // tick drives the recurring liveness check.
    tick *time.Ticker

    // Whether the session is currently running.
    running uint32

    // stop signals, by getting closed, that the session should stop.
    stop chan struct{}

    // onClose optionally reports the session's termination, so the
    // server may drop its bookkeeping.
    onClose func(s *session)

    // logger used by the session to report events. If this is nil, no
    // message shall be logged!
    logger *log.Logger

    // Whether debug messages should be logged.
    debugLog bool
}

// isRunning check if the session is still running.
func (s *session) isRunning() bool {
    return atomic.LoadUint32(&s.running) == 1
}

// touch record that the remote endpoint just gave a liveness signal.
func (s *session) touch() {
    atomic.StoreInt64(&s.last, time.Now().UnixNano())
}

// lastAlive retrieve the time of the last liveness signal.
func (s *session) lastAlive() time.Time {
    return time.Unix(0, atomic.LoadInt64(&s.last))
}

// Deliver queue the notification for the remote endpoint.
//
// Delivery is best-effort: if the session already terminated, or if the
// outgoing queue is full, the notification is dropped.
func (s *session) Deliver(n *Notification) {
    if !s.isRunning() {
        return
    }

    // The session's id may still be getting assigned at this point, so
    // it must not be logged here.
    select {
    case s.recv <- n:
    default:
        if s.logger != nil {
            s.logger.Printf("[ERROR] go-chat-relay/session: Dropping notification on full queue.")
        }
    }
}

// write notifications queued by the coordinator to the remote endpoint,
// one text frame per notification.
//
// Should encoding a notification fail, an empty text frame is written in
// its place, so the client at least observes that something was sent.
func (s *session) write() {
    for {
        select {
        case <-s.stop:
            return
        case n := <-s.recv:
            data, err := json.Marshal(n)
            if err != nil {
                if s.logger != nil {
                    s.logger.Printf("[ERROR] go-chat-relay/session: Couldn't encode a notification: %+v",
                            err)
                }
                data = nil
            }

            err = s.conn.Send(Frame { Op: OpText, Payload: data })
            if err != nil {
                s.Close()
                return
            }
        }
    }
}

// checkAlive run the recurring liveness check.
//
// On every tick, if the remote endpoint went silent for longer than the
// session's timeout, the session reports its own disconnection and
// stops. Otherwise, a ping is sent to provoke a liveness signal.
func (s *session) checkAlive() {
    for s.isRunning() {
        select {
        case <-s.stop:
            return
        case <-s.tick.C:
            if time.Since(s.lastAlive()) > s.timeout {
                if s.logger != nil {
                    s.logger.Printf("[INFO] go-chat-relay/session: Disconnecting unresponsive client.\n\tid: \"%s\"",
                            s.id)
                }
                s.Close()
                return
            }

            err := s.conn.Send(Frame { Op: OpPing })
            if err != nil {
                s.Close()
                return
            }
        }
    }
}

// run wait for frames from the remote endpoint and handle each one in
// arrival order, until the connection fails or the session stops.
func (s *session) run() {
    defer s.Close()

    for s.isRunning() {
        frame, err := s.conn.Recv()
        if err != nil {
            if err != ConnEOF && s.logger != nil {
                s.logger.Printf("[ERROR] go-chat-relay/session: Transport fault.\n\tid: \"%s\"\n\terror: %+v",
                        s.id, err)
            }
            return
        }

        if !s.handleFrame(frame) {
            return
        }
    }
}

// handleFrame dispatch a single received frame, reporting whether the
// session should keep running.
func (s *session) handleFrame(frame Frame) bool {
    switch frame.Op {
    case OpText:
        s.handleText(string(frame.Payload))
    case OpBinary:
        // Binary payloads aren't relayed, simply echo them back.
        err := s.conn.Send(frame)
        if err != nil {
            return false
        }
    case OpContinuation:
        // Fragmented frames aren't accepted at all.
        if s.logger != nil {
            s.logger.Printf("[ERROR] go-chat-relay/session: Received a continuation frame.\n\tid: \"%s\"",
                    s.id)
        }
        return false
    case OpPing:
        s.touch()
        err := s.conn.Send(Frame { Op: OpPong, Payload: frame.Payload })
        if err != nil {
            return false
        }
    case OpPong:
        s.touch()
    case OpClose:
        s.conn.Send(frame)
        return false
    case OpNone:
        /* Do nothing */
    }

    return true
}

// handleText interpret a received text frame, either forwarding it as a
// chat message or dispatching it as a slash-prefixed command.
//
// A command is split into at most two tokens at its first space, the
// second token being the command's argument.
func (s *session) handleText(msg string) {
    if s.debugLog && s.logger != nil {
        s.logger.Printf("[DEBUG] go-chat-relay/session: Text received.\n\tid: \"%s\"\n\tmessage: \"%s\"",
                s.id, msg)
    }

    if !strings.HasPrefix(msg, "/") {
        s.coord.ClientMessage(s.id, msg)
        return
    }

    var arg string
    tokens := strings.SplitN(msg, " ", 2)
    if len(tokens) == 2 {
        arg = tokens[1]
    }

    switch tokens[0] {
    case "/name":
        if len(arg) == 0 {
            s.coord.Error(s.id, "Invalid Argument", arg)
            return
        }
        s.coord.Rename(s.id, arg)
    case "/leave":
        s.coord.Join(s.id, s.defaultRoom)
    case "/join":
        if len(arg) == 0 {
            s.coord.Error(s.id, "Invalid Argument", arg)
            return
        }
        s.coord.Join(s.id, arg)
    case "/list":
        s.coord.ListRooms(s.id)
    case "/get-info":
        s.coord.GetInfo(s.id)
    default:
        s.coord.Error(s.id, "Unknown Command", tokens[0])
    }
}

// Close the session, its connection and its goroutines, reporting the
// disconnection to the coordinator.
//
// This can safely be called multiple times (and from multiple
// goroutines), as it will only run on the first call. Therefore, the
// coordinator is told about the disconnection exactly once, whichever
// the reason for the session's termination.
func (s *session) Close() error {
    if atomic.CompareAndSwapUint32(&s.running, 1, 0) {
        s.tick.Stop()
        close(s.stop)
        s.conn.Close()
        s.coord.Disconnect(s.id)

        if s.onClose != nil {
            s.onClose(s)
        }
    }

    return nil
}

// newSession create a new session over `conn` and register it with
// `coord`, blocking until the coordinator assigned the session its id.
//
// On success, two goroutines are started: one delivering the
// coordinator's notifications to the remote endpoint and one running the
// recurring liveness check. Frames are *not* handled until the caller
// runs `s.run()`, either directly or on a new goroutine.
//
// On failure, `conn` is closed and no goroutine is left behind.
func newSession(coord Coordinator, conn Conn, onClose func(s *session),
        conf ServerConf) (*session, error) {

    s := &session {
        id: uuid.New(),
        coord: coord,
        conn: conn,
        defaultRoom: conf.DefaultRoom,
        timeout: conf.ClientTimeout,
        recv: make(chan *Notification, conf.SendQueueSize),
        tick: time.NewTicker(conf.HeartbeatInterval),
        running: 1,
        stop: make(chan struct{}),
        onClose: onClose,
        logger: conf.Logger,
        debugLog: conf.DebugLog,
    }
    s.touch()

    id, err := coord.Connect(s)
    if err != nil {
        s.tick.Stop()
        conn.Close()
        return nil, err
    }
    s.id = id

    go s.write()
    go s.checkAlive()

    return s, nil
}
