package go_chat_relay

import (
    "io"
    "log"
    "sync"
    "sync/atomic"
    "time"
)

// Default room every session joins on connect.
const defDefaultRoom = "main"

// Default period of the sessions' liveness check.
const defHeartbeatInterval = time.Second * 5

// Default time without any liveness signal after which a client is
// considered gone.
const defClientTimeout = time.Second * 10

// Default capacity of each session's outgoing notification queue.
const defSendQueueSize = 32

// Default capacity of the coordinator's request queue.
const defRequestQueueSize = 64

// ServerConf configure a chat server (and its coordinator).
type ServerConf struct {
    // DefaultRoom joined by every session on connect, and moved back to
    // on a `/leave`.
    DefaultRoom string

    // HeartbeatInterval between two executions of a session's liveness
    // check.
    HeartbeatInterval time.Duration

    // ClientTimeout without any liveness signal after which a session
    // disconnects its client.
    ClientTimeout time.Duration

    // SendQueueSize is the capacity of each session's outgoing
    // notification queue. Notifications are dropped when it's full.
    SendQueueSize int

    // RequestQueueSize is the capacity of the coordinator's inbound
    // request queue.
    RequestQueueSize int

    // Logger used to report events. If this is nil, no message shall be
    // logged!
    Logger *log.Logger

    // Whether debug messages should be logged.
    DebugLog bool
}

// GetDefaultServerConf retrieve the default configurations for the chat
// server, so it may be modified and used to create a new chat server.
func GetDefaultServerConf() ServerConf {
    return ServerConf {
        DefaultRoom: defDefaultRoom,
        HeartbeatInterval: defHeartbeatInterval,
        ClientTimeout: defClientTimeout,
        SendQueueSize: defSendQueueSize,
        RequestQueueSize: defRequestQueueSize,
    }
}

// The public interface of the chat server.
type ChatServer interface {
    io.Closer

    // GetConf retrieve a copy of the server's configuration.
    GetConf() ServerConf

    // Connect hand `conn` over to a new session, spawning a goroutine
    // to handle its frames.
    Connect(conn Conn) error

    // ConnectAndWait hand `conn` over to a new session and block until
    // the connection gets closed.
    ConnectAndWait(conn Conn) error
}

// The chat server: a coordinator plus the bookkeeping of every live
// session, so everything may be torn down on `Close()`.
type server struct {
    // The server's configuration.
    conf ServerConf

    // The coordinator shared by every session.
    coord Coordinator

    // Every currently live session.
    sessions map[*session]struct{}

    // Synchronizes access to sessions.
    sessionMutex sync.Mutex

    // Whether the chat server is currently running.
    running uint32
}

// GetConf retrieve a copy of the server's configuration.
func (s *server) GetConf() ServerConf {
    return s.conf
}

// track a newly connected session.
func (s *server) track(sess *session) {
    s.sessionMutex.Lock()
    s.sessions[sess] = struct{}{}
    s.sessionMutex.Unlock()
}

// untrack a session that closed itself, for whichever reason.
func (s *server) untrack(sess *session) {
    s.sessionMutex.Lock()
    delete(s.sessions, sess)
    s.sessionMutex.Unlock()
}

// connect `conn` to the coordinator, in a new session.
func (s *server) connect(conn Conn) (*session, error) {
    if atomic.LoadUint32(&s.running) == 0 {
        conn.Close()
        return nil, CoordinatorClosed
    }

    sess, err := newSession(s.coord, conn, s.untrack, s.conf)
    if err != nil {
        return nil, err
    }
    s.track(sess)

    return sess, nil
}

// Connect hand `conn` over to a new session.
//
// The session's frames are handled on a new goroutine, so this returns
// as soon as the coordinator registered the session.
//
// On error, `conn` was already closed and must simply be discarded.
func (s *server) Connect(conn Conn) error {
    sess, err := s.connect(conn)
    if err != nil {
        return err
    }

    go sess.run()
    return nil
}

// ConnectAndWait hand `conn` over to a new session and block until the
// connection gets closed.
//
// Differently from `Connect`, this function handles frames from the
// remote client in the calling goroutine. This may be advantageous if
// the external server already spawns a new goroutine to handle each new
// connection.
//
// On error, `conn` was already closed and must simply be discarded.
func (s *server) ConnectAndWait(conn Conn) error {
    sess, err := s.connect(conn)
    if err != nil {
        return err
    }

    sess.run()
    return nil
}

// Close every session and then the coordinator.
//
// This can safely be called multiple times (and from multiple
// goroutines), as it will only run on the first call.
func (s *server) Close() error {
    if atomic.CompareAndSwapUint32(&s.running, 1, 0) {
        s.sessionMutex.Lock()
        list := make([]*session, 0, len(s.sessions))
        for sess := range s.sessions {
            list = append(list, sess)
        }
        s.sessionMutex.Unlock()

        // Closing a session makes it untrack itself, so this must
        // happen outside the mutex.
        for _, sess := range list {
            sess.Close()
        }

        s.coord.Close()
    }

    return nil
}

// NewServerConf create a new chat server from the given configuration.
//
// `NewServerConf()` starts the coordinator's goroutine. To stop it, and
// to disconnect every connected client, call `Close()`.
func NewServerConf(conf ServerConf) ChatServer {
    return &server {
        conf: conf,
        coord: newCoordinator(conf),
        sessions: make(map[*session]struct{}),
        running: 1,
    }
}

// NewServer create a new chat server with the default configuration.
func NewServer() ChatServer {
    return NewServerConf(GetDefaultServerConf())
}
