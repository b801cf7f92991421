package go_chat_relay

// Error type for this package.
type ChatError uint

const (
    // The connection to the remote endpoint was closed.
    ConnEOF ChatError = iota
    // The coordinator was closed and cannot take any more requests.
    CoordinatorClosed
    // The session was closed.
    SessionClosed
    // A mock connection didn't receive anything in a timely manner.
    TestTimeout
)

func (c ChatError) Error() string {
    switch c {
    case ConnEOF:
        return "Connection closed"
    case CoordinatorClosed:
        return "Coordinator closed"
    case SessionClosed:
        return "Session closed"
    case TestTimeout:
        return "Timed out waiting for a test message"
    default:
        return "Unknown error"
    }
}
