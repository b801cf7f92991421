package go_chat_relay

import (
    "encoding/json"
    "testing"
    "time"
)

// TestServerConf check whether the server is correctly configured.
func TestServerConf(t *testing.T) {
    const defaultRoom = "hall"
    const heartbeatInterval = time.Millisecond * 250
    const clientTimeout = time.Millisecond * 600

    conf := GetDefaultServerConf()
    conf.DefaultRoom = defaultRoom
    conf.HeartbeatInterval = heartbeatInterval
    conf.ClientTimeout = clientTimeout

    s := NewServerConf(conf)
    defer s.Close()

    retrieved := s.GetConf()
    if want, got := defaultRoom, retrieved.DefaultRoom; want != got {
        t.Errorf("Invalid DefaultRoom retrieved: expected '%s' but got '%s'", want, got)
    } else if want, got := heartbeatInterval, retrieved.HeartbeatInterval; want != got {
        t.Errorf("Invalid HeartbeatInterval retrieved: expected '%d' but got '%d'", want, got)
    } else if want, got := clientTimeout, retrieved.ClientTimeout; want != got {
        t.Errorf("Invalid ClientTimeout retrieved: expected '%d' but got '%d'", want, got)
    }
}

// TestServerDefaultRoom check that the configured room, instead of the
// default one, is joined on connect.
func TestServerDefaultRoom(t *testing.T) {
    conf := GetDefaultServerConf()
    conf.DefaultRoom = "hall"

    s := NewServerConf(conf)
    defer s.Close()

    mc := NewMockConn()
    err := s.Connect(mc)
    if err != nil {
        t.Errorf("Couldn't connect: %+v", err)
    }

    // Skip the join notice and check the snapshot's room.
    _, err = mc.TestRecvText(time.Second)
    if err != nil {
        t.Errorf("Couldn't receive the join notice: %+v", err)
    }
    frame, err := mc.TestRecvText(time.Second)
    if err != nil {
        t.Errorf("Couldn't receive the snapshot: %+v", err)
    }

    var n Notification
    err = json.Unmarshal(frame.Payload, &n)
    if err != nil {
        t.Errorf("Couldn't decode the snapshot: %+v", err)
    } else if n.SetInfo == nil {
        t.Errorf("Expected a snapshot but got '%s'", frame.Payload)
    } else if want, got := "hall", n.SetInfo[1]; want != got {
        t.Errorf("Invalid room joined: expected '%s' but got '%s'", want, got)
    }
}

// TestServerClose check that closing the server tears down every
// session and rejects new connections.
func TestServerClose(t *testing.T) {
    s := NewServerConf(GetDefaultServerConf())

    mc := NewMockConn()
    err := s.Connect(mc)
    if err != nil {
        t.Errorf("Couldn't connect: %+v", err)
    }

    s.Close()

    // The connection must get closed in a timely manner.
    deadline := time.Now().Add(time.Second)
    for !mc.isClosed() && time.Now().Before(deadline) {
        time.Sleep(time.Millisecond * 5)
    }
    if !mc.isClosed() {
        t.Error("The connection wasn't closed alongside the server")
    }

    // And new connections must be rejected.
    other := NewMockConn()
    err = s.Connect(other)
    if err == nil {
        t.Error("Successfully connected to a closed server")
    } else if got, ok := err.(ChatError); !ok {
        t.Errorf("Invalid error! Expected a 'ChatError' but got '%+v'", err)
    } else if want := CoordinatorClosed; want != got {
        t.Errorf("Invalid error! Expected '%+v' but got '%+v'", want, got)
    }
    if !other.isClosed() {
        t.Error("The rejected connection wasn't closed")
    }
}

// TestServerConnectAndWait check that the blocking connect variant only
// returns once the connection gets closed.
func TestServerConnectAndWait(t *testing.T) {
    s := NewServerConf(GetDefaultServerConf())
    defer s.Close()

    mc := NewMockConn()
    done := make(chan struct{})
    go func() {
        err := s.ConnectAndWait(mc)
        if err != nil {
            t.Errorf("Couldn't connect: %+v", err)
        }
        close(done)
    } ()

    select {
    case <-done:
        t.Error("ConnectAndWait returned with the connection still open")
    case <-time.After(time.Millisecond * 50):
    }

    mc.TestSend(Frame { Op: OpClose })

    select {
    case <-done:
    case <-time.After(time.Second):
        t.Error("ConnectAndWait didn't return after the connection closed")
    }
}
