/*
Package go_chat_relay implements a connection-agnostic, room-based chat
relay.

The relay is divided into three components:

 - `Coordinator`: The single authority over users and room membership
 - `session`: One instance per live connection (never exported by the API)
 - `Conn`: A frame-oriented connection to the remote client

The `Coordinator` owns every piece of shared state: the registry of
connected sessions and the room membership table. It never touches the
network itself. Instead, sessions queue typed requests onto the
coordinator's single inbound channel, and a single goroutine applies them
strictly in arrival order. Since that goroutine is the only thing reading
or writing the registry, no locking is needed and no session ever
observes a partially applied join, leave or rename.

Each session, in turn, runs the per-connection work: it parses incoming
frames, answers pings, checks the client's liveness every few seconds
and renders the coordinator's notifications back onto the transport as
JSON text frames. The only blocking request is the initial connect, on
which the session waits for its coordinator-assigned id.

The first step to start a relay is to instantiate the server through
`NewServer` or `NewServerConf`. The second should be the preferred
variant, as it's the one that allows customization:

    conf := go_chat_relay.GetDefaultServerConf()
    // Modify 'conf' as desired
    server := go_chat_relay.NewServerConf(conf)

Then, each accepted client must be wrapped in something that implements
the `Conn` interface and handed over to the server. `conn_test.go`
implements `mockConn`, which uses channels to exchange frames. For real
clients, the sub-packages `gorilla-ws-conn` and `gobwas-ws-conn`
implement `Conn` over a WebSocket connection. The session is started by
calling either `Connect`, which spawns a goroutine to handle the
client's frames, or `ConnectAndWait`, which blocks until the `Conn` gets
closed. This second option may be useful if the server already spawns a
goroutine to handle each request.

    var conn Conn
    err := server.ConnectAndWait(conn)
    if err != nil {
        // Handle the error
    }

From this point onward, the client is a user in the default room. Text
frames that start with a '/' are interpreted as commands ('/name',
'/join', '/leave', '/list' and '/get-info'), and everything else is
broadcast to every user in the sender's room, the sender included. Each
delivered notification is a JSON object:

    { "message": "hi", "sender_type": "user",
      "sender_name": "some-user", "set_info": null }

`sender_type` is "user" for relayed chat, "system" for server notices
and "error" for rejected commands. `set_info`, when not null, is the
`[name, room]` pair of the receiving user, sent whenever its identity or
room changes (and on '/get-info').
*/
package go_chat_relay
