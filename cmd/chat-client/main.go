package main

import (
    "bufio"
    "encoding/json"
    "fmt"
    relay "github.com/SirGFM/go-chat-relay"
    relay_ws "github.com/SirGFM/go-chat-relay/gobwas-ws-conn"
    "github.com/gobwas/ws"
    "log"
    "net"
    "net/url"
    "os"
    "os/signal"
)

// readInput forward each line typed by the user as a text frame, either
// a chat message or a slash-prefixed command (/name, /join, /leave,
// /list or /get-info).
func readInput(conn relay.Conn) {
    in := bufio.NewScanner(os.Stdin)
    for in.Scan() {
        msg := in.Text()
        if len(msg) == 0 {
            continue
        }

        err := conn.Send(relay.TextFrame(msg))
        if err != nil {
            return
        }
    }
}

// show a notification received from the relay.
func show(payload []byte) {
    var n relay.Notification

    err := json.Unmarshal(payload, &n)
    if err != nil {
        log.Printf("Couldn't decode a notification: %+v", err)
        return
    }

    if n.SetInfo != nil {
        fmt.Printf("-- you are '%s', talking on '%s'\n", n.SetInfo[0], n.SetInfo[1])
    } else if n.SenderType == relay.SenderUser {
        fmt.Printf("%s: %s\n", n.SenderName, n.Message)
    } else {
        fmt.Printf("-- %s\n", n.Message)
    }
}

func main() {
    log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)

    if len(os.Args) != 2 {
        log.Fatalf("Usage: %s host:port", os.Args[0])
    }
    addr := os.Args[1]

    uri, err := url.ParseRequestURI(fmt.Sprintf("ws://%s/chat", addr))
    if err != nil {
        log.Fatalf("Couldn't parse the URL: %+v", err)
    }

    tcpConn, err := net.Dial("tcp", addr)
    if err != nil {
        log.Fatalf("Couldn't connect: %+v", err)
    }

    _, _, err = ws.DefaultDialer.Upgrade(tcpConn, uri)
    if err != nil {
        log.Fatalf("Failed to upgrade: %+v", err)
    }

    conn := relay_ws.NewClientConn(tcpConn)
    defer conn.Close()

    intHndlr := make(chan os.Signal, 1)
    signal.Notify(intHndlr, os.Interrupt)

    go func() {
        <-intHndlr
        log.Printf("Exiting...")
        conn.Send(relay.Frame { Op: relay.OpClose })
        conn.Close()
    } ()

    go readInput(conn)

    for {
        frame, err := conn.Recv()
        if err != nil {
            log.Printf("Disconnected from the relay")
            return
        }

        switch frame.Op {
        case relay.OpText:
            show(frame.Payload)
        case relay.OpPing:
            err := conn.Send(relay.Frame { Op: relay.OpPong, Payload: frame.Payload })
            if err != nil {
                log.Printf("Couldn't pong: %+v", err)
                return
            }
        case relay.OpClose:
            log.Printf("Server closed the connection")
            return
        }
    }
}
