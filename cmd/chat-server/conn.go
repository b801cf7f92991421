package main

import (
    relay "github.com/SirGFM/go-chat-relay"
    relay_ws "github.com/SirGFM/go-chat-relay/gorilla-ws-conn"
    gows "github.com/gorilla/websocket"
    "net/http"
)

// Upgrade a HTTP connection to a Chat Connection.
func newConn(w http.ResponseWriter, req *http.Request) (relay.Conn, error) {
    return relay_ws.NewConn(upgrader, w, req)
}

var upgrader gows.Upgrader

func ignoreOrigin(r *http.Request) bool {
    return true
}

func setUpgrader(cfg Config) {
    upgrader = gows.Upgrader {
        ReadBufferSize:  cfg.ReadSize,
        WriteBufferSize: cfg.WriteSize,
    }
    if cfg.IgnoreOrigin {
        upgrader.CheckOrigin = ignoreOrigin
    }
}
