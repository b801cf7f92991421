package main

import (
    "fmt"
    relay "github.com/SirGFM/go-chat-relay"
    "io"
    "log"
    "net/http"
    "net/url"
    "path"
)

type server struct {
    // The server's HTTP server
    httpServer *http.Server
    // The chat relay
    chat relay.ChatServer
}

// ServeHTTP is called by Go's http package whenever a new HTTP request arrives
func (s *server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
    uri := cleanURL(req.URL)
    log.Printf("%s - %s - %s", req.RemoteAddr, req.Method, uri)

    if uri == "chat_page" || uri == "" {
        serveChatPage(w)
    } else if uri == "chat" {
        // Upgrade to websocket
        conn, err := newConn(w, req)
        if err != nil {
            httpTextReply(http.StatusInternalServerError, fmt.Sprintf("Couldn't upgrade the connection: %+v", err), w)
            log.Printf("%s - %s - %s [500]", req.RemoteAddr, req.Method, uri)
            return
        }

        // On success, the upgraded request will be handled by the relay
        err = s.chat.ConnectAndWait(conn)
        if err != nil {
            // Can't do HTTP anymore as the connection was upgraded to a websocket
            log.Printf("%s - %s - %s - Couldn't connect to the relay: %+v", req.RemoteAddr, req.Method, uri, err)
        }
    } else {
        httpTextReply(http.StatusNotFound, "404 - Nothing to see here...", w)
        log.Printf("%s - %s - %s [404]", req.RemoteAddr, req.Method, uri)
    }
}

// cleanURL so everything is properly escaped/encoded and so it may be split into each of its components.
//
// Use `url.Unescape` to retrieve the unescaped path, if so desired.
func cleanURL(uri *url.URL) string {
    // Normalize and strip the URL from its leading prefix (and slash)
    resUrl := path.Clean(uri.EscapedPath())
    if len(resUrl) > 0 && resUrl[0] == '/' {
        resUrl = resUrl[1:]
    } else if len(resUrl) == 1 && resUrl[0] == '.' {
        // Clean converts an empty path into a single "."
        resUrl = ""
    }

    return resUrl
}

// httpTextReply send a simple HTTP response as a plain text.
func httpTextReply(status int, msg string, w http.ResponseWriter) {
    w.Header().Set("Content-Type", "text/plain")
    w.WriteHeader(status)

    for data := []byte(msg); len(data) > 0; {
        n, err := w.Write(data)
        if err != nil {
            log.Printf("Failed to send %d: %+v", status, err)
            return
        }
        data = data[n:]
    }
}

// Close the running web server and clean up resourcers
func (s *server) Close() error {
    if s.httpServer != nil {
        s.httpServer.Close()
        s.httpServer = nil
    }
    if s.chat != nil {
        s.chat.Close()
        s.chat = nil
    }

    return nil
}

// runWeb server into a goroutine
func runWeb(cfg Config) io.Closer {
    var srv server

    srv.httpServer = &http.Server {
        Addr: fmt.Sprintf("%s:%d", cfg.IP, cfg.Port),
        Handler: &srv,
    }

    conf := relay.GetDefaultServerConf()
    conf.Logger = log.Default()
    conf.DebugLog = cfg.DebugLog
    srv.chat = relay.NewServerConf(conf)
    setUpgrader(cfg)

    go func() {
        log.Printf("Waiting...")
        srv.httpServer.ListenAndServe()
    } ()

    return &srv
}
