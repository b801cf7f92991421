package main

import (
    "log"
    "os"
    "os/signal"
    "syscall"
)

// startServer and configure its signal handler.
//
// The server runs until it receives either an interrupt or a SIGTERM,
// upon which every connected client is disconnected and the process
// exits cleanly.
func startServer() {
    cfg := parseConfig()

    intHndlr := make(chan os.Signal, 1)
    signal.Notify(intHndlr, os.Interrupt, syscall.SIGTERM)

    closer := runWeb(cfg)

    sig := <-intHndlr
    log.Printf("Got %+v, exiting...", sig)
    closer.Close()
}

func main() {
    log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)

    defer func() {
        if r := recover(); r != nil {
            log.Fatalf("Application panicked! %+v", r)
        }
    } ()

    startServer()
}
