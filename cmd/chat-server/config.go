package main

import (
    "github.com/kelseyhightower/envconfig"
    "log"
)

// Config for the chat-server, read from `CHAT_`-prefixed environment
// variables (e.g., `CHAT_PORT`).
type Config struct {
    // Port on which the server will accept connections. Required.
    Port int `required:"true"`
    // IP on which the server will accept connections. Defaults to 0.0.0.0
    IP string `default:"0.0.0.0"`
    // ReadSize allocated for gorilla-ws's buffer when a new connection is accepted. Defaults to 1024
    ReadSize int `default:"1024"`
    // WriteSize allocated for gorilla-ws's buffer when a new connection is accepted. Defaults to 1024
    WriteSize int `default:"1024"`
    // IgnoreOrigin and accept connections from any source (mostly for development)
    IgnoreOrigin bool `default:"true"`
    // DebugLog every request handled by the coordinator and the sessions.
    DebugLog bool `default:"false"`
}

// parseConfig from the environment. Any missing or invalid required
// variable is fatal, so the process exits before ever listening.
func parseConfig() Config {
    var cfg Config

    err := envconfig.Process("chat", &cfg)
    if err != nil {
        log.Fatalf("Couldn't parse the configuration: %+v", err)
    }

    log.Printf("Starting server with options:")
    log.Printf("  - IP: %+v", cfg.IP)
    log.Printf("  - Port: %+v", cfg.Port)
    log.Printf("  - ReadSize: %+v", cfg.ReadSize)
    log.Printf("  - WriteSize: %+v", cfg.WriteSize)
    log.Printf("  - IgnoreOrigin: %+v", cfg.IgnoreOrigin)
    log.Printf("  - DebugLog: %+v", cfg.DebugLog)

    return cfg
}
