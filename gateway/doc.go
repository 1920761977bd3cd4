// Package gateway maintains the websocket connection to the platform
// event stream. It owns the dial/handshake sequence, the heartbeat
// watchdog that detects silent connection death, and the reconnect loop
// with exponential backoff.
//
// A failed handshake is reported as a *HandshakeError value so callers
// can inspect the HTTP status the upgrade died with. After the first
// successful open the session keeps itself connected until Close.
package gateway
