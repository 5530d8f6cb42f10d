// Package obs provides the control client for OBS Studio instances.
//
// The Client interface is the capability the watchdog and the manual
// command surface depend on: connect, verify, start/stop streaming and
// recording, and query status. WebSocketClient implements it over the
// obs-websocket v5 protocol (the plugin bundled with OBS 28+), configured
// per instance by port and password.
//
// The client is deliberately pessimistic: IsConnected performs a live
// round-trip rather than trusting a cached flag, and every transport
// error tears down the connection so the next probe observes it.
package obs
