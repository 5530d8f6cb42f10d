package obs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// defaultTimeout bounds dialing and each request round-trip.
const defaultTimeout = 5 * time.Second

// Logger defines the logging interface for the WebSocket client.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// WebSocketClient is a Client implementation speaking obs-websocket
// protocol v5 over a gorilla WebSocket connection.
//
// Requests are synchronous: one in-flight request at a time, serialized on
// an internal mutex. That matches how the watchdog and the manual command
// surface use the client (short-blocking probes and commands), and keeps
// failure handling simple: any transport error drops the connection, and
// the next IsConnected probe reports false.
//
// Thread Safety: all methods are safe for concurrent use.
type WebSocketClient struct {
	host     string
	port     int
	password string
	timeout  time.Duration
	logger   Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketClient creates a control client for one OBS instance.
// The connection is not established until Connect is called.
func NewWebSocketClient(host string, port int, password string) *WebSocketClient {
	return &WebSocketClient{
		host:     host,
		port:     port,
		password: password,
		timeout:  defaultTimeout,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *WebSocketClient) SetLogger(logger Logger) {
	c.logger = logger
}

// SetTimeout overrides the per-operation timeout.
func (c *WebSocketClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Connect dials the instance and completes the Hello/Identify handshake.
//
// Failure is the routine outcome while the instance is down and is
// reported as ErrConnectFailed; a rejected handshake (wrong password) is
// ErrAuthFailed. An existing connection is dropped first, so Connect also
// serves as reconnect.
func (c *WebSocketClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()

	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", c.host, c.port)}
	dialer := websocket.Dialer{
		HandshakeTimeout: c.timeout,
		Subprotocols:     []string{"obswebsocket.json"},
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	if err := c.identify(conn); err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.logger.Debug("connected to OBS", "host", c.host, "port", c.port)
	return nil
}

// identify performs the Hello (op 0) / Identify (op 1) / Identified (op 2)
// exchange on a fresh connection.
func (c *WebSocketClient) identify(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(c.timeout)) //nolint:errcheck // deadline errors surface on the read

	var helloEnv envelope
	if err := conn.ReadJSON(&helloEnv); err != nil {
		return fmt.Errorf("%w: reading hello: %v", ErrConnectFailed, err)
	}
	if helloEnv.Op != opHello {
		return fmt.Errorf("%w: expected hello, got op %d", ErrConnectFailed, helloEnv.Op)
	}

	var hello helloData
	if err := json.Unmarshal(helloEnv.D, &hello); err != nil {
		return fmt.Errorf("%w: decoding hello: %v", ErrConnectFailed, err)
	}

	identify := identifyData{RPCVersion: rpcVersion}
	if hello.Authentication != nil {
		identify.Authentication = authResponse(c.password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}

	if err := writeEnvelope(conn, opIdentify, identify, c.timeout); err != nil {
		return fmt.Errorf("%w: sending identify: %v", ErrConnectFailed, err)
	}

	conn.SetReadDeadline(time.Now().Add(c.timeout)) //nolint:errcheck // deadline errors surface on the read

	var identifiedEnv envelope
	if err := conn.ReadJSON(&identifiedEnv); err != nil {
		// The server closes the socket on a bad authentication string.
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if identifiedEnv.Op != opIdentified {
		return fmt.Errorf("%w: expected identified, got op %d", ErrAuthFailed, identifiedEnv.Op)
	}

	return nil
}

// writeEnvelope marshals and sends one protocol frame with a deadline.
func writeEnvelope(conn *websocket.Conn, op int, d any, timeout time.Duration) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(envelope{Op: op, D: payload})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(timeout)) //nolint:errcheck // deadline errors surface on the write
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Disconnect closes the control connection. Safe to call when already
// disconnected.
func (c *WebSocketClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// closeLocked closes and clears the connection. Callers hold c.mu.
func (c *WebSocketClient) closeLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// IsConnected actively verifies the connection with a GetVersion
// round-trip. Any failure drops the connection and reports false.
func (c *WebSocketClient) IsConnected() bool {
	_, err := c.request(reqGetVersion, nil)
	if err != nil {
		c.logger.Debug("connection probe failed", "host", c.host, "port", c.port, "error", err)
		return false
	}
	return true
}

// StartStreaming starts the stream output.
func (c *WebSocketClient) StartStreaming() error {
	_, err := c.request(reqStartStream, nil)
	return err
}

// StopStreaming stops the stream output.
func (c *WebSocketClient) StopStreaming() error {
	_, err := c.request(reqStopStream, nil)
	return err
}

// StartRecording starts the record output.
func (c *WebSocketClient) StartRecording() error {
	_, err := c.request(reqStartRecord, nil)
	return err
}

// StopRecording stops the record output.
func (c *WebSocketClient) StopRecording() error {
	_, err := c.request(reqStopRecord, nil)
	return err
}

// Status reports connected/streaming/recording, recomputed from live
// queries. Output queries degrade to false on any failure.
func (c *WebSocketClient) Status() Status {
	var status Status

	if !c.IsConnected() {
		return status
	}
	status.Connected = true
	status.Streaming = c.outputActive(reqGetStreamStatus)
	status.Recording = c.outputActive(reqGetRecordStatus)
	return status
}

// outputActive queries one output status request and returns its active
// flag, defaulting to false on any failure.
func (c *WebSocketClient) outputActive(requestType string) bool {
	raw, err := c.request(requestType, nil)
	if err != nil {
		return false
	}
	var out outputStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("malformed output status", "request", requestType, "error", err)
		return false
	}
	return out.OutputActive
}

// request performs one synchronous request/response round-trip.
//
// Incoming frames that are not the matching response (stray events, other
// ops) are skipped. Any transport error tears down the connection so the
// next probe observes the disconnect.
func (c *WebSocketClient) request(requestType string, body any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	id := uuid.NewString()
	req := requestData{
		RequestType: requestType,
		RequestID:   id,
		RequestData: body,
	}

	if err := writeEnvelope(c.conn, opRequest, req, c.timeout); err != nil {
		c.closeLocked()
		return nil, fmt.Errorf("%w: %s: %v", ErrRequestFailed, requestType, err)
	}

	deadline := time.Now().Add(c.timeout)
	for {
		c.conn.SetReadDeadline(deadline) //nolint:errcheck // deadline errors surface on the read

		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.closeLocked()
			return nil, fmt.Errorf("%w: %s: %v", ErrRequestFailed, requestType, err)
		}
		if env.Op != opRequestResponse {
			continue
		}

		var resp responseData
		if err := json.Unmarshal(env.D, &resp); err != nil {
			c.closeLocked()
			return nil, fmt.Errorf("%w: %s: %v", ErrRequestFailed, requestType, err)
		}
		if resp.RequestID != id {
			continue
		}

		if !resp.RequestStatus.Result {
			return nil, fmt.Errorf("%w: %s: code %d %s",
				ErrRequestFailed, requestType, resp.RequestStatus.Code, resp.RequestStatus.Comment)
		}
		return resp.ResponseData, nil
	}
}
