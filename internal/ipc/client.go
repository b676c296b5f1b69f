// Package ipc provides client implementation for daemon-client communication.
//
// The client supports:
// - Automatic connection and reconnection
// - Request/response pattern with timeouts
// - Event streaming for lifecycle notifications
// - Thread-safe operations
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Common errors
var (
	ErrNotConnected     = errors.New("not connected to daemon")
	ErrConnectionLost   = errors.New("connection to daemon lost")
	ErrTimeout          = errors.New("request timeout")
	ErrDaemonNotRunning = errors.New("daemon is not running")
)

// IPCClient is the client for communicating with the keyremapd daemon.
type IPCClient struct {
	mu         sync.RWMutex
	conn       net.Conn
	socketPath string
	version    string
	permission PermissionLevel

	connected    atomic.Bool
	reconnecting atomic.Bool

	pending   map[uint32]chan *Message
	pendingMu sync.Mutex
	nextReqID atomic.Uint32

	eventChan    chan *Event
	eventHandler EventHandler
	eventMu      sync.RWMutex

	autoReconnect bool
	reconnectWait time.Duration
	maxReconnect  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	config ClientConfig
}

// ClientConfig configures the IPC client
type ClientConfig struct {
	SocketPath     string
	ClientName     string
	ClientVersion  string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	AutoReconnect  bool
	ReconnectWait  time.Duration
	MaxReconnect   int
}

// DefaultClientConfig returns sensible defaults for a socket rooted at
// runtimeDir.
func DefaultClientConfig(runtimeDir string) ClientConfig {
	return ClientConfig{
		SocketPath:     filepath.Join(runtimeDir, "keyremapd.sock"),
		ClientName:     "keyremapctl",
		ClientVersion:  "1.0.0",
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 30 * time.Second,
		AutoReconnect:  true,
		ReconnectWait:  time.Second,
		MaxReconnect:   3,
	}
}

// EventHandler is called when events are received
type EventHandler func(event *Event)

// NewClient creates a new IPC client
func NewClient(cfg ClientConfig) *IPCClient {
	ctx, cancel := context.WithCancel(context.Background())

	return &IPCClient{
		socketPath:    cfg.SocketPath,
		pending:       make(map[uint32]chan *Message),
		eventChan:     make(chan *Event, 100),
		autoReconnect: cfg.AutoReconnect,
		reconnectWait: cfg.ReconnectWait,
		maxReconnect:  cfg.MaxReconnect,
		ctx:           ctx,
		cancel:        cancel,
		config:        cfg,
	}
}

// Connect establishes a connection to the daemon and performs the
// handshake. Authentication is implicit: the socket is 0600-owner-only,
// so any peer that can connect is already trusted.
func (c *IPCClient) Connect() error {
	c.mu.Lock()
	if c.connected.Load() {
		c.mu.Unlock()
		return nil
	}

	conn, err := c.connectUnix()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("connect: %w", err)
	}

	c.conn = conn
	c.connected.Store(true)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop()

	if err := c.handshake(); err != nil {
		c.close()
		return fmt.Errorf("handshake: %w", err)
	}

	return nil
}

// connectUnix establishes a Unix socket connection
func (c *IPCClient) connectUnix() (net.Conn, error) {
	dialer := net.Dialer{
		Timeout: c.config.ConnectTimeout,
	}

	conn, err := dialer.Dial("unix", c.socketPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrDaemonNotRunning
		}
		return nil, err
	}

	return conn, nil
}

// Close closes the connection to the daemon
func (c *IPCClient) Close() error {
	c.cancel()
	c.close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}

	close(c.eventChan)
	return nil
}

// close closes the connection without signaling shutdown
func (c *IPCClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected.Store(false)

	c.pendingMu.Lock()
	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = make(map[uint32]chan *Message)
	c.pendingMu.Unlock()
}

// IsConnected returns whether the client is connected
func (c *IPCClient) IsConnected() bool {
	return c.connected.Load()
}

// SetEventHandler sets the handler for streamed events
func (c *IPCClient) SetEventHandler(handler EventHandler) {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()
	c.eventHandler = handler
}

// Events returns the event channel for streaming events
func (c *IPCClient) Events() <-chan *Event {
	return c.eventChan
}

// handshake performs the initial handshake with the server
func (c *IPCClient) handshake() error {
	req := &HandshakeRequest{
		ClientVersion:   c.config.ClientVersion,
		ClientName:      c.config.ClientName,
		ProtocolVersion: ProtocolVersion,
	}

	resp, err := c.request(MsgHandshake, req)
	if err != nil {
		return err
	}

	if resp.Header.Type != MsgHandshakeAck {
		return fmt.Errorf("unexpected response type: %d", resp.Header.Type)
	}

	var ack HandshakeResponse
	if err := Decode(resp.Payload, &ack); err != nil {
		return err
	}

	c.version = ack.ServerVersion
	c.permission = ack.Permission

	return nil
}

// request sends a request and waits for a response
func (c *IPCClient) request(msgType MessageType, payload any) (*Message, error) {
	return c.requestWithTimeout(msgType, payload, c.config.RequestTimeout)
}

// requestWithTimeout sends a request with a custom timeout
func (c *IPCClient) requestWithTimeout(msgType MessageType, payload any, timeout time.Duration) (*Message, error) {
	if !c.connected.Load() {
		return nil, ErrNotConnected
	}

	data, err := Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	reqID := c.nextReqID.Add(1)
	msg := NewMessage(msgType, reqID, data)

	respChan := make(chan *Message, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = respChan
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return nil, ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := msg.Write(conn); err != nil {
		c.handleConnectionError(err)
		return nil, fmt.Errorf("write message: %w", err)
	}

	select {
	case resp, ok := <-respChan:
		if !ok {
			return nil, ErrConnectionLost
		}
		return resp, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// readLoop reads messages from the connection
func (c *IPCClient) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			if c.autoReconnect {
				c.tryReconnect()
				continue
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		msg, err := ReadMessage(conn)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}

			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				c.sendPing()
				continue
			}

			c.handleConnectionError(err)
			if c.autoReconnect {
				c.tryReconnect()
				continue
			}
			return
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes an incoming message
func (c *IPCClient) handleMessage(msg *Message) {
	switch msg.Header.Type {
	case MsgPong:
		// Ping response, ignore

	case MsgPing:
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn != nil {
			pong := NewMessage(MsgPong, msg.Header.RequestID, nil)
			pong.Write(conn)
		}

	case MsgEvent:
		var event Event
		if err := Decode(msg.Payload, &event); err == nil {
			select {
			case c.eventChan <- &event:
			default:
			}

			c.eventMu.RLock()
			handler := c.eventHandler
			c.eventMu.RUnlock()
			if handler != nil {
				go handler(&event)
			}
		}

	default:
		c.pendingMu.Lock()
		if ch, ok := c.pending[msg.Header.RequestID]; ok {
			select {
			case ch <- msg:
			default:
			}
		}
		c.pendingMu.Unlock()
	}
}

// sendPing sends a ping to keep connection alive
func (c *IPCClient) sendPing() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn != nil {
		msg := NewMessage(MsgPing, c.nextReqID.Add(1), nil)
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		msg.Write(conn)
	}
}

// handleConnectionError handles connection errors
func (c *IPCClient) handleConnectionError(err error) {
	c.close()
}

// tryReconnect attempts to reconnect to the daemon
func (c *IPCClient) tryReconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	for i := 0; i < c.maxReconnect; i++ {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.reconnectWait):
		}

		if err := c.Connect(); err == nil {
			return
		}
	}
}

// High-level API methods

// Status requests the daemon status.
func (c *IPCClient) Status() (*StatusResponse, error) {
	resp, err := c.request(MsgStatusRequest, &StatusRequest{})
	if err != nil {
		return nil, err
	}

	if resp.Header.Type == MsgError {
		var errResp ErrorResponse
		Decode(resp.Payload, &errResp)
		return nil, fmt.Errorf("%s", errResp.Message)
	}

	var status StatusResponse
	if err := Decode(resp.Payload, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// Ping checks if the daemon is responsive.
func (c *IPCClient) Ping() error {
	resp, err := c.requestWithTimeout(MsgPing, nil, 5*time.Second)
	if err != nil {
		return err
	}

	if resp.Header.Type != MsgPong {
		return fmt.Errorf("unexpected response: %d", resp.Header.Type)
	}

	return nil
}

// GetConfig retrieves the daemon's active config as raw TOML text.
func (c *IPCClient) GetConfig() (*GetConfigResponse, error) {
	resp, err := c.request(MsgGetConfig, &GetConfigRequest{})
	if err != nil {
		return nil, err
	}

	var result GetConfigResponse
	if err := Decode(resp.Payload, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ReloadConfig asks the daemon to re-read its config file now.
func (c *IPCClient) ReloadConfig() (*ReloadConfigResponse, error) {
	resp, err := c.request(MsgReloadConfig, &ReloadConfigRequest{})
	if err != nil {
		return nil, err
	}

	var result ReloadConfigResponse
	if err := Decode(resp.Payload, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// SetGameMode toggles game mode daemon-wide.
func (c *IPCClient) SetGameMode(enabled bool) (*SetGameModeResponse, error) {
	resp, err := c.request(MsgSetGameMode, &SetGameModeRequest{Enabled: enabled})
	if err != nil {
		return nil, err
	}

	var result SetGameModeResponse
	if err := Decode(resp.Payload, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Shutdown asks the daemon to stop every engine and exit cleanly.
func (c *IPCClient) Shutdown() (*ShutdownResponse, error) {
	resp, err := c.request(MsgShutdown, &ShutdownRequest{})
	if err != nil {
		return nil, err
	}

	var result ShutdownResponse
	if err := Decode(resp.Payload, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Subscribe subscribes to lifecycle events.
func (c *IPCClient) Subscribe(events []EventType) error {
	req := &SubscribeRequest{Events: events}

	resp, err := c.request(MsgSubscribe, req)
	if err != nil {
		return err
	}

	var result SubscribeResponse
	if err := Decode(resp.Payload, &result); err != nil {
		return err
	}

	if !result.Success {
		return errors.New("subscription failed")
	}

	return nil
}

// Unsubscribe unsubscribes from events.
func (c *IPCClient) Unsubscribe() error {
	resp, err := c.request(MsgUnsubscribe, &UnsubscribeRequest{})
	if err != nil {
		return err
	}

	if resp.Header.Type != MsgUnsubscribeResp {
		return fmt.Errorf("unexpected response: %d", resp.Header.Type)
	}

	return nil
}
