// Package ipc provides inter-process communication between the
// keyremapd daemon and client applications (keyremapctl and any other
// local tool that wants to reload config, toggle game mode, or watch
// the lifecycle event stream).
//
// The protocol is designed for:
// - Request/response pattern for commands
// - Event streaming for lifecycle notifications
// - JSON payloads for easy debugging and scripting
// - Protocol versioning for compatibility
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Protocol version for compatibility checking
const (
	ProtocolVersion = 1
	ProtocolMagic   = 0x4b524950 // "KRIP" - keyremapd IPC
)

// MessageType identifies the type of IPC message
type MessageType uint16

const (
	// Control messages (0x00xx)
	MsgPing         MessageType = 0x0001
	MsgPong         MessageType = 0x0002
	MsgHandshake    MessageType = 0x0003
	MsgHandshakeAck MessageType = 0x0004
	MsgError        MessageType = 0x0005
	MsgShutdown     MessageType = 0x0006

	// Status messages (0x01xx)
	MsgStatusRequest  MessageType = 0x0100
	MsgStatusResponse MessageType = 0x0101

	// Config operations (0x02xx)
	MsgGetConfig     MessageType = 0x0200
	MsgGetConfigResp MessageType = 0x0201
	MsgReloadConfig  MessageType = 0x0202
	MsgReloadResp    MessageType = 0x0203

	// Game mode (0x03xx)
	MsgSetGameMode     MessageType = 0x0300
	MsgSetGameModeResp MessageType = 0x0301

	// Event streaming (0x04xx)
	MsgSubscribe       MessageType = 0x0400
	MsgSubscribeResp   MessageType = 0x0401
	MsgUnsubscribe     MessageType = 0x0402
	MsgUnsubscribeResp MessageType = 0x0403
	MsgEvent           MessageType = 0x0404
)

// EventType identifies the type of streamed lifecycle event, mirroring
// internal/audit.EventType.
type EventType uint16

const (
	EventEngineStart    EventType = 0x0001
	EventGrab           EventType = 0x0002
	EventUngrab         EventType = 0x0003
	EventReload         EventType = 0x0004
	EventGameModeToggle EventType = 0x0005
	EventCommandFailure EventType = 0x0006
	EventShutdown       EventType = 0x0007
	EventCrashRecovered EventType = 0x0008
)

// PermissionLevel defines client access levels
type PermissionLevel uint8

const (
	PermReadOnly    PermissionLevel = 0x01
	PermFullControl PermissionLevel = 0x02
)

// Header is the fixed-size message header (16 bytes)
type Header struct {
	Magic     uint32      // Protocol magic number
	Version   uint8       // Protocol version
	Flags     uint8       // Message flags
	Type      MessageType // Message type
	RequestID uint32      // Request ID for correlation
	Length    uint32      // Payload length (not including header)
}

// HeaderSize is the size of the header in bytes
const HeaderSize = 16

// Header flags
const (
	FlagJSON uint8 = 0x04 // always set; kept for wire compatibility with a future binary mode
)

// Message wraps a header and payload
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Flags:     FlagJSON,
			Type:      msgType,
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write writes the header to a writer
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], h.Length)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads a header from a reader
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Type:      MessageType(binary.BigEndian.Uint16(buf[6:8])),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}

	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("invalid magic number: %x", h.Magic)
	}
	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", h.Version)
	}

	return h, nil
}

// Write writes the message to a writer
func (m *Message) Write(w io.Writer) error {
	if err := m.Header.Write(w); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		_, err := w.Write(m.Payload)
		return err
	}
	return nil
}

// ReadMessage reads a complete message from a reader
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	m := &Message{Header: *h}
	if h.Length > 0 {
		if h.Length > 4*1024*1024 {
			return nil, fmt.Errorf("payload too large: %d bytes", h.Length)
		}
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Request/Response payloads

// HandshakeRequest is sent by the client to initiate connection
type HandshakeRequest struct {
	ClientVersion   string `json:"client_version"`
	ClientName      string `json:"client_name"`
	ProtocolVersion uint8  `json:"protocol_version"`
}

// HandshakeResponse is sent by the server to acknowledge connection
type HandshakeResponse struct {
	ServerVersion   string          `json:"server_version"`
	ProtocolVersion uint8           `json:"protocol_version"`
	Permission      PermissionLevel `json:"permission"`
}

// ErrorResponse is sent when an operation fails
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrUnknown         = 1
	ErrInvalidRequest  = 2
	ErrPermissionDenied = 3
	ErrInternalError   = 4
)

// ShutdownRequest asks the daemon to stop every engine and exit
// cleanly, the IPC equivalent of sending it SIGTERM.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request. The daemon sends
// this before it actually begins shutting down, since the connection
// (and the daemon's process) will be gone by the time the client could
// otherwise notice.
type ShutdownResponse struct {
	Success bool `json:"success"`
}

// StatusRequest requests daemon status
type StatusRequest struct{}

// StatusResponse contains daemon status
type StatusResponse struct {
	Version    string        `json:"version"`
	Uptime     time.Duration `json:"uptime"`
	StartedAt  time.Time     `json:"started_at"`
	Devices    []string      `json:"devices"`
	GameModeOn bool          `json:"game_mode_on"`
	ConfigPath string        `json:"config_path"`

	// GameModeDevices lists the subset of Devices whose effective
	// config actually declares game_mode bindings. GameModeOn can be
	// true daemon-wide while a device has nothing here, meaning the
	// toggle currently has no effect on that device's output.
	GameModeDevices []string `json:"game_mode_devices"`
}

// GetConfigRequest requests the effective config as loaded.
type GetConfigRequest struct{}

// GetConfigResponse carries the raw TOML text of the active config, for
// keyremapctl's debug dump subcommand.
type GetConfigResponse struct {
	TOML string `json:"toml"`
}

// ReloadConfigRequest asks the daemon to re-read and re-validate its
// config file immediately, rather than waiting for the watcher.
type ReloadConfigRequest struct{}

// ReloadConfigResponse acknowledges a reload.
type ReloadConfigResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SetGameModeRequest toggles game mode on or off, daemon-wide.
type SetGameModeRequest struct {
	Enabled bool `json:"enabled"`
}

// SetGameModeResponse acknowledges the toggle.
type SetGameModeResponse struct {
	Success bool `json:"success"`
}

// SubscribeRequest requests event subscription.
type SubscribeRequest struct {
	Events []EventType `json:"events"` // Empty means all events
}

// SubscribeResponse acknowledges subscription.
type SubscribeResponse struct {
	Success        bool   `json:"success"`
	SubscriptionID string `json:"subscription_id"`
}

// UnsubscribeRequest requests event unsubscription.
type UnsubscribeRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

// Event is a streamed lifecycle event.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Encode encodes a payload to JSON bytes
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes to a payload
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewErrorMessage creates an error message
func NewErrorMessage(requestID uint32, code int, message string) *Message {
	payload, _ := Encode(&ErrorResponse{
		Code:    code,
		Message: message,
	})
	return NewMessage(MsgError, requestID, payload)
}

// NewResponse creates a response message
func NewResponse(msgType MessageType, requestID uint32, v any) (*Message, error) {
	payload, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return NewMessage(msgType, requestID, payload), nil
}
