package ipc

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := &Header{
		Magic:     ProtocolMagic,
		Version:   ProtocolVersion,
		Flags:     FlagJSON,
		Type:      MsgPing,
		RequestID: 42,
		Length:    7,
	}

	var buf bytes.Buffer
	require.NoError(t, h.Write(&buf))

	got, err := ReadHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	h := &Header{Magic: 0xdeadbeef, Version: ProtocolVersion, Type: MsgPing}
	require.NoError(t, h.Write(&buf))

	_, err := ReadHeader(&buf)
	require.Error(t, err)
}

func TestReadHeaderRejectsFutureVersion(t *testing.T) {
	var buf bytes.Buffer
	h := &Header{Magic: ProtocolMagic, Version: ProtocolVersion + 1, Type: MsgPing}
	require.NoError(t, h.Write(&buf))

	_, err := ReadHeader(&buf)
	require.Error(t, err)
}

func TestMessageRoundTrip(t *testing.T) {
	payload, err := Encode(&StatusRequest{})
	require.NoError(t, err)

	msg := NewMessage(MsgStatusRequest, 1, payload)

	var buf bytes.Buffer
	require.NoError(t, msg.Write(&buf))

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, msg.Header, got.Header)
	require.Equal(t, msg.Payload, got.Payload)
}

func TestReadMessageRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	h := &Header{
		Magic:   ProtocolMagic,
		Version: ProtocolVersion,
		Type:    MsgEvent,
		Length:  5 * 1024 * 1024,
	}
	require.NoError(t, h.Write(&buf))

	_, err := ReadMessage(&buf)
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := &Event{
		Type:      EventGrab,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		DeviceID:  "event3",
		Detail:    "grabbed",
	}

	data, err := Encode(in)
	require.NoError(t, err)

	var out Event
	require.NoError(t, Decode(data, &out))
	require.Equal(t, in.Type, out.Type)
	require.Equal(t, in.DeviceID, out.DeviceID)
	require.Equal(t, in.Detail, out.Detail)
}

func TestNewErrorMessageDecodesAsErrorResponse(t *testing.T) {
	msg := NewErrorMessage(9, ErrPermissionDenied, "nope")
	require.Equal(t, MsgError, msg.Header.Type)

	var resp ErrorResponse
	require.NoError(t, Decode(msg.Payload, &resp))
	require.Equal(t, ErrPermissionDenied, resp.Code)
	require.Equal(t, "nope", resp.Message)
}

func TestNewResponseSetsRequestID(t *testing.T) {
	msg, err := NewResponse(MsgHandshakeAck, 3, &HandshakeResponse{
		ServerVersion:   "1.0.0",
		ProtocolVersion: ProtocolVersion,
		Permission:      PermFullControl,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(3), msg.Header.RequestID)

	var resp HandshakeResponse
	require.NoError(t, Decode(msg.Payload, &resp))
	require.Equal(t, PermFullControl, resp.Permission)
}
