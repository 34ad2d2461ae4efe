package llrp

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageHeaderLayout(t *testing.T) {
	raw := NewROSpecCommand(MsgStartROSpec, 101).Encode()
	raw2 := Message{Type: MsgStartROSpec, ID: 7, Body: []byte{0, 0, 0, 101}}.Encode()

	require.Len(t, raw, headerLen+4)
	// version 1 in bits 10..12, type 22 in the low ten bits
	assert.Equal(t, []byte{0x04, 0x16}, raw2[:2])
	assert.Equal(t, []byte{0, 0, 0, 14}, raw2[2:6])
	assert.Equal(t, []byte{0, 0, 0, 7}, raw2[6:10])
	assert.Equal(t, []byte{0, 0, 0, 101}, raw2[10:])
}

func TestReadMessageStream(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(NewKeepalive(5).Encode())
	stream.Write(NewStatusResponse(MsgAddROSpecResponse, 6, Status{Code: StatusSuccess}).Encode())

	first, err := ReadMessage(&stream)
	require.NoError(t, err)
	assert.Equal(t, MsgKeepalive, first.Type)
	assert.Equal(t, uint32(5), first.ID)
	assert.Equal(t, uint8(Version), first.Version)
	assert.Empty(t, first.Body)

	second, err := ReadMessage(&stream)
	require.NoError(t, err)
	assert.Equal(t, MsgAddROSpecResponse, second.Type)
	assert.Equal(t, uint32(6), second.ID)

	_, err = ReadMessage(&stream)
	assert.Equal(t, io.EOF, err)
}

func TestReadMessageRejectsBadLength(t *testing.T) {
	raw := NewKeepalive(1).Encode()
	raw[5] = 3 // shorter than the header

	_, err := ReadMessage(bytes.NewReader(raw))
	require.Error(t, err)
	assert.Equal(t, ErrMalformed, errors.Cause(err))
}

func TestReadMessageTruncatedBody(t *testing.T) {
	raw := NewROSpecCommand(MsgDeleteROSpec, 101).Encode()

	_, err := ReadMessage(bytes.NewReader(raw[:len(raw)-2]))
	require.Error(t, err)
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
}

func TestResponseType(t *testing.T) {
	cases := map[MessageType]MessageType{
		MsgSetReaderConfig: MsgSetReaderConfigResponse,
		MsgAddROSpec:       MsgAddROSpecResponse,
		MsgDeleteROSpec:    MsgDeleteROSpecResponse,
		MsgStartROSpec:     MsgStartROSpecResponse,
		MsgStopROSpec:      MsgStopROSpecResponse,
		MsgEnableROSpec:    MsgEnableROSpecResponse,
		MsgDisableROSpec:   MsgDisableROSpecResponse,
		MsgCloseConnection: MsgCloseConnectionResponse,
	}
	for req, want := range cases {
		got, ok := ResponseType(req)
		assert.True(t, ok, req.String())
		assert.Equal(t, want, got, req.String())
	}

	_, ok := ResponseType(MsgROAccessReport)
	assert.False(t, ok)
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "ADD_ROSPEC", MsgAddROSpec.String())
	assert.Equal(t, "MessageType(999)", MessageType(999).String())
}
