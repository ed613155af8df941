package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcast/pkg/types"
)

func roundTrip(t *testing.T, env types.Envelope) types.Envelope {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, env))
	decoded, err := ReadMessage(&buf)
	require.NoError(t, err)
	return decoded
}

func TestRoundTrip_AllVariants(t *testing.T) {
	transferID := uuid.New()
	envelopes := []types.Envelope{
		types.NewHello(types.Hello{
			StudentID:     "S01",
			StudentName:   "Alice",
			ClientVersion: "0.4.0",
			Capabilities:  types.Capabilities{ReceiveVideo: true, FileTransfer: true},
		}),
		types.NewWelcome(types.Welcome{ServerVersion: "0.4.0", ForceFullscreen: true, Mode: types.ModeFullscreen}),
		types.NewBroadcast(types.StartCommand(types.TeacherSource(), types.ModeWindow)),
		types.NewBroadcast(types.StartCommand(types.StudentSource("S01", "Alice"), types.ModeFullscreen)),
		types.NewBroadcast(types.StopCommand()),
		types.NewBroadcast(types.RequestShareCommand("S02")),
		types.NewVideo(types.VideoFrame{
			FrameID:     7,
			TimestampMS: 1234,
			Source:      types.StudentSource("S01", "Alice"),
			Codec:       types.CodecJPEG,
			Width:       1920,
			Height:      1080,
			Fullscreen:  true,
			Data:        []byte{0xff, 0xd8, 0x00},
		}),
		types.NewAudio(types.AudioFrame{FrameID: 3, SampleRate: 48000, Channels: 2, ForcePlay: true, Data: []byte{1, 2}}),
		types.NewFileOffer(types.FileOffer{TransferID: transferID, FileName: "notes.pdf", TotalSize: 1024, AutoOpen: true}),
		types.NewFileChunk(types.FileChunk{TransferID: transferID, Offset: 64, Bytes: []byte("abc"), FinalChunk: true}),
		types.NewFileComplete(types.FileComplete{TransferID: transferID, Success: true, Message: "done"}),
		types.NewHeartbeat(),
		types.NewAck("got it"),
		types.NewError("boom"),
	}

	for _, env := range envelopes {
		t.Run(env.Type, func(t *testing.T) {
			decoded := roundTrip(t, env)
			assert.Equal(t, env.Type, decoded.Type)
			assert.JSONEq(t, string(env.Payload), string(decoded.Payload))
		})
	}
}

func TestRoundTrip_PayloadFields(t *testing.T) {
	frame := types.VideoFrame{
		FrameID:     42,
		TimestampMS: types.NowMillis(),
		Source:      types.TeacherSource(),
		Codec:       types.CodecBGRA,
		Width:       320,
		Height:      180,
		Data:        bytes.Repeat([]byte{0xab}, 320*180*4),
	}
	decoded := roundTrip(t, types.NewVideo(frame))

	got, err := types.Decode[types.VideoFrame](decoded)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestRead_RejectsOversizedLengthBeforeAllocating(t *testing.T) {
	// Only the 4 header bytes exist. If the codec tried to allocate and read
	// the declared payload it would fail with an unexpected EOF instead of
	// the size error.
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], MaxMessageSize+1)

	_, err := ReadMessage(bytes.NewReader(header[:]))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestRead_MaximumDeclaredLengthAccepted(t *testing.T) {
	// A length of exactly MaxMessageSize passes the size check and proceeds
	// to the payload read, which hits EOF here.
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], MaxMessageSize)

	_, err := ReadMessage(bytes.NewReader(header[:]))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPayloadTooLarge)
}

func TestWrite_RejectsOversizedPayload(t *testing.T) {
	frame := types.VideoFrame{Data: make([]byte, MaxMessageSize)}
	err := WriteMessage(&bytes.Buffer{}, types.NewVideo(frame))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestRead_MalformedPayload(t *testing.T) {
	payload := []byte("{not json")
	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	buf.Write(header[:])
	buf.Write(payload)

	_, err := ReadMessage(&buf)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestRead_TruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, types.NewAck("hi")))
	truncated := buf.Bytes()[:buf.Len()-2]

	_, err := ReadMessage(bytes.NewReader(truncated))
	assert.Error(t, err)
}
