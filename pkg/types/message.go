package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message type discriminators. The two directions share one namespace; the
// connection handlers reject types that are not meaningful for their side.
const (
	// Teacher -> student
	TypeWelcome      = "welcome"
	TypeBroadcast    = "broadcast"
	TypeVideo        = "video"
	TypeAudio        = "audio"
	TypeFileOffer    = "file_offer"
	TypeFileChunk    = "file_chunk"
	TypeFileComplete = "file_complete"
	TypeHeartbeat    = "heartbeat"
	TypeError        = "error"

	// Student -> teacher (Video/Audio/File*/Heartbeat/Error shared with above)
	TypeHello = "hello"
	TypeAck   = "ack"
)

// Envelope is the unit framed onto the wire: a discriminator plus the
// JSON-encoded payload for that variant.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals an envelope payload into the variant struct for its type.
// Callers select T by switching on Envelope.Type.
func Decode[T any](env Envelope) (T, error) {
	var payload T
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return payload, nil
}

func envelope(msgType string, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Payload structs hold only plain data; marshal cannot fail.
		panic(fmt.Sprintf("marshal %s payload: %v", msgType, err))
	}
	return Envelope{Type: msgType, Payload: raw}
}

// Hello is the mandatory first message from a student.
type Hello struct {
	StudentID     string       `json:"student_id"`
	StudentName   string       `json:"student_name"`
	ClientVersion string       `json:"client_version"`
	Capabilities  Capabilities `json:"capabilities"`
}

// Welcome is the teacher's reply to a valid Hello.
type Welcome struct {
	ServerVersion   string        `json:"server_version"`
	ForceFullscreen bool          `json:"force_fullscreen"`
	Mode            BroadcastMode `json:"broadcast_mode"`
}

// Capabilities reports what a student client can do. Advisory only: the
// server records and logs them but does not gate message handling on them.
type Capabilities struct {
	ReceiveVideo bool `json:"receive_video"`
	SendVideo    bool `json:"send_video"`
	ReceiveAudio bool `json:"receive_audio"`
	SendAudio    bool `json:"send_audio"`
	FileTransfer bool `json:"file_transfer"`
}

// Heartbeat is exchanged periodically in both directions.
type Heartbeat struct {
	TimestampMS uint64 `json:"timestamp_ms"`
}

// Ack carries a free-form acknowledgement from a student.
type Ack struct {
	Text string `json:"text"`
}

// ErrorMessage carries a non-fatal error notification to the peer.
type ErrorMessage struct {
	Text string `json:"text"`
}

func NewHello(h Hello) Envelope                { return envelope(TypeHello, h) }
func NewWelcome(w Welcome) Envelope            { return envelope(TypeWelcome, w) }
func NewBroadcast(c BroadcastCommand) Envelope { return envelope(TypeBroadcast, c) }
func NewVideo(f VideoFrame) Envelope           { return envelope(TypeVideo, f) }
func NewAudio(f AudioFrame) Envelope           { return envelope(TypeAudio, f) }
func NewFileOffer(o FileOffer) Envelope        { return envelope(TypeFileOffer, o) }
func NewFileChunk(c FileChunk) Envelope        { return envelope(TypeFileChunk, c) }
func NewFileComplete(c FileComplete) Envelope  { return envelope(TypeFileComplete, c) }
func NewAck(text string) Envelope              { return envelope(TypeAck, Ack{Text: text}) }
func NewError(text string) Envelope            { return envelope(TypeError, ErrorMessage{Text: text}) }

func NewHeartbeat() Envelope {
	return envelope(TypeHeartbeat, Heartbeat{TimestampMS: NowMillis()})
}

// NowMillis returns the current wall clock as milliseconds since the epoch,
// the timestamp unit used by frames and heartbeats.
func NowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
