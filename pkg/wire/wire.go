// Package wire frames protocol envelopes onto a byte stream: a 4-byte
// little-endian payload length followed by the JSON-encoded envelope. Both
// peers use the same codec.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"classcast/pkg/types"
)

// MaxMessageSize caps the serialized payload at 32 MiB to guard against
// hostile peers declaring huge lengths.
const MaxMessageSize = 32 << 20

const headerSize = 4

// WriteMessage serializes env and writes it with its length prefix.
func WriteMessage(w io.Writer, env types.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", env.Type, err)
	}
	if len(payload) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed envelope. The declared length is
// validated against MaxMessageSize before any payload buffer is allocated.
func ReadMessage(r io.Reader) (types.Envelope, error) {
	var env types.Envelope

	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return env, fmt.Errorf("read message header: %w", err)
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxMessageSize {
		return env, fmt.Errorf("%w: declared %d bytes", ErrPayloadTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return env, fmt.Errorf("read message payload: %w", err)
	}

	if err := json.Unmarshal(payload, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return env, nil
}
