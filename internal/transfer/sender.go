package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"classcast/pkg/types"
)

// ChunkSize is the fixed slice size used when walking a source file.
const ChunkSize = 64 * 1024

// SendOptions tunes one outbound transfer.
type SendOptions struct {
	// AutoOpen asks receivers to open the file once complete.
	AutoOpen bool
	// MarkFinal sets the advisory final_chunk flag on the last chunk.
	MarkFinal bool
}

// Send walks the file at path in ChunkSize slices and emits the offer, every
// chunk, and the completion message through send. The send function decides
// whether that means fan-out to all students or a single teacher connection.
func Send(path string, opts SendOptions, send func(types.Envelope) error) (types.FileOffer, error) {
	var offer types.FileOffer

	info, err := os.Stat(path)
	if err != nil {
		return offer, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return offer, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	offer = types.FileOffer{
		TransferID: uuid.New(),
		FileName:   filepath.Base(path),
		TotalSize:  uint64(info.Size()),
		AutoOpen:   opts.AutoOpen,
	}
	if err := send(types.NewFileOffer(offer)); err != nil {
		return offer, err
	}

	file, err := os.Open(path)
	if err != nil {
		return offer, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, ChunkSize)
	var offset uint64
	for {
		n, err := file.Read(buf)
		if n > 0 {
			chunk := types.FileChunk{
				TransferID: offer.TransferID,
				Offset:     offset,
				Bytes:      append([]byte(nil), buf[:n]...),
				FinalChunk: opts.MarkFinal && offset+uint64(n) >= offer.TotalSize,
			}
			if err := send(types.NewFileChunk(chunk)); err != nil {
				return offer, err
			}
			offset += uint64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return offer, fmt.Errorf("read %s: %w", path, err)
		}
	}

	complete := types.FileComplete{
		TransferID: offer.TransferID,
		Success:    true,
		Message:    fmt.Sprintf("file %s sent", offer.FileName),
	}
	return offer, send(types.NewFileComplete(complete))
}
