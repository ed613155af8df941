package types

import "github.com/google/uuid"

// FileOffer announces an upcoming file transfer in either direction.
type FileOffer struct {
	TransferID uuid.UUID `json:"transfer_id"`
	FileName   string    `json:"file_name"`
	TotalSize  uint64    `json:"total_size"`
	AutoOpen   bool      `json:"auto_open"`
}

// FileChunk carries one slice of file data. FinalChunk is advisory: receivers
// finish a transfer only on FileComplete.
type FileChunk struct {
	TransferID uuid.UUID `json:"transfer_id"`
	Offset     uint64    `json:"offset"`
	Bytes      []byte    `json:"bytes"`
	FinalChunk bool      `json:"final_chunk"`
}

// FileComplete ends a transfer. Success=false discards the received data.
type FileComplete struct {
	TransferID uuid.UUID `json:"transfer_id"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
}
