// Package capture bridges periodic frame production into the broadcast
// fan-out. The actual screen grab, encode, and audio device access are
// collaborators supplied by the caller; this package owns the tickers,
// worker offload, frame stamping, and cancellation.
package capture

import "classcast/pkg/types"

// RawImage is one captured frame before encoding, in BGRA byte order.
type RawImage struct {
	Width  uint32
	Height uint32
	BGRA   []byte
}

// ScreenGrabber captures the local display.
type ScreenGrabber interface {
	Grab() (RawImage, error)
}

// FrameEncoder turns a raw capture into transportable bytes.
type FrameEncoder interface {
	Codec() types.VideoCodec
	Encode(img RawImage, quality int) ([]byte, error)
}

// PCMPacket is one fixed-duration (~20ms) slice of captured audio.
type PCMPacket struct {
	Data       []byte
	SampleRate uint32
	Channels   uint8
}

// AudioSource starts device capture on its own thread, pushing packets into
// out until the returned stop function is called.
type AudioSource interface {
	Start(out chan<- PCMPacket) (stop func(), err error)
}

// VideoSink receives stamped video frames, normally the fan-out engine or
// the student's outbound queue.
type VideoSink func(types.VideoFrame)

// AudioSink receives stamped audio frames.
type AudioSink func(types.AudioFrame)
