package student

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"classcast/pkg/types"
)

// VideoRenderer consumes decoded video frames. The real implementation owns
// a display window; tests and headless runs use LoggingRenderer.
type VideoRenderer interface {
	Render(frame types.VideoFrame, mode types.BroadcastMode)
	Stop()
}

// AudioPlayer consumes audio frames and owns the local mute state.
type AudioPlayer interface {
	Play(frame types.AudioFrame)
	SetMuted(muted bool)
	Muted() bool
}

// FileOpener opens a completed download with the platform's default
// application.
type FileOpener interface {
	Open(path string) error
}

// LoggingRenderer discards frames, logging one line per interval worth of
// frames so a headless client still shows signs of life.
type LoggingRenderer struct {
	log   zerolog.Logger
	count atomic.Uint64
}

// NewLoggingRenderer creates a renderer that only logs.
func NewLoggingRenderer(log zerolog.Logger) *LoggingRenderer {
	return &LoggingRenderer{log: log}
}

func (r *LoggingRenderer) Render(frame types.VideoFrame, mode types.BroadcastMode) {
	if n := r.count.Add(1); n%120 == 1 {
		r.log.Debug().
			Uint64("frame_id", frame.FrameID).
			Str("source", string(frame.Source.Kind)).
			Str("mode", string(mode)).
			Msg("rendering video")
	}
}

func (r *LoggingRenderer) Stop() {}

// LoggingPlayer discards audio, honoring mute and force-play the way a real
// player would.
type LoggingPlayer struct {
	log   zerolog.Logger
	muted atomic.Bool
	count atomic.Uint64
}

// NewLoggingPlayer creates a player that only logs.
func NewLoggingPlayer(log zerolog.Logger) *LoggingPlayer {
	return &LoggingPlayer{log: log}
}

func (p *LoggingPlayer) Play(frame types.AudioFrame) {
	if p.muted.Load() && !frame.ForcePlay {
		return
	}
	if n := p.count.Add(1); n%500 == 1 {
		p.log.Debug().
			Uint32("sample_rate", frame.SampleRate).
			Uint8("channels", frame.Channels).
			Msg("playing audio")
	}
}

func (p *LoggingPlayer) SetMuted(muted bool) { p.muted.Store(muted) }
func (p *LoggingPlayer) Muted() bool         { return p.muted.Load() }

// LoggingOpener stands in for the OS open-with-default-application hook.
type LoggingOpener struct {
	log zerolog.Logger
}

// NewLoggingOpener creates an opener that only logs.
func NewLoggingOpener(log zerolog.Logger) *LoggingOpener {
	return &LoggingOpener{log: log}
}

func (o *LoggingOpener) Open(path string) error {
	o.log.Info().Str("path", path).Msg("would open file")
	return nil
}
