package capture

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"classcast/pkg/types"
)

// AudioConfig wires an audio pipeline to its collaborators.
type AudioConfig struct {
	Source AudioSource
	Sink   AudioSink
	Log    zerolog.Logger
}

// AudioPipeline consumes the packet channel fed by the device's callback
// thread, stamps each packet, and forwards it like a video frame. Unlike the
// screen pipeline there is no ticker; the hardware drives the pace.
type AudioPipeline struct {
	cfg AudioConfig

	forcePlay atomic.Bool
	frameID   atomic.Uint64

	mu          sync.Mutex
	cancel      context.CancelFunc
	stopCapture func()
}

// NewAudioPipeline creates a stopped pipeline. forcePlay seeds the flag
// stamped onto outgoing frames.
func NewAudioPipeline(cfg AudioConfig, forcePlay bool) *AudioPipeline {
	p := &AudioPipeline{cfg: cfg}
	p.forcePlay.Store(forcePlay)
	return p
}

// Start opens the audio source and launches the dispatch goroutine. A no-op
// when already running. Device errors surface to the caller; nothing starts.
func (p *AudioPipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cfg.Log.Debug().Msg("audio pipeline already running")
		return nil
	}

	packets := make(chan PCMPacket, 64)
	stop, err := p.cfg.Source.Start(packets)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.stopCapture = stop
	go p.dispatch(ctx, packets)
	return nil
}

// Stop aborts the dispatch goroutine and drops the device stream. Idempotent.
func (p *AudioPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.stopCapture()
	p.stopCapture = nil
}

// Running reports whether audio is being dispatched.
func (p *AudioPipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// SetForcePlay toggles the flag stamped onto subsequent frames.
func (p *AudioPipeline) SetForcePlay(force bool) {
	p.forcePlay.Store(force)
}

// ForcePlay reports the current flag value.
func (p *AudioPipeline) ForcePlay() bool {
	return p.forcePlay.Load()
}

func (p *AudioPipeline) dispatch(ctx context.Context, packets <-chan PCMPacket) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-packets:
			if !ok {
				p.cfg.Log.Debug().Msg("audio packet channel closed")
				return
			}
			p.cfg.Sink(types.AudioFrame{
				FrameID:     p.frameID.Add(1),
				TimestampMS: types.NowMillis(),
				SampleRate:  pkt.SampleRate,
				Channels:    pkt.Channels,
				ForcePlay:   p.forcePlay.Load(),
				Data:        pkt.Data,
			})
		}
	}
}
