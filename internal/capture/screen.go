package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"classcast/pkg/types"
)

// minTickInterval floors the capture period so extreme fps settings cannot
// spin the loop.
const minTickInterval = 16 * time.Millisecond

// ScreenConfig wires a screen pipeline to its collaborators.
type ScreenConfig struct {
	Grabber ScreenGrabber
	Encoder FrameEncoder
	FPS     int
	Quality int
	// Source attributes emitted frames (teacher screen or this student).
	Source types.BroadcastSource
	Sink   VideoSink
	Log    zerolog.Logger
}

// ScreenPipeline runs a ticker at 1000/fps ms, offloads grab+encode to a
// worker goroutine each tick, stamps the result, and hands it to the sink.
// Start is idempotent; Stop abandons any in-flight capture.
type ScreenPipeline struct {
	cfg ScreenConfig

	frameID atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScreenPipeline creates a stopped pipeline.
func NewScreenPipeline(cfg ScreenConfig) *ScreenPipeline {
	return &ScreenPipeline{cfg: cfg}
}

// Start launches the capture loop in the given display mode. A no-op when
// already running.
func (p *ScreenPipeline) Start(mode types.BroadcastMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cfg.Log.Debug().Msg("screen pipeline already running")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx, mode)
	return nil
}

// Stop cancels the capture loop. A frame being captured when Stop is called
// is discarded, not delivered. Idempotent.
func (p *ScreenPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Running reports whether the capture loop is active.
func (p *ScreenPipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *ScreenPipeline) run(ctx context.Context, mode types.BroadcastMode) {
	interval := time.Second / time.Duration(p.cfg.FPS)
	if interval < minTickInterval {
		interval = minTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	type captureResult struct {
		frame types.VideoFrame
		err   error
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frameID := p.frameID.Add(1)
		done := make(chan captureResult, 1)
		go func() {
			frame, err := p.captureFrame(frameID, mode)
			done <- captureResult{frame: frame, err: err}
		}()

		select {
		case <-ctx.Done():
			// In-flight capture abandoned; the worker's result is discarded
			// when it lands in the buffered channel.
			return
		case res := <-done:
			if res.err != nil {
				p.cfg.Log.Warn().Err(res.err).Msg("screen capture failed")
				continue
			}
			p.cfg.Sink(res.frame)
		}
	}
}

// captureFrame runs on a worker goroutine: grab and encode are CPU- and
// syscall-bound and must not stall the ticker loop.
func (p *ScreenPipeline) captureFrame(frameID uint64, mode types.BroadcastMode) (types.VideoFrame, error) {
	img, err := p.cfg.Grabber.Grab()
	if err != nil {
		return types.VideoFrame{}, err
	}
	data, err := p.cfg.Encoder.Encode(img, p.cfg.Quality)
	if err != nil {
		return types.VideoFrame{}, err
	}
	return types.VideoFrame{
		FrameID:     frameID,
		TimestampMS: types.NowMillis(),
		Source:      p.cfg.Source,
		Codec:       p.cfg.Encoder.Codec(),
		Width:       img.Width,
		Height:      img.Height,
		Fullscreen:  mode == types.ModeFullscreen,
		Data:        data,
	}, nil
}
