package capture

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcast/pkg/types"
)

type fakeGrabber struct {
	grabs atomic.Uint64
	err   error
}

func (g *fakeGrabber) Grab() (RawImage, error) {
	g.grabs.Add(1)
	if g.err != nil {
		return RawImage{}, g.err
	}
	return RawImage{Width: 4, Height: 2, BGRA: make([]byte, 4*2*4)}, nil
}

type fakeEncoder struct{}

func (fakeEncoder) Codec() types.VideoCodec { return types.CodecJPEG }

func (fakeEncoder) Encode(img RawImage, quality int) ([]byte, error) {
	return []byte{byte(quality)}, nil
}

type frameCollector struct {
	mu     sync.Mutex
	frames []types.VideoFrame
}

func (c *frameCollector) sink(f types.VideoFrame) {
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
}

func (c *frameCollector) snapshot() []types.VideoFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.VideoFrame(nil), c.frames...)
}

func (c *frameCollector) waitFor(t *testing.T, n int) []types.VideoFrame {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if frames := c.snapshot(); len(frames) >= n {
			return frames
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, have %d", n, len(c.snapshot()))
	return nil
}

func newTestPipeline(grabber ScreenGrabber, collector *frameCollector) *ScreenPipeline {
	return NewScreenPipeline(ScreenConfig{
		Grabber: grabber,
		Encoder: fakeEncoder{},
		FPS:     60,
		Quality: 75,
		Source:  types.TeacherSource(),
		Sink:    collector.sink,
		Log:     zerolog.Nop(),
	})
}

func TestScreenPipelineEmitsStampedFrames(t *testing.T) {
	collector := &frameCollector{}
	p := newTestPipeline(&fakeGrabber{}, collector)

	require.NoError(t, p.Start(types.ModeFullscreen))
	defer p.Stop()
	assert.True(t, p.Running())

	frames := collector.waitFor(t, 3)
	for i, f := range frames[:3] {
		assert.EqualValues(t, i+1, f.FrameID)
		assert.Equal(t, types.SourceTeacher, f.Source.Kind)
		assert.Equal(t, types.CodecJPEG, f.Codec)
		assert.EqualValues(t, 4, f.Width)
		assert.EqualValues(t, 2, f.Height)
		assert.True(t, f.Fullscreen)
		assert.Equal(t, []byte{75}, f.Data)
		assert.NotZero(t, f.TimestampMS)
	}
}

func TestScreenPipelineWindowMode(t *testing.T) {
	collector := &frameCollector{}
	p := newTestPipeline(&fakeGrabber{}, collector)

	require.NoError(t, p.Start(types.ModeWindow))
	defer p.Stop()

	frames := collector.waitFor(t, 1)
	assert.False(t, frames[0].Fullscreen)
}

func TestScreenPipelineStartIdempotent(t *testing.T) {
	collector := &frameCollector{}
	p := newTestPipeline(&fakeGrabber{}, collector)

	require.NoError(t, p.Start(types.ModeWindow))
	require.NoError(t, p.Start(types.ModeWindow))
	defer p.Stop()

	frames := collector.waitFor(t, 2)
	// A second Start must not spawn a second loop; ids stay sequential.
	assert.EqualValues(t, 1, frames[0].FrameID)
	assert.EqualValues(t, 2, frames[1].FrameID)
}

func TestScreenPipelineStop(t *testing.T) {
	collector := &frameCollector{}
	p := newTestPipeline(&fakeGrabber{}, collector)

	require.NoError(t, p.Start(types.ModeWindow))
	collector.waitFor(t, 1)
	p.Stop()
	p.Stop() // idempotent
	assert.False(t, p.Running())

	// No frames are delivered once stopped.
	time.Sleep(50 * time.Millisecond)
	count := len(collector.snapshot())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, len(collector.snapshot()))
}

func TestScreenPipelineFrameIDsContinueAcrossRestart(t *testing.T) {
	collector := &frameCollector{}
	p := newTestPipeline(&fakeGrabber{}, collector)

	require.NoError(t, p.Start(types.ModeWindow))
	first := collector.waitFor(t, 2)
	p.Stop()

	require.NoError(t, p.Start(types.ModeWindow))
	defer p.Stop()
	all := collector.waitFor(t, len(first)+1)

	// Strictly increasing across the restart, never reset to 1.
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].FrameID, all[i-1].FrameID)
	}
}

func TestScreenPipelineGrabFailureSkipsFrame(t *testing.T) {
	collector := &frameCollector{}
	grabber := &fakeGrabber{err: errors.New("display gone")}
	p := newTestPipeline(grabber, collector)

	require.NoError(t, p.Start(types.ModeWindow))
	defer p.Stop()

	deadline := time.Now().Add(time.Second)
	for grabber.grabs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.GreaterOrEqual(t, grabber.grabs.Load(), uint64(3), "loop must keep ticking past failures")
	assert.Empty(t, collector.snapshot())
}
