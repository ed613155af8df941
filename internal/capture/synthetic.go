package capture

import (
	"math"
	"sync/atomic"
	"time"

	"classcast/pkg/types"
)

// Synthetic sources stand in for the platform capture collaborators in
// headless runs and tests, paired with the bgra diagnostic codec.

// SyntheticGrabber produces a small animated gradient.
type SyntheticGrabber struct {
	width  uint32
	height uint32
	tick   atomic.Uint64
}

// NewSyntheticGrabber creates a grabber emitting width x height frames.
func NewSyntheticGrabber(width, height uint32) *SyntheticGrabber {
	return &SyntheticGrabber{width: width, height: height}
}

func (g *SyntheticGrabber) Grab() (RawImage, error) {
	shift := byte(g.tick.Add(1))
	pixels := make([]byte, g.width*g.height*4)
	for y := uint32(0); y < g.height; y++ {
		for x := uint32(0); x < g.width; x++ {
			i := (y*g.width + x) * 4
			pixels[i] = byte(x) + shift   // B
			pixels[i+1] = byte(y) + shift // G
			pixels[i+2] = shift           // R
			pixels[i+3] = 0xff            // A
		}
	}
	return RawImage{Width: g.width, Height: g.height, BGRA: pixels}, nil
}

// BGRAEncoder passes raw pixels through unchanged.
type BGRAEncoder struct{}

func (BGRAEncoder) Codec() types.VideoCodec { return types.CodecBGRA }

func (BGRAEncoder) Encode(img RawImage, _ int) ([]byte, error) {
	return img.BGRA, nil
}

// ToneSource generates 20ms packets of a 440Hz sine wave on a dedicated
// goroutine, mimicking a hardware-callback audio device.
type ToneSource struct {
	SampleRate uint32
}

func (t ToneSource) Start(out chan<- PCMPacket) (func(), error) {
	rate := t.SampleRate
	if rate == 0 {
		rate = 48000
	}
	samplesPerPacket := int(rate / 50) // 20ms

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		var phase float64
		step := 2 * math.Pi * 440 / float64(rate)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			data := make([]byte, samplesPerPacket*2)
			for i := 0; i < samplesPerPacket; i++ {
				sample := int16(math.Sin(phase) * 0.2 * math.MaxInt16)
				data[i*2] = byte(sample)
				data[i*2+1] = byte(sample >> 8)
				phase += step
			}
			select {
			case out <- PCMPacket{Data: data, SampleRate: rate, Channels: 1}:
			case <-done:
				return
			}
		}
	}()

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}, nil
}
