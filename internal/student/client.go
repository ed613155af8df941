// Package student implements the classroom client: the teacher connection,
// inbound message handling, heartbeats, spotlight screen sharing, file
// download/upload, and the interactive console.
package student

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"classcast/internal/capture"
	"classcast/internal/config"
	"classcast/internal/hub"
	"classcast/internal/transfer"
	"classcast/pkg/types"
	"classcast/pkg/wire"
)

// Version is reported to the teacher in the Hello message.
const Version = "0.4.0"

// Screen-share parameters used when this student is spotlighted.
const (
	shareFPS     = 12
	shareQuality = 75
)

// Collaborators are the rendering/capture dependencies the core does not
// implement itself.
type Collaborators struct {
	Renderer VideoRenderer
	Player   AudioPlayer
	Opener   FileOpener
	Grabber  capture.ScreenGrabber
	Encoder  capture.FrameEncoder
}

// Client connects to one teacher and runs until the connection drops or the
// context is cancelled.
type Client struct {
	cfg    *config.Student
	collab Collaborators
	log    zerolog.Logger

	outbound  *hub.Queue
	downloads *transfer.Table
	share     *capture.ScreenPipeline

	forcedFullscreen atomic.Bool

	modeMu sync.Mutex
	mode   types.BroadcastMode
}

// NewClient assembles a client from its configuration and collaborators.
func NewClient(cfg *config.Student, collab Collaborators, log zerolog.Logger) *Client {
	c := &Client{
		cfg:       cfg,
		collab:    collab,
		log:       log,
		outbound:  hub.NewQueue(),
		downloads: transfer.NewTable(cfg.AutoOpenFiles, log),
		mode:      types.ModeWindow,
	}

	c.share = capture.NewScreenPipeline(capture.ScreenConfig{
		Grabber: collab.Grabber,
		Encoder: collab.Encoder,
		FPS:     shareFPS,
		Quality: shareQuality,
		Source:  types.StudentSource(cfg.StudentID, cfg.StudentName),
		Sink: func(frame types.VideoFrame) {
			c.send(types.NewVideo(frame))
		},
		Log: log,
	})

	return c
}

// Run dials the teacher, performs the handshake, and processes messages
// until the context ends or the connection fails.
func (c *Client) Run(ctx context.Context) error {
	addr := c.cfg.TeacherAddr()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to teacher %s: %w", addr, err)
	}
	defer conn.Close()
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	c.log.Info().Str("addr", addr).Msg("connected to teacher")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the connection is the one lever that unblocks the reader.
	go func() {
		<-runCtx.Done()
		conn.Close()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		for {
			env, ok := c.outbound.Pop()
			if !ok {
				return
			}
			if err := wire.WriteMessage(conn, env); err != nil {
				c.log.Error().Err(err).Msg("write to teacher failed")
				return
			}
		}
	}()

	c.send(types.NewHello(types.Hello{
		StudentID:     c.cfg.StudentID,
		StudentName:   c.cfg.StudentName,
		ClientVersion: Version,
		Capabilities: types.Capabilities{
			ReceiveVideo: true,
			SendVideo:    true,
			ReceiveAudio: true,
			SendAudio:    false,
			FileTransfer: true,
		},
	}))

	go c.heartbeatLoop(runCtx)

	var readErr error
	for {
		env, err := wire.ReadMessage(conn)
		if err != nil {
			select {
			case <-runCtx.Done():
			default:
				c.log.Warn().Err(err).Msg("teacher connection lost")
				readErr = err
			}
			break
		}
		c.handleMessage(env)
	}

	cancel()
	c.share.Stop()
	c.collab.Renderer.Stop()
	c.downloads.CloseAll()
	c.outbound.Close()
	<-writerDone

	c.log.Info().Msg("student client stopped")
	return readErr
}

// send enqueues an outbound message; drops with a debug log once shutdown
// has closed the queue.
func (c *Client) send(env types.Envelope) {
	if err := c.outbound.Push(env); err != nil {
		c.log.Debug().Str("type", env.Type).Msg("dropping message, connection closed")
	}
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.send(types.NewHeartbeat())
		}
	}
}

// Upload sends the file at path to the teacher.
func (c *Client) Upload(path string) error {
	offer, err := transfer.Send(path, transfer.SendOptions{}, func(env types.Envelope) error {
		return c.outbound.Push(env)
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	c.log.Info().Str("file", offer.FileName).Uint64("size", offer.TotalSize).Msg("upload sent")
	return nil
}

// SetMuted toggles local audio playback.
func (c *Client) SetMuted(muted bool) {
	c.collab.Player.SetMuted(muted)
}

func (c *Client) currentMode() types.BroadcastMode {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()
	return c.mode
}

func (c *Client) setMode(mode types.BroadcastMode) {
	c.modeMu.Lock()
	c.mode = mode
	c.modeMu.Unlock()
}
