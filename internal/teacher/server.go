// Package teacher implements the broadcast server: the accept loop, the
// per-connection handshake and reader/writer tasks, broadcast transitions,
// file distribution, and the interactive console.
package teacher

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"classcast/internal/capture"
	"classcast/internal/config"
	"classcast/internal/hub"
	"classcast/internal/journal"
	"classcast/internal/transfer"
	"classcast/pkg/types"
	"classcast/pkg/wire"
)

// Version is reported to students in the Welcome message.
const Version = "0.4.0"

// Collaborators are the capture-side dependencies the core does not
// implement itself.
type Collaborators struct {
	Grabber capture.ScreenGrabber
	Encoder capture.FrameEncoder
	Audio   capture.AudioSource
}

// Server is the teacher-side session engine. Construction order follows the
// dependency chain: config, journal, hub state, pipelines, then listener.
type Server struct {
	cfg *config.Teacher
	log zerolog.Logger

	registry *hub.Registry
	state    *hub.BroadcastState
	fanout   *hub.Fanout
	screen   *capture.ScreenPipeline
	audio    *capture.AudioPipeline
	journal  *journal.Journal // nil when journaling is disabled

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	running  bool
	conns    map[net.Conn]struct{}

	wg sync.WaitGroup
}

// NewServer assembles a server from its configuration and collaborators.
// jrnl may be nil.
func NewServer(cfg *config.Teacher, collab Collaborators, jrnl *journal.Journal, log zerolog.Logger) *Server {
	registry := hub.NewRegistry()
	fanout := hub.NewFanout(registry, log)

	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		state:    hub.NewBroadcastState(),
		fanout:   fanout,
		journal:  jrnl,
		conns:    make(map[net.Conn]struct{}),
	}

	s.screen = capture.NewScreenPipeline(capture.ScreenConfig{
		Grabber: collab.Grabber,
		Encoder: collab.Encoder,
		FPS:     cfg.FPS,
		Quality: cfg.JPEGQuality,
		Source:  types.TeacherSource(),
		Sink: func(frame types.VideoFrame) {
			fanout.Broadcast(types.NewVideo(frame))
		},
		Log: log,
	})

	s.audio = capture.NewAudioPipeline(capture.AudioConfig{
		Source: collab.Audio,
		Sink: func(frame types.AudioFrame) {
			fanout.Broadcast(types.NewAudio(frame))
		},
		Log: log,
	}, cfg.ForceAudio)

	return s
}

// Start binds the listener and launches the accept loop and idle reaper.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr(), err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.listener = listener
	s.cancel = cancel
	s.running = true

	s.log.Info().Str("addr", listener.Addr().String()).Msg("teacher server listening")

	if s.cfg.EnableAudioByDefault {
		if err := s.audio.Start(); err != nil {
			s.log.Warn().Err(err).Msg("audio broadcast failed to start")
		}
	}

	s.wg.Add(2)
	go s.acceptLoop(runCtx)
	go s.reapLoop(runCtx)
	return nil
}

// Addr returns the bound listen address, useful when the port was 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the pipelines, closes the listener, and tears down every
// connection. Safe to call more than once.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	listener := s.listener
	s.mu.Unlock()

	cancel()
	listener.Close()
	s.screen.Stop()
	s.audio.Stop()

	// Closing the sockets unblocks every reader, including handlers still
	// waiting for their hello.
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	for _, session := range s.registry.Drain() {
		session.Close()
	}
	s.wg.Wait()
	s.log.Info().Msg("teacher server stopped")
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				s.log.Error().Err(err).Msg("accept failed, stopping listener")
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// reapLoop disconnects sessions that stop sending anything (heartbeats
// included) for longer than the configured idle timeout.
func (s *Server) reapLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.IdleTimeout)
			for _, session := range s.registry.List() {
				if session.LastSeen().Before(cutoff) {
					s.log.Warn().
						Str("student_id", session.StudentID).
						Time("last_seen", session.LastSeen()).
						Msg("disconnecting idle student")
					s.registry.Remove(session.ConnectionID)
					session.Close()
				}
			}
		}
	}
}

// trackConn records a live connection so Shutdown can close it. Returns false
// once the server is stopping; the caller must drop the connection.
func (s *Server) trackConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// registerSession adds the session under the same lock that Shutdown flips
// the running flag, so a session is either drained by Shutdown or never
// registered at all.
func (s *Server) registerSession(session *hub.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrShuttingDown
	}
	return s.registry.Add(session)
}

// handleConnection runs the full connection lifecycle: handshake, session
// registration, writer task, reader loop, teardown.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if !s.trackConn(conn) {
		return
	}
	defer s.untrackConn(conn)
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}

	addr := conn.RemoteAddr()

	// Handshake: the first message must be Hello, anything else is a
	// protocol violation and the connection is dropped.
	env, err := wire.ReadMessage(conn)
	if err != nil {
		s.log.Warn().Err(err).Str("addr", addr.String()).Msg("handshake read failed")
		return
	}
	if env.Type != types.TypeHello {
		s.log.Warn().Str("addr", addr.String()).Str("type", env.Type).
			Msg("protocol violation: first message was not hello")
		return
	}
	hello, err := types.Decode[types.Hello](env)
	if err != nil {
		s.log.Warn().Err(err).Str("addr", addr.String()).Msg("malformed hello")
		return
	}

	connectionID := uuid.New()
	session := hub.NewSession(connectionID, addr, hello)
	if err := s.registerSession(session); err != nil {
		s.log.Warn().Err(err).Str("addr", addr.String()).Msg("rejecting student connection")
		return
	}

	log := s.log.With().
		Str("student_id", hello.StudentID).
		Str("addr", addr.String()).
		Logger()
	log.Info().
		Str("name", hello.StudentName).
		Str("client_version", hello.ClientVersion).
		Bool("can_send_video", hello.Capabilities.SendVideo).
		Msg("student connected")
	s.record(journal.KindJoin, hello.StudentID, hello.StudentName)

	// Writer task: single drainer of the session queue, FIFO per recipient.
	// Closing the queue makes it close the socket, which unblocks the reader.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		for {
			out, ok := session.Next()
			if !ok {
				return
			}
			if err := wire.WriteMessage(conn, out); err != nil {
				log.Warn().Err(err).Msg("write to student failed")
				return
			}
		}
	}()

	session.Send(types.NewWelcome(types.Welcome{
		ServerVersion:   Version,
		ForceFullscreen: s.state.Mode() == types.ModeFullscreen,
		Mode:            s.state.Mode(),
	}))

	uploads := transfer.NewTable(false, log)
	defer uploads.CloseAll()

	s.readLoop(ctx, conn, session, hello, uploads, log)

	s.registry.Remove(connectionID)
	session.Close()
	<-writerDone
	s.record(journal.KindLeave, hello.StudentID, "")
	log.Info().Msg("student disconnected")
}

// readLoop decodes inbound messages and drives the state machine, fan-out,
// and upload table until the connection fails or the server stops.
func (s *Server) readLoop(
	ctx context.Context,
	conn net.Conn,
	session *hub.Session,
	hello types.Hello,
	uploads *transfer.Table,
	log zerolog.Logger,
) {
	for {
		env, err := wire.ReadMessage(conn)
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				log.Warn().Err(err).Msg("student connection lost")
			}
			return
		}

		// Any inbound traffic counts as liveness for the idle reaper.
		session.Touch()

		switch env.Type {
		case types.TypeHello:
			log.Warn().Msg("duplicate hello ignored")

		case types.TypeHeartbeat:
			// Touch above is the whole effect.

		case types.TypeVideo:
			// Relay the spotlighted student's stream to everyone but the
			// sender. Frames from anyone else are stale (commands cross
			// in flight) and are dropped.
			if s.state.IsStudentBroadcasting(hello.StudentID) {
				s.fanout.BroadcastExcept(env, session.ConnectionID)
			}

		case types.TypeAudio:
			s.fanout.BroadcastExcept(env, session.ConnectionID)

		case types.TypeFileOffer:
			offer, err := types.Decode[types.FileOffer](env)
			if err != nil {
				log.Warn().Err(err).Msg("malformed file offer")
				continue
			}
			dir := filepath.Join(s.cfg.UploadDir, types.SanitizeFilename(hello.StudentID))
			path, err := uploads.Open(offer, dir)
			if err != nil {
				log.Error().Err(err).Str("file", offer.FileName).Msg("cannot accept upload")
				session.Send(types.NewError(fmt.Sprintf("cannot accept upload %s", offer.FileName)))
				continue
			}
			log.Info().Str("file", offer.FileName).Str("path", path).Msg("receiving upload")

		case types.TypeFileChunk:
			chunk, err := types.Decode[types.FileChunk](env)
			if err != nil {
				log.Warn().Err(err).Msg("malformed file chunk")
				continue
			}
			if err := uploads.WriteChunk(chunk); err != nil {
				log.Error().Err(err).Msg("upload write failed")
			}

		case types.TypeFileComplete:
			done, err := types.Decode[types.FileComplete](env)
			if err != nil {
				log.Warn().Err(err).Msg("malformed file completion")
				continue
			}
			completed, err := uploads.Complete(done)
			if err != nil {
				log.Error().Err(err).Msg("upload finalize failed")
				continue
			}
			if completed != nil && done.Success {
				log.Info().Str("path", completed.Path).Msg("upload complete")
				s.record(journal.KindTransfer, hello.StudentID, completed.Path)
				session.Send(types.NewFileComplete(types.FileComplete{
					TransferID: done.TransferID,
					Success:    true,
					Message:    "upload received",
				}))
			}

		case types.TypeAck:
			// Informational only.

		case types.TypeError:
			if msg, err := types.Decode[types.ErrorMessage](env); err == nil {
				log.Warn().Str("error", msg.Text).Msg("student reported error")
			}

		default:
			log.Warn().Str("type", env.Type).Msg("unexpected message type from student")
		}
	}
}

func (s *Server) record(kind, studentID, detail string) {
	if s.journal != nil {
		s.journal.Record(kind, studentID, detail)
	}
}
