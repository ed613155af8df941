package student

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcast/internal/config"
	"classcast/pkg/types"
	"classcast/pkg/wire"
)

// fakeTeacher accepts a single client connection and exposes wire-level
// send/receive helpers.
type fakeTeacher struct {
	t        *testing.T
	listener net.Listener
	conn     net.Conn
	accepted chan struct{}
	in       chan types.Envelope
}

func newFakeTeacher(t *testing.T) *fakeTeacher {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ft := &fakeTeacher{
		t:        t,
		listener: listener,
		accepted: make(chan struct{}),
		in:       make(chan types.Envelope, 256),
	}
	t.Cleanup(func() {
		listener.Close()
		if ft.conn != nil {
			ft.conn.Close()
		}
	})

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		ft.conn = conn
		close(ft.accepted)
		for {
			env, err := wire.ReadMessage(conn)
			if err != nil {
				close(ft.in)
				return
			}
			ft.in <- env
		}
	}()
	return ft
}

func (ft *fakeTeacher) port() int {
	return ft.listener.Addr().(*net.TCPAddr).Port
}

func (ft *fakeTeacher) send(env types.Envelope) {
	ft.t.Helper()
	select {
	case <-ft.accepted:
	case <-time.After(5 * time.Second):
		ft.t.Fatal("no client connected")
	}
	require.NoError(ft.t, wire.WriteMessage(ft.conn, env))
}

func (ft *fakeTeacher) expect(msgType string) types.Envelope {
	ft.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case env, ok := <-ft.in:
			if !ok {
				ft.t.Fatalf("client disconnected while waiting for %s", msgType)
			}
			if env.Type == msgType {
				return env
			}
		case <-deadline:
			ft.t.Fatalf("timed out waiting for %s", msgType)
		}
	}
}

func runClient(t *testing.T, ft *fakeTeacher, mutate func(*config.Student)) (*clientFixture, context.CancelFunc, func() error) {
	t.Helper()
	f := newFixture(t, func(cfg *config.Student) {
		cfg.TeacherHost = "127.0.0.1"
		cfg.TeacherPort = ft.port()
		cfg.HeartbeatInterval = 50 * time.Millisecond
		if mutate != nil {
			mutate(cfg)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	var runErr error
	stopped := make(chan struct{})
	go func() {
		runErr = f.client.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Error("client did not stop")
		}
	})

	// wait blocks until Run returns and reports its error; safe to call more
	// than once.
	wait := func() error {
		<-stopped
		return runErr
	}
	return f, cancel, wait
}

func TestClientHandshake(t *testing.T) {
	ft := newFakeTeacher(t)
	runClient(t, ft, nil)

	hello, err := types.Decode[types.Hello](ft.expect(types.TypeHello))
	require.NoError(t, err)
	assert.Equal(t, "S01", hello.StudentID)
	assert.Equal(t, "Alice", hello.StudentName)
	assert.Equal(t, Version, hello.ClientVersion)
	assert.True(t, hello.Capabilities.ReceiveVideo)
	assert.True(t, hello.Capabilities.FileTransfer)
	assert.False(t, hello.Capabilities.SendAudio)
}

func TestClientHeartbeats(t *testing.T) {
	ft := newFakeTeacher(t)
	runClient(t, ft, nil)

	ft.expect(types.TypeHello)
	ft.expect(types.TypeHeartbeat)
	ft.expect(types.TypeHeartbeat)
}

func TestClientDownloadAndAck(t *testing.T) {
	ft := newFakeTeacher(t)
	f, _, _ := runClient(t, ft, nil)

	ft.expect(types.TypeHello)
	ft.send(types.NewWelcome(types.Welcome{ServerVersion: "0.4.0", Mode: types.ModeWindow}))

	transferID := uuid.New()
	ft.send(types.NewFileOffer(types.FileOffer{TransferID: transferID, FileName: "worksheet.txt", TotalSize: 12}))
	ft.send(types.NewFileChunk(types.FileChunk{TransferID: transferID, Bytes: []byte("exercise one"), FinalChunk: true}))
	ft.send(types.NewFileComplete(types.FileComplete{TransferID: transferID, Success: true}))

	ack, err := types.Decode[types.Ack](ft.expect(types.TypeAck))
	require.NoError(t, err)
	assert.Equal(t, "file transfer complete", ack.Text)

	data, err := os.ReadFile(filepath.Join(f.client.cfg.DownloadDir, "worksheet.txt"))
	require.NoError(t, err)
	assert.Equal(t, "exercise one", string(data))
}

func TestClientUpload(t *testing.T) {
	ft := newFakeTeacher(t)
	f, _, _ := runClient(t, ft, nil)

	ft.expect(types.TypeHello)

	path := filepath.Join(t.TempDir(), "answers.txt")
	require.NoError(t, os.WriteFile(path, []byte("42"), 0o644))
	require.NoError(t, f.client.Upload(path))

	offer, err := types.Decode[types.FileOffer](ft.expect(types.TypeFileOffer))
	require.NoError(t, err)
	assert.Equal(t, "answers.txt", offer.FileName)
	assert.EqualValues(t, 2, offer.TotalSize)

	chunk, err := types.Decode[types.FileChunk](ft.expect(types.TypeFileChunk))
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), chunk.Bytes)
	// Student uploads leave the advisory final flag unset.
	assert.False(t, chunk.FinalChunk)

	done, err := types.Decode[types.FileComplete](ft.expect(types.TypeFileComplete))
	require.NoError(t, err)
	assert.True(t, done.Success)
}

func TestClientSpotlightOverWire(t *testing.T) {
	ft := newFakeTeacher(t)
	_, _, _ = runClient(t, ft, nil)

	ft.expect(types.TypeHello)
	ft.send(types.NewBroadcast(types.StartCommand(types.StudentSource("S01", "Alice"), types.ModeFullscreen)))

	frame, err := types.Decode[types.VideoFrame](ft.expect(types.TypeVideo))
	require.NoError(t, err)
	assert.True(t, frame.Source.IsStudent("S01"))
	assert.Equal(t, types.CodecJPEG, frame.Codec)
}

func TestClientStopsOnContextCancel(t *testing.T) {
	ft := newFakeTeacher(t)
	_, cancel, wait := runClient(t, ft, nil)

	ft.expect(types.TypeHello)
	cancel()
	assert.NoError(t, wait())
}

func TestClientReportsConnectionLoss(t *testing.T) {
	ft := newFakeTeacher(t)
	_, _, wait := runClient(t, ft, nil)

	ft.expect(types.TypeHello)
	ft.conn.Close()
	assert.Error(t, wait())
}

func TestClientDialFailure(t *testing.T) {
	cfg := config.DefaultStudent()
	cfg.TeacherHost = "127.0.0.1"
	cfg.TeacherPort = reservedPort(t)
	cfg.DownloadDir = t.TempDir()

	c := NewClient(cfg, Collaborators{
		Renderer: &fakeRenderer{},
		Player:   &fakePlayer{},
		Opener:   &fakeOpener{},
		Grabber:  stubGrabber{},
		Encoder:  stubEncoder{},
	}, zerolog.Nop())

	assert.Error(t, c.Run(context.Background()))
}

// reservedPort returns a port that nothing is listening on.
func reservedPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}
