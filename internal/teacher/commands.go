package teacher

import (
	"fmt"
	"net"
	"time"

	"classcast/internal/journal"
	"classcast/internal/transfer"
	"classcast/pkg/types"
)

// StudentSummary is one row of the `students` listing.
type StudentSummary struct {
	StudentID   string
	DisplayName string
	Addr        net.Addr
	LastSeen    time.Time
}

// StartTeacherBroadcast makes the teacher's screen the active source. Any
// spotlighted student is told to stop by the broadcast command that follows
// the state change.
func (s *Server) StartTeacherBroadcast(mode types.BroadcastMode) error {
	source := types.TeacherSource()
	s.state.SetSource(&source, mode)
	// Stop first so a mode change takes effect; Start is a no-op while the
	// pipeline is already running.
	s.screen.Stop()
	if err := s.screen.Start(mode); err != nil {
		return fmt.Errorf("start screen capture: %w", err)
	}
	s.fanout.Broadcast(types.NewBroadcast(types.StartCommand(source, mode)))
	s.record(journal.KindBroadcast, "", fmt.Sprintf("teacher start (%s)", mode))
	s.log.Info().Str("mode", string(mode)).Msg("teacher screen broadcast started")
	return nil
}

// SpotlightStudent redirects the broadcast to the given student's screen.
// The teacher's own capture stops before the new source is announced.
func (s *Server) SpotlightStudent(studentID string) error {
	s.screen.Stop()

	name := s.findStudentName(studentID)
	source := types.StudentSource(studentID, name)
	s.state.SetSource(&source, types.ModeFullscreen)
	s.fanout.Broadcast(types.NewBroadcast(types.StartCommand(source, types.ModeFullscreen)))
	s.record(journal.KindBroadcast, studentID, "spotlight start")
	s.log.Info().Str("student_id", studentID).Msg("student screen share requested")
	return nil
}

// StopBroadcast returns to idle/window and tells every student.
func (s *Server) StopBroadcast() error {
	s.screen.Stop()
	s.state.SetSource(nil, types.ModeWindow)
	s.fanout.Broadcast(types.NewBroadcast(types.StopCommand()))
	s.record(journal.KindBroadcast, "", "stop")
	s.log.Info().Msg("broadcast stopped")
	return nil
}

// SendFileToAll distributes the file at path to every connected student.
// autoOpenOverride forces the auto-open request regardless of configuration.
func (s *Server) SendFileToAll(path string, autoOpenOverride bool) error {
	offer, err := transfer.Send(path, transfer.SendOptions{
		AutoOpen:  autoOpenOverride || s.cfg.FileAutoOpen,
		MarkFinal: true,
	}, func(env types.Envelope) error {
		s.fanout.Broadcast(env)
		return nil
	})
	if err != nil {
		return fmt.Errorf("distribute %s: %w", path, err)
	}

	s.record(journal.KindTransfer, "", fmt.Sprintf("sent %s (%d bytes)", offer.FileName, offer.TotalSize))
	s.log.Info().
		Str("file", offer.FileName).
		Uint64("size", offer.TotalSize).
		Int("students", s.registry.Len()).
		Msg("file distributed")
	return nil
}

// StartAudio begins the audio broadcast. Device errors surface to the caller
// and nothing starts.
func (s *Server) StartAudio() error {
	if err := s.audio.Start(); err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}
	s.log.Info().Msg("audio broadcast started")
	return nil
}

// StopAudio ends the audio broadcast.
func (s *Server) StopAudio() {
	s.audio.Stop()
	s.log.Info().Msg("audio broadcast stopped")
}

// SetAudioForce toggles whether outgoing audio frames override student mute.
func (s *Server) SetAudioForce(force bool) {
	s.audio.SetForcePlay(force)
	s.log.Info().Bool("force", force).Msg("audio force-play updated")
}

// ListStudents snapshots the connected students.
func (s *Server) ListStudents() []StudentSummary {
	sessions := s.registry.List()
	summaries := make([]StudentSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, StudentSummary{
			StudentID:   sess.StudentID,
			DisplayName: sess.StudentName,
			Addr:        sess.Addr,
			LastSeen:    sess.LastSeen(),
		})
	}
	return summaries
}

// findStudentName resolves a display name from the live registry, falling
// back to the configured roster, then the raw id.
func (s *Server) findStudentName(studentID string) string {
	if session, ok := s.registry.FindByStudentID(studentID); ok {
		return session.StudentName
	}
	for _, reg := range s.cfg.ExpectedStudents {
		if reg.StudentID == studentID && reg.StudentName != "" {
			return reg.StudentName
		}
	}
	return studentID
}
