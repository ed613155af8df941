package teacher

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"classcast/pkg/types"
)

const consoleHelp = `commands:
  help                 show this help
  students             list connected students
  start [window]       start teacher screen broadcast (default fullscreen)
  stop                 stop the current broadcast
  spotlight <id>       broadcast a student's screen to the class
  send <path> [open]   distribute a file, optionally auto-opening it
  audio on|off|force|allow
                       control the audio broadcast
  quit                 exit`

// RunConsole reads operator commands from r until quit or EOF. Command
// failures are reported and the loop continues; only the operator decides to
// retry.
func (s *Server) RunConsole(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if s.dispatchConsole(line, w) {
			return
		}
	}
}

// dispatchConsole executes one console line, returning true on quit.
func (s *Server) dispatchConsole(line string, w io.Writer) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(w, consoleHelp)

	case "students":
		s.printStudents(w)

	case "start":
		mode := types.ModeFullscreen
		if len(args) > 0 && args[0] == "window" {
			mode = types.ModeWindow
		}
		if err := s.StartTeacherBroadcast(mode); err != nil {
			s.log.Error().Err(err).Msg("broadcast start failed")
		}

	case "stop":
		if err := s.StopBroadcast(); err != nil {
			s.log.Error().Err(err).Msg("broadcast stop failed")
		}

	case "spotlight":
		if len(args) == 0 {
			fmt.Fprintln(w, "usage: spotlight <student_id>")
			break
		}
		if err := s.SpotlightStudent(args[0]); err != nil {
			s.log.Error().Err(err).Msg("spotlight failed")
		}

	case "send":
		if len(args) == 0 {
			fmt.Fprintln(w, "usage: send <path> [open]")
			break
		}
		autoOpen := len(args) > 1 && args[1] == "open"
		if err := s.SendFileToAll(args[0], autoOpen); err != nil {
			s.log.Error().Err(err).Msg("file distribution failed")
		}

	case "audio":
		if len(args) == 0 {
			fmt.Fprintln(w, "usage: audio on|off|force|allow")
			break
		}
		switch args[0] {
		case "on":
			if err := s.StartAudio(); err != nil {
				s.log.Error().Err(err).Msg("audio start failed")
			}
		case "off":
			s.StopAudio()
		case "force":
			s.SetAudioForce(true)
		case "allow":
			s.SetAudioForce(false)
		default:
			fmt.Fprintln(w, "usage: audio on|off|force|allow")
		}

	case "quit", "exit":
		return true

	default:
		fmt.Fprintf(w, "unknown command %q, try help\n", cmd)
	}
	return false
}

func (s *Server) printStudents(w io.Writer) {
	students := s.ListStudents()
	if len(students) == 0 {
		fmt.Fprintln(w, "no students connected")
		return
	}
	fmt.Fprintln(w, "connected students:")
	for _, st := range students {
		fmt.Fprintf(w, "- %s (%s) @ %s, last seen %s\n",
			st.DisplayName, st.StudentID, st.Addr, st.LastSeen.Format("15:04:05"))
	}
}
