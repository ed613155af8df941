package student

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const consoleHelp = `commands:
  help            show this help
  upload <path>   send a file to the teacher
  mute            silence incoming audio
  unmute          resume incoming audio
  quit            exit`

// RunConsole reads commands from r until quit or EOF.
func (c *Client) RunConsole(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if c.dispatchConsole(line, w) {
			return
		}
	}
}

func (c *Client) dispatchConsole(line string, w io.Writer) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(w, consoleHelp)

	case "upload":
		if len(args) == 0 {
			fmt.Fprintln(w, "usage: upload <path>")
			break
		}
		if err := c.Upload(args[0]); err != nil {
			c.log.Error().Err(err).Msg("upload failed")
		}

	case "mute":
		c.SetMuted(true)
		fmt.Fprintln(w, "audio muted")

	case "unmute":
		c.SetMuted(false)
		fmt.Fprintln(w, "audio unmuted")

	case "quit", "exit":
		return true

	default:
		fmt.Fprintf(w, "unknown command %q, try help\n", cmd)
	}
	return false
}
