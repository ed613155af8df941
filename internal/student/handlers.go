package student

import (
	"classcast/pkg/types"
)

// handleMessage processes one inbound envelope. Individual handler failures
// are logged and the loop continues; only transport errors end the session.
func (c *Client) handleMessage(env types.Envelope) {
	switch env.Type {
	case types.TypeWelcome:
		welcome, err := types.Decode[types.Welcome](env)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed welcome")
			return
		}
		c.forcedFullscreen.Store(welcome.ForceFullscreen)
		c.setMode(welcome.Mode)
		c.log.Info().
			Str("server_version", welcome.ServerVersion).
			Str("mode", string(welcome.Mode)).
			Msg("registered with teacher")

	case types.TypeBroadcast:
		cmd, err := types.Decode[types.BroadcastCommand](env)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed broadcast command")
			return
		}
		c.handleBroadcastCommand(cmd)

	case types.TypeVideo:
		frame, err := types.Decode[types.VideoFrame](env)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed video frame")
			return
		}
		c.collab.Renderer.Render(frame, c.currentMode())

	case types.TypeAudio:
		frame, err := types.Decode[types.AudioFrame](env)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed audio frame")
			return
		}
		c.collab.Player.Play(frame)

	case types.TypeFileOffer:
		offer, err := types.Decode[types.FileOffer](env)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed file offer")
			return
		}
		path, err := c.downloads.Open(offer, c.cfg.DownloadDir)
		if err != nil {
			c.log.Error().Err(err).Str("file", offer.FileName).Msg("cannot accept file")
			c.send(types.NewError("cannot accept file " + offer.FileName))
			return
		}
		c.log.Info().
			Str("transfer_id", offer.TransferID.String()).
			Str("file", offer.FileName).
			Str("path", path).
			Msg("incoming file")

	case types.TypeFileChunk:
		chunk, err := types.Decode[types.FileChunk](env)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed file chunk")
			return
		}
		if err := c.downloads.WriteChunk(chunk); err != nil {
			c.log.Error().Err(err).Msg("download write failed")
		}

	case types.TypeFileComplete:
		done, err := types.Decode[types.FileComplete](env)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed file completion")
			return
		}
		completed, err := c.downloads.Complete(done)
		if err != nil {
			c.log.Error().Err(err).Msg("download finalize failed")
			return
		}
		if completed == nil {
			return
		}
		if completed.AutoOpen {
			if err := c.collab.Opener.Open(completed.Path); err != nil {
				c.log.Warn().Err(err).Str("path", completed.Path).Msg("auto-open failed")
			}
		}
		ack := done.Message
		if ack == "" {
			ack = "file transfer complete"
		}
		c.send(types.NewAck(ack))

	case types.TypeHeartbeat:
		c.send(types.NewHeartbeat())

	case types.TypeError:
		if msg, err := types.Decode[types.ErrorMessage](env); err == nil {
			c.log.Warn().Str("error", msg.Text).Msg("teacher reported error")
		}

	default:
		c.log.Warn().Str("type", env.Type).Msg("unexpected message type from teacher")
	}
}

// handleBroadcastCommand reacts to source/mode changes, including spotlight
// self-detection: only the named student starts its share pipeline.
func (c *Client) handleBroadcastCommand(cmd types.BroadcastCommand) {
	switch cmd.Action {
	case types.ActionStart:
		c.setMode(c.resolveMode(cmd.Mode))
		if cmd.Source == nil {
			c.log.Warn().Msg("start command without a source")
			return
		}
		switch {
		case cmd.Source.Kind == types.SourceTeacher:
			c.share.Stop()
			c.log.Info().Str("mode", string(c.currentMode())).Msg("teacher broadcast started")
		case cmd.Source.IsStudent(c.cfg.StudentID):
			if err := c.share.Start(types.ModeFullscreen); err != nil {
				c.log.Error().Err(err).Msg("screen share failed to start")
				c.send(types.NewError("screen share unavailable"))
			} else {
				c.log.Info().Msg("sharing this screen with the class")
			}
		default:
			c.share.Stop()
			c.log.Info().Str("student_id", cmd.Source.StudentID).Msg("classmate broadcast started")
		}

	case types.ActionStop:
		c.share.Stop()
		c.collab.Renderer.Stop()
		c.setMode(types.ModeWindow)
		c.log.Info().Msg("broadcast stopped")

	case types.ActionRequestShare:
		if cmd.StudentID != c.cfg.StudentID {
			return
		}
		if err := c.share.Start(types.ModeFullscreen); err != nil {
			c.log.Error().Err(err).Msg("screen share failed to start")
			c.send(types.NewError("screen share unavailable"))
		}

	default:
		c.log.Warn().Str("action", cmd.Action).Msg("unknown broadcast action")
	}
}

// resolveMode applies the local fullscreen policy: a fullscreen request is
// honored when the student opted in, or when the teacher forces it and the
// configuration allows being forced.
func (c *Client) resolveMode(requested types.BroadcastMode) types.BroadcastMode {
	if requested != types.ModeFullscreen {
		return types.ModeWindow
	}
	if c.cfg.AutoFullscreen {
		return types.ModeFullscreen
	}
	if c.forcedFullscreen.Load() && c.cfg.AllowForcedFullscreen {
		return types.ModeFullscreen
	}
	return types.ModeWindow
}
