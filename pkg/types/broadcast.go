package types

// BroadcastMode selects how students display the incoming stream.
type BroadcastMode string

const (
	ModeFullscreen BroadcastMode = "fullscreen"
	ModeWindow     BroadcastMode = "window"
)

// Valid reports whether the mode is one of the defined constants.
func (m BroadcastMode) Valid() bool {
	return m == ModeFullscreen || m == ModeWindow
}

// SourceKind discriminates BroadcastSource variants.
type SourceKind string

const (
	SourceTeacher SourceKind = "teacher"
	SourceStudent SourceKind = "student"
)

// BroadcastSource identifies whose screen feed is being distributed.
// StudentID/StudentName are set only for SourceStudent.
type BroadcastSource struct {
	Kind        SourceKind `json:"kind"`
	StudentID   string     `json:"student_id,omitempty"`
	StudentName string     `json:"student_name,omitempty"`
}

// TeacherSource returns the source value for the teacher's own screen.
func TeacherSource() BroadcastSource {
	return BroadcastSource{Kind: SourceTeacher}
}

// StudentSource returns the source value for a spotlighted student.
func StudentSource(studentID, studentName string) BroadcastSource {
	return BroadcastSource{Kind: SourceStudent, StudentID: studentID, StudentName: studentName}
}

// IsStudent reports whether the source is the screen of the given student.
func (s BroadcastSource) IsStudent(studentID string) bool {
	return s.Kind == SourceStudent && s.StudentID == studentID
}

// Broadcast command actions.
const (
	ActionStart        = "start"
	ActionStop         = "stop"
	ActionRequestShare = "request_student_share"
)

// BroadcastCommand tells students that the broadcast source or mode changed.
// Source and Mode are set for ActionStart; StudentID for ActionRequestShare.
type BroadcastCommand struct {
	Action    string           `json:"action"`
	Source    *BroadcastSource `json:"source,omitempty"`
	Mode      BroadcastMode    `json:"mode,omitempty"`
	StudentID string           `json:"student_id,omitempty"`
}

// StartCommand builds the command announcing a new active source.
func StartCommand(source BroadcastSource, mode BroadcastMode) BroadcastCommand {
	return BroadcastCommand{Action: ActionStart, Source: &source, Mode: mode}
}

// StopCommand builds the command announcing that broadcasting stopped.
func StopCommand() BroadcastCommand {
	return BroadcastCommand{Action: ActionStop}
}

// RequestShareCommand asks one student to begin sending its screen.
func RequestShareCommand(studentID string) BroadcastCommand {
	return BroadcastCommand{Action: ActionRequestShare, StudentID: studentID}
}

// VideoCodec tags the encoding of a video frame payload.
type VideoCodec string

const (
	CodecJPEG VideoCodec = "jpeg"
	// CodecBGRA carries raw pixels, mainly for diagnostics and tests.
	CodecBGRA VideoCodec = "bgra"
)

// VideoFrame is one captured screen image. FrameID is monotonic per capturing
// side; frames from different sources are not ordered against each other.
type VideoFrame struct {
	FrameID     uint64          `json:"frame_id"`
	TimestampMS uint64          `json:"timestamp_ms"`
	Source      BroadcastSource `json:"source"`
	Codec       VideoCodec      `json:"codec"`
	Width       uint32          `json:"width"`
	Height      uint32          `json:"height"`
	Fullscreen  bool            `json:"fullscreen"`
	Data        []byte          `json:"data"`
}

// AudioFrame is one PCM packet (~20ms). ForcePlay asks students to play it
// even when locally muted, subject to their configuration.
type AudioFrame struct {
	FrameID     uint64 `json:"frame_id"`
	TimestampMS uint64 `json:"timestamp_ms"`
	SampleRate  uint32 `json:"sample_rate"`
	Channels    uint8  `json:"channels"`
	ForcePlay   bool   `json:"force_play"`
	Data        []byte `json:"data"`
}
