// Package config loads teacher and student configuration with the precedence
// defaults < environment < JSON file, then validates the result.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"classcast/pkg/types"
)

// StudentRegistration describes a student expected in the class roster, used
// for display-name fallback when a spotlighted student is offline.
type StudentRegistration struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
}

// Teacher holds the broadcast server configuration.
type Teacher struct {
	ListenHost string `json:"listen_host"`
	ListenPort int    `json:"listen_port"`

	// Screen capture parameters.
	FPS         int `json:"fps"`
	JPEGQuality int `json:"jpeg_quality"`

	EnableAudioByDefault bool `json:"enable_audio_by_default"`
	ForceAudio           bool `json:"force_audio"`

	UploadDir    string `json:"upload_dir"`
	FileAutoOpen bool   `json:"file_auto_open"`

	HeartbeatInterval time.Duration `json:"-"`
	IdleTimeout       time.Duration `json:"-"`

	// JournalPath enables the sqlite event journal when non-empty.
	JournalPath string `json:"journal_path"`

	ExpectedStudents []StudentRegistration `json:"expected_students"`
}

// Student holds the client configuration.
type Student struct {
	TeacherHost string `json:"teacher_host"`
	TeacherPort int    `json:"teacher_port"`

	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`

	AutoFullscreen        bool `json:"auto_fullscreen"`
	AllowForcedFullscreen bool `json:"allow_forced_fullscreen"`

	DownloadDir   string `json:"download_dir"`
	AutoOpenFiles bool   `json:"auto_open_files"`

	HeartbeatInterval time.Duration `json:"-"`
}

// DefaultTeacher returns teacher defaults matching a single-classroom setup.
func DefaultTeacher() *Teacher {
	return &Teacher{
		ListenHost:        "0.0.0.0",
		ListenPort:        5000,
		FPS:               12,
		JPEGQuality:       75,
		UploadDir:         "uploads",
		HeartbeatInterval: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}

// DefaultStudent returns student defaults for a local teacher.
func DefaultStudent() *Student {
	return &Student{
		TeacherHost:           "127.0.0.1",
		TeacherPort:           5000,
		StudentID:             "S00",
		StudentName:           "Student",
		AutoFullscreen:        true,
		AllowForcedFullscreen: true,
		DownloadDir:           "downloads",
		HeartbeatInterval:     5 * time.Second,
	}
}

// ListenAddr returns the host:port string the server binds.
func (c *Teacher) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

// TeacherAddr returns the host:port string the client dials.
func (c *Student) TeacherAddr() string {
	return fmt.Sprintf("%s:%d", c.TeacherHost, c.TeacherPort)
}

// Validate checks field ranges before the server starts.
func (c *Teacher) Validate() error {
	if c.ListenHost == "" {
		return fmt.Errorf("listen host cannot be empty")
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen port must be between 1 and 65535")
	}
	if c.FPS < 1 || c.FPS > 60 {
		return fmt.Errorf("fps must be between 1 and 60")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload directory cannot be empty")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	for _, reg := range c.ExpectedStudents {
		if !types.IsValidStudentID(reg.StudentID) {
			return fmt.Errorf("invalid expected student id %q", reg.StudentID)
		}
	}
	return nil
}

// Validate checks field ranges before the client connects.
func (c *Student) Validate() error {
	if c.TeacherHost == "" {
		return fmt.Errorf("teacher host cannot be empty")
	}
	if c.TeacherPort <= 0 || c.TeacherPort > 65535 {
		return fmt.Errorf("teacher port must be between 1 and 65535")
	}
	if !types.IsValidStudentID(c.StudentID) {
		return fmt.Errorf("student id must be 1-50 characters, alphanumeric plus underscore/hyphen")
	}
	if c.StudentName == "" {
		return fmt.Errorf("student name cannot be empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	return nil
}

// EnsureDirs creates the upload directory tree if missing.
func (c *Teacher) EnsureDirs() error {
	if err := os.MkdirAll(c.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload directory %s: %w", c.UploadDir, err)
	}
	if c.JournalPath != "" {
		if dir := filepath.Dir(c.JournalPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create journal directory %s: %w", dir, err)
			}
		}
	}
	return nil
}

// EnsureDirs creates the download directory tree if missing.
func (c *Student) EnsureDirs() error {
	if err := os.MkdirAll(c.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download directory %s: %w", c.DownloadDir, err)
	}
	return nil
}

// teacherFile mirrors Teacher for JSON parsing, with durations as strings.
type teacherFile struct {
	Teacher
	HeartbeatInterval string `json:"heartbeat_interval"`
	IdleTimeout       string `json:"idle_timeout"`
}

// studentFile mirrors Student for JSON parsing, with durations as strings.
type studentFile struct {
	Student
	HeartbeatInterval string `json:"heartbeat_interval"`
}

// LoadTeacher builds the teacher configuration. An empty path skips the file
// layer; a named file that cannot be read or parsed is an error.
func LoadTeacher(path string) (*Teacher, error) {
	cfg := DefaultTeacher()
	teacherFromEnv(cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read teacher config %s: %w", path, err)
		}
		file := teacherFile{Teacher: *cfg}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse teacher config %s: %w", path, err)
		}
		*cfg = file.Teacher
		if err := applyDuration(&cfg.HeartbeatInterval, file.HeartbeatInterval); err != nil {
			return nil, fmt.Errorf("teacher config %s: heartbeat_interval: %w", path, err)
		}
		if err := applyDuration(&cfg.IdleTimeout, file.IdleTimeout); err != nil {
			return nil, fmt.Errorf("teacher config %s: idle_timeout: %w", path, err)
		}
		resolveRelative(path, &cfg.UploadDir)
		resolveRelative(path, &cfg.JournalPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid teacher configuration: %w", err)
	}
	return cfg, nil
}

// LoadStudent builds the student configuration with the same precedence.
func LoadStudent(path string) (*Student, error) {
	cfg := DefaultStudent()
	studentFromEnv(cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read student config %s: %w", path, err)
		}
		file := studentFile{Student: *cfg}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse student config %s: %w", path, err)
		}
		*cfg = file.Student
		if err := applyDuration(&cfg.HeartbeatInterval, file.HeartbeatInterval); err != nil {
			return nil, fmt.Errorf("student config %s: heartbeat_interval: %w", path, err)
		}
		resolveRelative(path, &cfg.DownloadDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid student configuration: %w", err)
	}
	return cfg, nil
}

func teacherFromEnv(cfg *Teacher) {
	if host := os.Getenv("CLASSCAST_LISTEN_HOST"); host != "" {
		cfg.ListenHost = host
	}
	if port := os.Getenv("CLASSCAST_LISTEN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.ListenPort = p
		}
	}
	if dir := os.Getenv("CLASSCAST_UPLOAD_DIR"); dir != "" {
		cfg.UploadDir = dir
	}
	if path := os.Getenv("CLASSCAST_JOURNAL_PATH"); path != "" {
		cfg.JournalPath = path
	}
	if fps := os.Getenv("CLASSCAST_FPS"); fps != "" {
		if v, err := strconv.Atoi(fps); err == nil {
			cfg.FPS = v
		}
	}
}

func studentFromEnv(cfg *Student) {
	if host := os.Getenv("CLASSCAST_TEACHER_HOST"); host != "" {
		cfg.TeacherHost = host
	}
	if port := os.Getenv("CLASSCAST_TEACHER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.TeacherPort = p
		}
	}
	if id := os.Getenv("CLASSCAST_STUDENT_ID"); id != "" {
		cfg.StudentID = id
	}
	if name := os.Getenv("CLASSCAST_STUDENT_NAME"); name != "" {
		cfg.StudentName = name
	}
	if dir := os.Getenv("CLASSCAST_DOWNLOAD_DIR"); dir != "" {
		cfg.DownloadDir = dir
	}
}

func applyDuration(dst *time.Duration, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// resolveRelative anchors a relative path to the config file's directory,
// so paths in the file mean the same thing regardless of working directory.
func resolveRelative(configPath string, target *string) {
	if *target == "" || filepath.IsAbs(*target) {
		return
	}
	*target = filepath.Join(filepath.Dir(configPath), *target)
}
