package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"classcast/internal/capture"
	"classcast/internal/config"
	"classcast/internal/journal"
	"classcast/internal/teacher"
	"classcast/pkg/types"
)

func main() {
	root := &cobra.Command{
		Use:           "teacher",
		Short:         "Classroom broadcast teacher console",
		Version:       teacher.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringP("config", "c", "", "path to teacher configuration (JSON)")
	root.Flags().Bool("auto-start", false, "start the screen broadcast on launch")

	if err := root.Execute(); err != nil {
		log := newLogger()
		log.Fatal().Err(err).Msg("teacher failed")
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	configPath, _ := cmd.Flags().GetString("config")
	autoStart, _ := cmd.Flags().GetBool("auto-start")

	cfg, err := config.LoadTeacher(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	var jrnl *journal.Journal
	if cfg.JournalPath != "" {
		jrnl, err = journal.Open(cfg.JournalPath, log)
		if err != nil {
			return err
		}
		defer jrnl.Close()
	}

	// Platform capture collaborators are wired here. The synthetic sources
	// keep the binary usable headless; a desktop build swaps in real ones.
	collab := teacher.Collaborators{
		Grabber: capture.NewSyntheticGrabber(320, 180),
		Encoder: capture.BGRAEncoder{},
		Audio:   capture.ToneSource{},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := teacher.NewServer(cfg, collab, jrnl, log)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Shutdown()

	if autoStart {
		if err := srv.StartTeacherBroadcast(types.ModeFullscreen); err != nil {
			log.Warn().Err(err).Msg("auto-start broadcast failed")
		}
	}

	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		srv.RunConsole(os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case <-consoleDone:
	}
	return nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if s := os.Getenv("CLASSCAST_LOG"); s != "" {
		if l, err := zerolog.ParseLevel(s); err == nil {
			level = l
		}
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}
