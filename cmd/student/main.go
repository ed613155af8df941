package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"classcast/internal/capture"
	"classcast/internal/config"
	"classcast/internal/student"
)

func main() {
	root := &cobra.Command{
		Use:           "student",
		Short:         "Classroom broadcast student client",
		Version:       student.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringP("config", "c", "", "path to student configuration (JSON)")

	if err := root.Execute(); err != nil {
		log := newLogger()
		log.Fatal().Err(err).Msg("student failed")
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadStudent(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	collab := student.Collaborators{
		Renderer: student.NewLoggingRenderer(log),
		Player:   student.NewLoggingPlayer(log),
		Opener:   student.NewLoggingOpener(log),
		Grabber:  capture.NewSyntheticGrabber(320, 180),
		Encoder:  capture.BGRAEncoder{},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := student.NewClient(cfg, collab, log)

	runDone := make(chan error, 1)
	go func() {
		runDone <- client.Run(ctx)
	}()

	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		client.RunConsole(os.Stdin, os.Stdout)
	}()

	select {
	case err := <-runDone:
		var netErr net.Error
		if err != nil && !errors.As(err, &netErr) {
			return err
		}
		return nil
	case <-consoleDone:
		stop()
		<-runDone
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		<-runDone
		return nil
	}
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
