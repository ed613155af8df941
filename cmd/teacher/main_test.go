package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerDefaultLevel(t *testing.T) {
	t.Setenv("CLASSCAST_LOG", "")
	log := newLogger()
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewLoggerLevelFromEnv(t *testing.T) {
	t.Setenv("CLASSCAST_LOG", "debug")
	log := newLogger()
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}

func TestNewLoggerBadLevelFallsBack(t *testing.T) {
	t.Setenv("CLASSCAST_LOG", "chatty")
	log := newLogger()
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
