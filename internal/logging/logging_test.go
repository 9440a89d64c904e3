package logging_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/kansuler/pggateway/internal/logging"
)

func TestNew_SetsRequestedLevel(t *testing.T) {
	logger := logging.New(logging.LevelWarn, false)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNew_DefaultsToInfoForUnknownLevel(t *testing.T) {
	logger := logging.New(logging.Level("bogus"), false)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
