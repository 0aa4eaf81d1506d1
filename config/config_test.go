package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/corerender/gapi"
)

func TestDefault_IsTripleBufferedFifoWithValidationOn(t *testing.T) {
	cfg := Default()
	assert.Equal(t, gapi.PresentModeFifo, cfg.PresentMode)
	assert.Equal(t, uint32(3), cfg.FramesInFlight)
	assert.True(t, cfg.EnableValidation)
	assert.False(t, cfg.EnableRayTracing)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]string{"--presentMode=mailbox", "--framesInFlight=2", "--enableRayTracing"})
	require.NoError(t, err)
	assert.Equal(t, gapi.PresentModeMailbox, cfg.PresentMode)
	assert.Equal(t, uint32(2), cfg.FramesInFlight)
	assert.True(t, cfg.EnableRayTracing)
}

func TestParse_RejectsUnrecognizedPresentMode(t *testing.T) {
	_, err := Parse([]string{"--presentMode=turbo"})
	assert.Error(t, err)
}

func TestParse_RejectsZeroFramesInFlight(t *testing.T) {
	_, err := Parse([]string{"--framesInFlight=0"})
	assert.Error(t, err)
}
