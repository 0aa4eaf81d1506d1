// Package config parses the command-line flags that select a session's
// swapchain present mode, pipelining depth, and validation/ray-tracing
// feature toggles, per spec section 6.
package config

import (
	"flag"
	"fmt"

	"github.com/kestrelgfx/corerender/gapi"
)

// Config is the resolved set of startup options a cmd/demo-style entry
// point hands to frame.Renderer and webgpubackend.
type Config struct {
	PresentMode       gapi.PresentMode
	FramesInFlight    uint32
	EnableValidation  bool
	EnableRayTracing  bool
	Width             uint32
	Height            uint32
}

// Default returns the configuration used when no flags are supplied:
// triple-buffered FIFO presentation, validation on, ray tracing off (the
// startup scenario's fallback path requires a device that can be asked
// for ray tracing and decline it, not that every session demands it).
func Default() Config {
	return Config{
		PresentMode:      gapi.PresentModeFifo,
		FramesInFlight:   3,
		EnableValidation: true,
		EnableRayTracing: false,
		Width:            1280,
		Height:           720,
	}
}

// Parse builds a FlagSet over args (pass os.Args[1:] from main) and
// returns the resolved Config. A malformed --presentMode value is a
// startup failure, not silently coerced to the default, so a typo is
// caught immediately rather than producing a session running the wrong
// present mode.
func Parse(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("corerender", flag.ContinueOnError)
	presentMode := fs.String("presentMode", "fifo", "swapchain present mode: fifo, mailbox, or immediate")
	framesInFlight := fs.Uint("framesInFlight", uint(cfg.FramesInFlight), "number of pipelined in-flight frames")
	enableValidation := fs.Bool("enableValidation", cfg.EnableValidation, "enable graphics-API validation layers")
	enableRayTracing := fs.Bool("enableRayTracing", cfg.EnableRayTracing, "request a ray-tracing-capable device, falling back if unsupported")
	width := fs.Uint("width", uint(cfg.Width), "initial window width")
	height := fs.Uint("height", uint(cfg.Height), "initial window height")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	mode, ok := gapi.ParsePresentMode(*presentMode)
	if !ok {
		return Config{}, fmt.Errorf("config: unrecognized --presentMode %q (want fifo, mailbox, or immediate)", *presentMode)
	}
	cfg.PresentMode = mode
	cfg.FramesInFlight = uint32(*framesInFlight)
	cfg.EnableValidation = *enableValidation
	cfg.EnableRayTracing = *enableRayTracing
	cfg.Width = uint32(*width)
	cfg.Height = uint32(*height)

	if cfg.FramesInFlight == 0 {
		return Config{}, fmt.Errorf("config: --framesInFlight must be at least 1, got 0")
	}

	return cfg, nil
}
