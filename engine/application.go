package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/kilnworks/vetro/engine/core"
	"github.com/kilnworks/vetro/engine/renderer"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// One of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`
	// How many frame resources rotate in the pipeline. The CPU may record up
	// to FramesInFlight-1 frames ahead of the GPU.
	FramesInFlight int `toml:"frames_in_flight"`
	// Enables the Vulkan validation layers.
	Debug bool `toml:"debug"`
	// Caps the main loop at 60Hz when the driver cannot.
	LimitFrameRate bool `toml:"limit_frame_rate"`
}

// DefaultApplicationConfig is the configuration used when no file is found.
func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:      100,
		StartPosY:      100,
		StartWidth:     1280,
		StartHeight:    720,
		Name:           "Vetro",
		LogLevel:       "info",
		FramesInFlight: renderer.DefaultRingSize,
		Debug:          false,
		LimitFrameRate: false,
	}
}

// LoadApplicationConfig reads a TOML config file, layering the values it
// finds over the defaults. A missing file is not an error.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("no config file at %s, using defaults", path)
			return config, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if config.FramesInFlight < 2 {
		return nil, fmt.Errorf("frames_in_flight must be at least 2, got %d", config.FramesInFlight)
	}
	if config.StartWidth == 0 || config.StartHeight == 0 {
		return nil, fmt.Errorf("window size must be non-zero")
	}
	return config, nil
}

// ParseLogLevel maps the config string onto the logger's level. Unknown
// values fall back to info.
func ParseLogLevel(level string) core.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return core.LogLevelDebug
	case "warn":
		return core.LogLevelWarn
	case "error":
		return core.LogLevelError
	default:
		return core.LogLevelInfo
	}
}
