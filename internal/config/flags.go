package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagNoPanel    = flag.Bool("no-panel", false, "Run the viewer without the ImGui panel")
	flagCascades   = flag.Int("cascades", 0, "Number of shadow cascades (1-3)")
	flagShadowSize = flag.Int("shadow-size", 0, "Shadow map resolution")
	flagScene      = flag.String("scene", "", "Path to scene file")
	flagFrames     = flag.Int("frames", 0, "Frames to simulate (shadowbench)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagNoPanel {
		cfg.Graphics.Panel = false
	}
	if *flagCascades != 0 {
		cfg.Shadows.SetNumCascades(*flagCascades)
	}
	if *flagShadowSize > 0 {
		cfg.Shadows.MapSize = *flagShadowSize
	}
	if *flagScene != "" {
		cfg.Scene.Path = *flagScene
	}
	if *flagFrames > 0 {
		cfg.Scene.Frames = *flagFrames
	}
}
