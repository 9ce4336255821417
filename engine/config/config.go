// Package config loads application settings from YAML and turns them into the
// functional options of the gfx context and the window.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gfx/engine/window"
	"gopkg.in/yaml.v3"
)

// Config is the file format:
//
//	renderer: webgpu
//	threading: multi
//	width: 1280
//	height: 720
//	vsync: true
//	msaa: 4
//	debug: [stats, text]
//	window:
//	  title: cubes
//	  icon: resources/icon.png
//	limits:
//	  max_draw_calls: 65535
//	workers: 4
//	profiler_interval: 5s
type Config struct {
	Renderer        string       `yaml:"renderer"`
	Threading       string       `yaml:"threading"`
	Width           uint32       `yaml:"width"`
	Height          uint32       `yaml:"height"`
	VSync           *bool        `yaml:"vsync"`
	MSAA            uint32       `yaml:"msaa"`
	SRGB            bool         `yaml:"srgb"`
	MaxFrameLatency uint8        `yaml:"max_frame_latency"`
	Debug           []string     `yaml:"debug"`
	Strict          bool         `yaml:"strict"`
	Window          WindowConfig `yaml:"window"`
	Limits          LimitsConfig `yaml:"limits"`

	// Workers is the size of the pool running encoder jobs. Zero uses the engine default.
	Workers int `yaml:"workers"`

	// ProfilerInterval enables the profiler log line when positive.
	ProfilerInterval Duration `yaml:"profiler_interval"`
}

// WindowConfig configures the main window.
type WindowConfig struct {
	Title     string `yaml:"title"`
	Icon      string `yaml:"icon"`
	Resizable *bool  `yaml:"resizable"`
	MinWidth  int    `yaml:"min_width"`
	MinHeight int    `yaml:"min_height"`
	MaxWidth  int    `yaml:"max_width"`
	MaxHeight int    `yaml:"max_height"`
}

// LimitsConfig overrides individual gfx limits. Zero keeps the default.
type LimitsConfig struct {
	MaxEncoders     uint16 `yaml:"max_encoders"`
	MaxViews        uint16 `yaml:"max_views"`
	MaxDrawCalls    uint32 `yaml:"max_draw_calls"`
	TransientVbSize uint32 `yaml:"transient_vb_size"`
	TransientIbSize uint32 `yaml:"transient_ib_size"`
}

// Duration is a time.Duration written as a Go duration string ("250ms", "5s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses a YAML configuration file.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - *Config: the parsed configuration
//   - error: error if the file cannot be read, parsed or holds unknown names
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML configuration.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Config: the parsed configuration
//   - error: error if the document is malformed or holds unknown names
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if _, err := cfg.RendererType(); err != nil {
		return nil, err
	}
	if _, err := cfg.ThreadingMode(); err != nil {
		return nil, err
	}
	if _, err := cfg.DebugFlags(); err != nil {
		return nil, err
	}
	if _, err := cfg.resetFlags(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RendererType returns the configured backend. Empty and "auto" pick the best
// registered one.
func (c *Config) RendererType() (gfx.RendererType, error) {
	name := strings.ToLower(strings.TrimSpace(c.Renderer))
	if name == "" || name == "auto" {
		return gfx.RendererTypeCount, nil
	}
	for t := gfx.RendererTypeNoop; t < gfx.RendererTypeCount; t++ {
		if strings.ToLower(t.String()) == name {
			return t, nil
		}
	}
	return gfx.RendererTypeCount, fmt.Errorf("%w: unknown renderer %q", gfx.ErrInvalidConfig, c.Renderer)
}

// ThreadingMode returns the configured threading mode, single when unset.
func (c *Config) ThreadingMode() (gfx.ThreadingMode, error) {
	switch strings.ToLower(strings.TrimSpace(c.Threading)) {
	case "", "single":
		return gfx.ThreadingSingle, nil
	case "multi":
		return gfx.ThreadingMulti, nil
	case "manual":
		return gfx.ThreadingManual, nil
	}
	return gfx.ThreadingSingle, fmt.Errorf("%w: unknown threading mode %q", gfx.ErrInvalidConfig, c.Threading)
}

var debugNames = map[string]gfx.DebugFlags{
	"wireframe": gfx.DebugWireframe,
	"ifh":       gfx.DebugIFH,
	"stats":     gfx.DebugStats,
	"text":      gfx.DebugText,
	"profiler":  gfx.DebugProfiler,
}

// DebugFlags combines the configured debug names.
func (c *Config) DebugFlags() (gfx.DebugFlags, error) {
	var flags gfx.DebugFlags
	for _, name := range c.Debug {
		f, ok := debugNames[strings.ToLower(name)]
		if !ok {
			return gfx.DebugNone, fmt.Errorf("%w: unknown debug flag %q", gfx.ErrInvalidConfig, name)
		}
		flags |= f
	}
	return flags, nil
}

var msaaFlags = map[uint32]gfx.ResetFlags{
	0:  0,
	1:  0,
	2:  gfx.ResetMSAAX2,
	4:  gfx.ResetMSAAX4,
	8:  gfx.ResetMSAAX8,
	16: gfx.ResetMSAAX16,
}

func (c *Config) resetFlags() (gfx.ResetFlags, error) {
	flags, ok := msaaFlags[c.MSAA]
	if !ok {
		return 0, fmt.Errorf("%w: msaa %d (want 1, 2, 4, 8 or 16)", gfx.ErrInvalidConfig, c.MSAA)
	}
	if c.VSync == nil || *c.VSync {
		flags |= gfx.ResetVSync
	}
	if c.SRGB {
		flags |= gfx.ResetSRGBBackbuffer
	}
	return flags, nil
}

// ResetFlags returns the reset flags for the configured vsync, MSAA and sRGB
// settings. Vsync defaults to on.
func (c *Config) ResetFlags() gfx.ResetFlags {
	flags, _ := c.resetFlags()
	return flags
}

// ContextOptions converts the configuration to gfx context options. Unset values
// keep the gfx defaults.
//
// Returns:
//   - []gfx.ContextBuilderOption: options for gfx.NewContext
func (c *Config) ContextOptions() []gfx.ContextBuilderOption {
	rt, _ := c.RendererType()
	mode, _ := c.ThreadingMode()
	debug, _ := c.DebugFlags()

	opts := []gfx.ContextBuilderOption{
		gfx.WithRendererType(rt),
		gfx.WithThreading(mode),
		gfx.WithResetFlags(c.ResetFlags()),
		gfx.WithDebug(debug),
		gfx.WithStrict(c.Strict),
		gfx.WithLimits(c.limits()),
	}
	if c.Width > 0 && c.Height > 0 {
		opts = append(opts, gfx.WithResolution(c.Width, c.Height))
	}
	if c.MaxFrameLatency > 0 {
		opts = append(opts, gfx.WithMaxFrameLatency(c.MaxFrameLatency))
	}
	return opts
}

func (c *Config) limits() gfx.Limits {
	l := gfx.DefaultLimits()
	l.MaxEncoders = common.Coalesce(c.Limits.MaxEncoders, l.MaxEncoders)
	l.MaxViews = common.Coalesce(c.Limits.MaxViews, l.MaxViews)
	l.MaxDrawCalls = common.Coalesce(c.Limits.MaxDrawCalls, l.MaxDrawCalls)
	l.TransientVbSize = common.Coalesce(c.Limits.TransientVbSize, l.TransientVbSize)
	l.TransientIbSize = common.Coalesce(c.Limits.TransientIbSize, l.TransientIbSize)
	return l
}

// WindowOptions converts the configuration to options for the main window.
//
// Returns:
//   - []window.WindowBuilderOption: options for window.NewWindow
func (c *Config) WindowOptions() []window.WindowBuilderOption {
	var opts []window.WindowBuilderOption
	if c.Window.Title != "" {
		opts = append(opts, window.WithTitle(c.Window.Title))
	}
	if c.Window.Icon != "" {
		opts = append(opts, window.WithIconFile(c.Window.Icon))
	}
	if c.Width > 0 && c.Height > 0 {
		opts = append(opts, window.WithSize(int(c.Width), int(c.Height)))
	}
	if c.Window.Resizable != nil {
		opts = append(opts, window.WithResizable(*c.Window.Resizable))
	}
	if c.Window.MinWidth > 0 || c.Window.MinHeight > 0 {
		opts = append(opts, window.WithMinSize(c.Window.MinWidth, c.Window.MinHeight))
	}
	if c.Window.MaxWidth > 0 || c.Window.MaxHeight > 0 {
		opts = append(opts, window.WithMaxSize(c.Window.MaxWidth, c.Window.MaxHeight))
	}
	return opts
}
