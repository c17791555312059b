// Package config loads the run configuration from TOML or YAML and watches it for edits.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/graph"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	SourceKindVideo  = "video"
	SourceKindImages = "images"

	FilterNearest = "nearest"
	FilterLinear  = "linear"
)

var (
	// ErrInvalidConfig wraps every Validate failure.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupportedFormat is returned by Load for an extension other than .toml, .yaml or .yml.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

type Source struct {
	Path      string  `toml:"path" yaml:"path"`
	Kind      string  `toml:"kind" yaml:"kind"`
	FPS       float64 `toml:"fps" yaml:"fps"`
	MaxFrames int     `toml:"max_frames" yaml:"max_frames"`
}

type Output struct {
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`
}

type Sampler struct {
	Filter string `toml:"filter" yaml:"filter"`
}

type Blur struct {
	Sigma      float64 `toml:"sigma" yaml:"sigma"`
	KernelSize int     `toml:"kernel_size" yaml:"kernel_size"`
}

type Window struct {
	Title string `toml:"title" yaml:"title"`
	VSync bool   `toml:"vsync" yaml:"vsync"`
}

// Renderer tunes the device. Software forces the WGPU fallback adapter; Workers sizes the CPU
// backend's pool (0 = one per CPU).
type Renderer struct {
	Software bool `toml:"software" yaml:"software"`
	Workers  int  `toml:"workers" yaml:"workers"`
}

type Engine struct {
	TickRate   float64 `toml:"tick_rate" yaml:"tick_rate"`
	FrameLimit float64 `toml:"frame_limit" yaml:"frame_limit"`
	Profiling  bool    `toml:"profiling" yaml:"profiling"`
}

type Script struct {
	Path string `toml:"path" yaml:"path"`
}

// Config is the complete run configuration. Zero sections are filled from Default before decoding.
type Config struct {
	Backend  string   `toml:"backend" yaml:"backend"`
	Graph    string   `toml:"graph" yaml:"graph"`
	Renderer Renderer `toml:"renderer" yaml:"renderer"`
	Source  Source  `toml:"source" yaml:"source"`
	Output  Output  `toml:"output" yaml:"output"`
	Sampler Sampler `toml:"sampler" yaml:"sampler"`
	Blur    Blur    `toml:"blur" yaml:"blur"`
	Window  Window  `toml:"window" yaml:"window"`
	Engine  Engine  `toml:"engine" yaml:"engine"`
	Script  Script  `toml:"script" yaml:"script"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	blur := parameter_store.DefaultParameters()
	return Config{
		Backend: "wgpu",
		Graph:   string(graph.VariantMontage),
		Source:  Source{Kind: SourceKindVideo, FPS: 24},
		Output:  Output{Width: 1280, Height: 720},
		Sampler: Sampler{Filter: FilterNearest},
		Blur:    Blur{Sigma: blur.Sigma, KernelSize: blur.KernelSize},
		Window:  Window{Title: "oxy-vidfx", VSync: true},
		Engine:  Engine{TickRate: 60},
	}
}

// Load decodes the file at path over Default and validates the result. Unknown keys are errors.
//
// Parameters:
//   - path: a .toml, .yaml or .yml file
//
// Returns:
//   - Config: the loaded configuration
//   - error: read, decode or validation failure
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Decode(filepath.Ext(path), data)
}

// Decode parses data in the format named by ext over Default and validates the result.
//
// Parameters:
//   - ext: the file extension, with or without the leading dot
//   - data: the file contents
//
// Returns:
//   - Config: the decoded configuration
//   - error: decode or validation failure
func Decode(ext string, data []byte) (Config, error) {
	c := Default()
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return Config{}, fmt.Errorf("config: decode toml: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// an empty document leaves the defaults
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("config: %w: %q", ErrUnsupportedFormat, ext)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks every enum and range.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig naming the first bad field
func (c Config) Validate() error {
	if _, err := c.BackendType(); err != nil {
		return err
	}
	if _, err := c.Variant(); err != nil {
		return err
	}
	if _, err := c.FilterMode(); err != nil {
		return err
	}
	switch c.Source.Kind {
	case SourceKindVideo, SourceKindImages:
	default:
		return fmt.Errorf("%w: source.kind %q", ErrInvalidConfig, c.Source.Kind)
	}
	if c.Source.FPS <= 0 {
		return fmt.Errorf("%w: source.fps must be positive", ErrInvalidConfig)
	}
	if c.Source.MaxFrames < 0 {
		return fmt.Errorf("%w: source.max_frames must not be negative", ErrInvalidConfig)
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("%w: output size %dx%d", ErrInvalidConfig, c.Output.Width, c.Output.Height)
	}
	if err := c.BlurParameters().Validate(); err != nil {
		return fmt.Errorf("%w: blur: %w", ErrInvalidConfig, err)
	}
	if c.Renderer.Workers < 0 {
		return fmt.Errorf("%w: renderer.workers must not be negative", ErrInvalidConfig)
	}
	if c.Engine.TickRate < 0 || c.Engine.FrameLimit < 0 {
		return fmt.Errorf("%w: engine rates must not be negative", ErrInvalidConfig)
	}
	return nil
}

// BackendType maps backend to a renderer backend.
func (c Config) BackendType() (renderer.RendererBackendType, error) {
	switch strings.ToLower(c.Backend) {
	case "wgpu", "gpu":
		return renderer.BackendTypeWGPU, nil
	case "cpu":
		return renderer.BackendTypeCPU, nil
	}
	return 0, fmt.Errorf("%w: backend %q", ErrInvalidConfig, c.Backend)
}

// Variant maps graph to a graph variant.
func (c Config) Variant() (graph.Variant, error) {
	for _, v := range graph.Variants() {
		if string(v) == c.Graph {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: graph %q", ErrInvalidConfig, c.Graph)
}

// FilterMode maps sampler.filter to a wgpu filter mode.
func (c Config) FilterMode() (wgpu.FilterMode, error) {
	switch c.Sampler.Filter {
	case FilterNearest, "":
		return wgpu.FilterModeNearest, nil
	case FilterLinear:
		return wgpu.FilterModeLinear, nil
	}
	return 0, fmt.Errorf("%w: sampler.filter %q", ErrInvalidConfig, c.Sampler.Filter)
}

// RendererOptions returns the renderer builder options for the device settings.
func (c Config) RendererOptions() []renderer.RendererBuilderOption {
	mode := renderer.PresentModeUncapped
	if c.Window.VSync {
		mode = renderer.PresentModeVSync
	}
	return []renderer.RendererBuilderOption{
		renderer.WithForceSoftwareRenderer(c.Renderer.Software),
		renderer.WithWorkers(c.Renderer.Workers),
		renderer.WithPresentMode(mode),
	}
}

func (c Config) BlurParameters() parameter_store.BlurParameters {
	return parameter_store.BlurParameters{Sigma: c.Blur.Sigma, KernelSize: c.Blur.KernelSize}
}
