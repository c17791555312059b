package main

import (
	"io"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/config"
	"github.com/spf13/cobra"
)

// options holds the persistent flags. Flags the user set override the config file.
type options struct {
	configPath string
	logJSON    bool
	logLevel   string

	backend    string
	graph      string
	source     string
	kind       string
	fps        float64
	maxFrames  int
	width      int
	height     int
	filter     string
	sigma      float64
	kernelSize int
	script     string
	validate   bool
	vsync      bool
	software   bool
	workers    int
}

func newRootCommand() *cobra.Command {
	return (&options{}).command()
}

func (o *options) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "oxy-vidfx",
		Short:         "Run video frames through a compute-shader effect graph",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setupLogger(cmd.ErrOrStderr())
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "TOML or YAML config file")
	f.BoolVar(&o.logJSON, "log-json", false, "log as JSON instead of text")
	f.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	f.StringVar(&o.backend, "backend", "", "wgpu or cpu")
	f.StringVar(&o.graph, "graph", "", "montage or blur")
	f.StringVarP(&o.source, "source", "s", "", "video file, image directory or glob")
	f.StringVar(&o.kind, "kind", "", "video or images")
	f.Float64Var(&o.fps, "fps", 0, "video sampling rate in frames per second of media time")
	f.IntVar(&o.maxFrames, "max-frames", 0, "maximum frames to decode (0 = all)")
	f.IntVar(&o.width, "width", 0, "output width")
	f.IntVar(&o.height, "height", 0, "output height")
	f.StringVar(&o.filter, "filter", "", "sampler filter, nearest or linear")
	f.Float64Var(&o.sigma, "sigma", 0, "blur sigma")
	f.IntVar(&o.kernelSize, "kernel-size", 0, "blur kernel size")
	f.StringVar(&o.script, "script", "", "Lua parameter script")
	f.BoolVar(&o.validate, "validate-kernels", true, "validate every kernel with naga before running")
	f.BoolVar(&o.vsync, "vsync", true, "wait for vertical blank when presenting")
	f.BoolVar(&o.software, "software", false, "force the WGPU software fallback adapter")
	f.IntVar(&o.workers, "workers", 0, "CPU backend workers (0 = one per CPU)")

	root.AddCommand(newRunCommand(o), newHeadlessCommand(o), newValidateCommand(o))
	return root
}

func (o *options) setupLogger(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if o.logJSON {
		h = slog.NewJSONHandler(w, handlerOpts)
	}
	common.SetLogger(slog.New(h))
	return nil
}

// resolve loads the config file, if any, and applies every flag the user set.
func (o *options) resolve(cmd *cobra.Command) (config.Config, error) {
	c := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		c = loaded
	}

	changed := cmd.Flags().Changed
	if changed("backend") {
		c.Backend = o.backend
	}
	if changed("graph") {
		c.Graph = o.graph
	}
	if changed("source") {
		c.Source.Path = o.source
	}
	if changed("kind") {
		c.Source.Kind = o.kind
	}
	if changed("fps") {
		c.Source.FPS = o.fps
	}
	if changed("max-frames") {
		c.Source.MaxFrames = o.maxFrames
	}
	if changed("width") {
		c.Output.Width = o.width
	}
	if changed("height") {
		c.Output.Height = o.height
	}
	if changed("filter") {
		c.Sampler.Filter = o.filter
	}
	if changed("sigma") {
		c.Blur.Sigma = o.sigma
	}
	if changed("kernel-size") {
		c.Blur.KernelSize = o.kernelSize
	}
	if changed("script") {
		c.Script.Path = o.script
	}
	if changed("vsync") {
		c.Window.VSync = o.vsync
	}
	if changed("software") {
		c.Renderer.Software = o.software
	}
	if changed("workers") {
		c.Renderer.Workers = o.workers
	}

	if err := c.Validate(); err != nil {
		return config.Config{}, err
	}
	return c, nil
}
