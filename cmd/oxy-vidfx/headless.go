package main

import (
	"errors"
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-vidfx/config"
	"github.com/Carmen-Shannon/oxy-vidfx/engine"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/presenter"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/spf13/cobra"
)

type headlessOptions struct {
	ticks uint64
	save  string
}

func newHeadlessCommand(o *options) *cobra.Command {
	h := &headlessOptions{}
	cmd := &cobra.Command{
		Use:   "headless",
		Short: "Run a fixed number of ticks without a window and summarise the last frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.resolve(cmd)
			if err != nil {
				return err
			}
			last, err := o.headless(c, h.ticks)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			means := presenter.QuadrantMeans(last)
			for i, name := range []string{"top-left", "top-right", "bottom-left", "bottom-right"} {
				m := means[i]
				fmt.Fprintf(out, "%-12s rgba(%d, %d, %d, %d)\n", name, m.R, m.G, m.B, m.A)
			}
			if h.save != "" {
				if err := imgio.Save(h.save, last, imgio.PNGEncoder()); err != nil {
					return fmt.Errorf("save %q: %w", h.save, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&h.ticks, "ticks", "n", 1, "number of pipeline ticks to run")
	cmd.Flags().StringVar(&h.save, "save", "", "write the last frame to this PNG file")
	return cmd
}

// headless runs ticks pipeline ticks at the configured output size and returns the last presented frame.
func (o *options) headless(c config.Config, ticks uint64) (*image.RGBA, error) {
	if ticks == 0 {
		return nil, errors.New("--ticks must be positive")
	}
	backend, err := c.BackendType()
	if err != nil {
		return nil, err
	}
	r, err := renderer.NewRenderer(backend, c.RendererOptions()...)
	if err != nil {
		return nil, err
	}
	defer r.Release()

	frames, err := openFrames(r, c)
	if err != nil {
		return nil, err
	}

	// the capture is released with the pipeline, so keep the frame from the callback
	var last *image.RGBA
	capture := presenter.NewCapturePresenter(r, presenter.WithFrameCallback(func(_ int, img *image.RGBA) {
		last = img
	}))

	opts, err := pipelineOptions(c, o.validate)
	if err != nil {
		frames.Release()
		return nil, err
	}
	size := func() (int, int) { return c.Output.Width, c.Output.Height }
	p := orchestrator.NewPipeline(r, frames, capture, append(opts, orchestrator.WithSizeFunc(size))...)
	if err := p.Init(); err != nil {
		return nil, err
	}

	e := engine.NewEngine(p, append(engineOptions(c), engine.WithMaxFrames(ticks))...)
	closeScript, err := attachScript(e, p.Parameters(), c)
	if err != nil {
		p.Dispose()
		return nil, err
	}
	defer closeScript()

	if err := e.Run(); err != nil {
		return nil, err
	}
	return last, nil
}
