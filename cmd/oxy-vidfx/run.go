package main

import (
	"context"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/config"
	"github.com/Carmen-Shannon/oxy-vidfx/engine"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/presenter"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/window"
	"github.com/spf13/cobra"
)

func newRunCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Play the source in a window on the GPU",
		Long: `Play the source in a window on the GPU.

Keys: Up/Down scale the blur sigma, Left/Right step the kernel size, R restores the
defaults and Escape quits. With --config the file is watched and blur edits apply live.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.resolve(cmd)
			if err != nil {
				return err
			}
			return o.run(cmd.Context(), c)
		},
	}
}

func (o *options) run(ctx context.Context, c config.Config) error {
	w, err := window.NewWindow(
		window.WithTitle(c.Window.Title),
		window.WithSize(c.Output.Width, c.Output.Height),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, append(c.RendererOptions(), renderer.WithWindow(w))...)
	if err != nil {
		return err
	}
	defer r.Release()

	frames, err := openFrames(r, c)
	if err != nil {
		return err
	}
	filter, _ := c.FilterMode()
	surface, err := presenter.NewSurfacePresenter(r,
		presenter.WithFilter(filter),
		presenter.WithShaderValidation(o.validate),
	)
	if err != nil {
		frames.Release()
		return err
	}

	opts, err := pipelineOptions(c, o.validate)
	if err != nil {
		frames.Release()
		surface.Release()
		return err
	}
	p := orchestrator.NewPipeline(r, frames, surface, append(opts, orchestrator.WithSizeFunc(w.Size))...)
	if err := p.Init(); err != nil {
		return err
	}

	e := engine.NewEngine(p, append(engineOptions(c), engine.WithWindow(w))...)
	w.SetKeyDownCallback(parameter_store.KeyHandler(p.Parameters()))
	w.SetResizeCallback(func(width, height int) {
		// the pipeline picks the new size up at its next tick
		common.Logger().Debug("window resized", "width", width, "height", height)
	})

	closeScript, err := attachScript(e, p.Parameters(), c)
	if err != nil {
		p.Dispose()
		return err
	}
	defer closeScript()

	if o.configPath != "" {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := config.Watch(ctx, o.configPath, func(next config.Config) {
				applyBlur(p.Parameters(), next)
			})
			if err != nil {
				common.Logger().Warn("config watch stopped", "err", err)
			}
		}()
	}

	return e.Run()
}
