package main

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/config"
	"github.com/Carmen-Shannon/oxy-vidfx/engine"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/frame_source"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/graph"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_script"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
)

var errNoSource = errors.New("no source: set source.path or --source")

// openFrames decodes the configured source into textures on r.
func openFrames(r renderer.Renderer, c config.Config) (frame_source.FrameSource, error) {
	if c.Source.Path == "" {
		return nil, errNoSource
	}

	var d frame_source.Decoder
	switch c.Source.Kind {
	case config.SourceKindImages:
		d = frame_source.NewImageSequenceDecoder(c.Source.Path)
	default:
		d = frame_source.NewVideoDecoder(c.Source.Path, c.Source.FPS)
	}
	return frame_source.NewFrameSource(r, d, frame_source.WithMaxFrames(c.Source.MaxFrames))
}

func pipelineOptions(c config.Config, validate bool) ([]orchestrator.PipelineBuilderOption, error) {
	v, err := c.Variant()
	if err != nil {
		return nil, err
	}
	g, err := graph.ForVariant(v)
	if err != nil {
		return nil, err
	}
	filter, err := c.FilterMode()
	if err != nil {
		return nil, err
	}
	return []orchestrator.PipelineBuilderOption{
		orchestrator.WithGraph(g),
		orchestrator.WithSamplerFilter(filter),
		orchestrator.WithParameters(c.BlurParameters()),
		orchestrator.WithKernelValidation(validate),
	}, nil
}

func engineOptions(c config.Config) []engine.EngineBuilderOption {
	return []engine.EngineBuilderOption{
		engine.WithProfiling(c.Engine.Profiling),
		engine.WithTickRate(c.Engine.TickRate),
		engine.WithRenderFrameLimit(c.Engine.FrameLimit),
	}
}

// attachScript loads the configured Lua script and runs its on_tick from the engine tick goroutine.
// The returned function closes the script; it is a no-op when no script is configured.
func attachScript(e engine.Engine, store parameter_store.ParameterStore, c config.Config) (func(), error) {
	if c.Script.Path == "" {
		return func() {}, nil
	}
	s, err := parameter_script.NewScript(store, parameter_script.WithFile(c.Script.Path))
	if err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}
	if s.HasTick() {
		e.SetTickCallback(scriptTicker(s))
	}
	return s.Close, nil
}

// scriptTicker adapts Script.Tick to the engine tick callback. A failing on_tick is logged once
// and not called again; playback continues with the last parameters.
func scriptTicker(s parameter_script.Script) func(deltaTime float32) {
	var tick uint64
	var elapsed float64
	failed := false
	return func(dt float32) {
		if failed {
			return
		}
		elapsed += float64(dt)
		if err := s.Tick(tick, elapsed); err != nil {
			common.Logger().Warn("parameter script disabled", "err", err)
			failed = true
			return
		}
		tick++
	}
}

// applyBlur forwards reloaded blur settings to the store. Rejected values are logged by the store.
func applyBlur(store parameter_store.ParameterStore, c config.Config) {
	current := store.Parameters()
	if c.Blur.Sigma != current.Sigma {
		store.OnParameterChanged(parameter_store.KeySigma, c.Blur.Sigma)
	}
	if c.Blur.KernelSize != current.KernelSize {
		store.OnParameterChanged(parameter_store.KeyKernelSize, float64(c.Blur.KernelSize))
	}
}
