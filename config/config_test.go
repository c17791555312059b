package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/graph"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlConfig = `
backend = "cpu"
graph = "blur"

[source]
path = "clips/intro.mp4"
max_frames = 120

[sampler]
filter = "linear"

[blur]
sigma = 4.5
kernel_size = 9
`

const yamlConfig = `
backend: cpu
source:
  kind: images
  path: frames/*.png
output:
  width: 640
  height: 360
engine:
  profiling: true
renderer:
  workers: 3
window:
  vsync: false
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// replace swaps the file in by rename so the watcher never reads a partial write.
func replace(t *testing.T, dir, name, content string) {
	t.Helper()
	tmp := write(t, dir, "."+name+".tmp", content)
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, name)))
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, parameter_store.DefaultParameters(), c.BlurParameters())
	assert.Equal(t, 24.0, c.Source.FPS)

	v, err := c.Variant()
	require.NoError(t, err)
	assert.Equal(t, graph.VariantMontage, v)

	f, err := c.FilterMode()
	require.NoError(t, err)
	assert.Equal(t, wgpu.FilterModeNearest, f)
}

func TestLoadTOML(t *testing.T) {
	c, err := Load(write(t, t.TempDir(), "vidfx.toml", tomlConfig))
	require.NoError(t, err)

	b, err := c.BackendType()
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeCPU, b)
	assert.Equal(t, "blur", c.Graph)
	assert.Equal(t, "clips/intro.mp4", c.Source.Path)
	assert.Equal(t, 120, c.Source.MaxFrames)
	assert.Equal(t, SourceKindVideo, c.Source.Kind, "unset keys keep their defaults")
	assert.Equal(t, 24.0, c.Source.FPS)
	assert.Equal(t, parameter_store.BlurParameters{Sigma: 4.5, KernelSize: 9}, c.BlurParameters())

	f, err := c.FilterMode()
	require.NoError(t, err)
	assert.Equal(t, wgpu.FilterModeLinear, f)
}

func TestLoadYAML(t *testing.T) {
	c, err := Load(write(t, t.TempDir(), "vidfx.yml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, SourceKindImages, c.Source.Kind)
	assert.Equal(t, "frames/*.png", c.Source.Path)
	assert.Equal(t, Output{Width: 640, Height: 360}, c.Output)
	assert.True(t, c.Engine.Profiling)
	assert.Equal(t, 60.0, c.Engine.TickRate)
	assert.Equal(t, 3, c.Renderer.Workers)
	assert.False(t, c.Window.VSync)
	assert.Equal(t, "oxy-vidfx", c.Window.Title)
	assert.Len(t, c.RendererOptions(), 3)

	empty, err := Decode("yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), empty)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(write(t, dir, "vidfx.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(write(t, dir, "unknown.toml", "colour = \"red\"\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(write(t, dir, "unknown.yaml", "colour: red\n"))
	assert.Error(t, err)

	_, err = Load(write(t, dir, "bad.toml", "[blur]\nsigma = 0.0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, parameter_store.ErrInvalidParameter)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":      func(c *Config) { c.Backend = "vulkan" },
		"graph":        func(c *Config) { c.Graph = "sepia" },
		"filter":       func(c *Config) { c.Sampler.Filter = "cubic" },
		"kind":         func(c *Config) { c.Source.Kind = "stream" },
		"fps":          func(c *Config) { c.Source.FPS = 0 },
		"max frames":   func(c *Config) { c.Source.MaxFrames = -1 },
		"output":       func(c *Config) { c.Output.Height = 0 },
		"kernel size":  func(c *Config) { c.Blur.KernelSize = 0 },
		"engine rates": func(c *Config) { c.Engine.FrameLimit = -30 },
		"workers":      func(c *Config) { c.Renderer.Workers = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestWatchDeliversReloads(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "vidfx.toml", "[blur]\nsigma = 2.0\n")

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var got []Config
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c Config) {
			mu.Lock()
			got = append(got, c)
			mu.Unlock()
		})
	}()

	latest := func() (Config, bool) {
		mu.Lock()
		defer mu.Unlock()
		if len(got) == 0 {
			return Config{}, false
		}
		return got[len(got)-1], true
	}

	// the watcher may not be registered before the first write
	require.Eventually(t, func() bool {
		replace(t, dir, "vidfx.toml", "[blur]\nsigma = 7.5\n")
		c, ok := latest()
		return ok && c.Blur.Sigma == 7.5
	}, 5*time.Second, 50*time.Millisecond)

	// invalid edits and other files are ignored
	replace(t, dir, "vidfx.toml", "[blur]\nsigma = -1.0\n")
	write(t, dir, "other.toml", "[blur]\nsigma = 9.0\n")
	time.Sleep(100 * time.Millisecond)
	c, _ := latest()
	assert.Equal(t, 7.5, c.Blur.Sigma)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
