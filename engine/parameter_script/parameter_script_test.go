package parameter_script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) parameter_store.ParameterStore {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeCPU)
	require.NoError(t, err)
	t.Cleanup(r.Release)

	s, err := parameter_store.NewParameterStore(r)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestSetParamAtLoad(t *testing.T) {
	store := newStore(t)
	s, err := NewScript(store, WithSource(`set_param("sigma", 5)`))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 5.0, store.Parameters().Sigma)
	assert.False(t, s.HasTick())
	assert.NoError(t, s.Tick(1, 0), "no on_tick is a no-op")
}

func TestOnTickDrivesParameters(t *testing.T) {
	store := newStore(t)
	s, err := NewScript(store, WithSource(`
function on_tick(tick, seconds)
  set_param("kernelSize", 3 + tick)
  set_param("sigma", 1 + seconds)
end
`))
	require.NoError(t, err)
	defer s.Close()
	require.True(t, s.HasTick())

	require.NoError(t, s.Tick(2, 0.5))
	assert.Equal(t, parameter_store.BlurParameters{Sigma: 1.5, KernelSize: 5}, store.Parameters())

	require.NoError(t, s.Tick(7, 1))
	assert.Equal(t, parameter_store.BlurParameters{Sigma: 2, KernelSize: 10}, store.Parameters())
}

func TestRejectedValueIsReportedToScript(t *testing.T) {
	store := newStore(t)
	_, err := NewScript(store, WithSource(`
local ok, msg = set_param("sigma", -1)
if ok then error("negative sigma accepted") end
if not string.find(msg, "invalid parameter value") then error(msg) end

ok = set_param("radius", 3)
if ok then error("unknown key accepted") end
`))
	require.NoError(t, err)
	assert.Equal(t, parameter_store.DefaultParameters(), store.Parameters())
}

func TestGetParam(t *testing.T) {
	store := newStore(t)
	_, err := NewScript(store, WithSource(`
if get_param("sigma") ~= 20 then error("sigma") end
if get_param("kernelSize") ~= 24 then error("kernelSize") end
if get_param("radius") ~= nil then error("radius") end
`))
	assert.NoError(t, err)
}

func TestScriptErrors(t *testing.T) {
	store := newStore(t)

	_, err := NewScript(store)
	assert.ErrorIs(t, err, ErrNoScript)

	_, err = NewScript(store, WithSource(`this is not lua`), WithName("broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"broken"`)

	s, err := NewScript(store, WithSource(`function on_tick() error("boom") end`))
	require.NoError(t, err)
	err = s.Tick(0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	s.Close()
	s.Close()
	assert.NoError(t, s.Tick(1, 0), "a closed script does nothing")
}

func TestWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.lua")
	require.NoError(t, os.WriteFile(path, []byte(`set_param("sigma", 7)`), 0o644))

	store := newStore(t)
	s, err := NewScript(store, WithFile(path))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 7.0, store.Parameters().Sigma)
}
