// Package parameter_script drives blur parameters from a Lua script on the engine tick goroutine.
//
// The script runs once when loaded and may define on_tick(tick, seconds), which is called every
// tick. Two globals are provided:
//
//	set_param(key, value)  -- returns true, or false and a message if the store rejected it
//	get_param(key)         -- returns the current value, or nil for an unknown key
package parameter_script

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	lua "github.com/yuin/gopher-lua"
)

// TickFunction is the optional global the script defines to run every tick.
const TickFunction = "on_tick"

// ErrNoScript is returned by NewScript when neither WithFile nor WithSource was given.
var ErrNoScript = errors.New("no script source")

// Parameters is the part of the parameter store a script can reach.
type Parameters interface {
	Set(key string, value float64) error
	Parameters() parameter_store.BlurParameters
}

type script struct {
	mu     *sync.Mutex
	state  *lua.LState
	params Parameters

	name   string
	path   string
	source string

	onTick lua.LValue
	closed bool
}

// Script is a loaded Lua parameter driver. It is not safe for concurrent use with itself; the
// engine calls Tick from its render goroutine only.
type Script interface {
	// Tick calls on_tick(tick, seconds) if the script defines it.
	//
	// Parameters:
	//   - tick: the number of completed ticks
	//   - seconds: wall time since the run started
	//
	// Returns:
	//   - error: the Lua runtime error, if any
	Tick(tick uint64, seconds float64) error

	// HasTick reports whether the script defines on_tick.
	//
	// Returns:
	//   - bool: true if on_tick is a function
	HasTick() bool

	// Close frees the interpreter. Calling it again is a no-op.
	Close()
}

var _ Script = &script{}

// NewScript loads and runs a script against params.
//
// Parameters:
//   - params: the store set_param writes to
//   - opts: WithFile or WithSource, and optionally WithName
//
// Returns:
//   - Script: the loaded script
//   - error: ErrNoScript, or the Lua load or runtime error
func NewScript(params Parameters, opts ...ScriptBuilderOption) (Script, error) {
	s := &script{
		mu:     &sync.Mutex{},
		params: params,
		name:   "script",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.path == "" && s.source == "" {
		return nil, ErrNoScript
	}

	s.state = lua.NewState()
	s.state.SetGlobal("set_param", s.state.NewFunction(s.setParam))
	s.state.SetGlobal("get_param", s.state.NewFunction(s.getParam))

	var err error
	if s.path != "" {
		err = s.state.DoFile(s.path)
	} else {
		err = s.state.DoString(s.source)
	}
	if err != nil {
		s.state.Close()
		return nil, fmt.Errorf("script %q: %w", s.name, err)
	}

	if fn := s.state.GetGlobal(TickFunction); fn.Type() == lua.LTFunction {
		s.onTick = fn
	}
	common.Logger().Info("parameter script loaded", "script", s.name, "on_tick", s.onTick != nil)
	return s, nil
}

func (s *script) Tick(tick uint64, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.onTick == nil {
		return nil
	}
	err := s.state.CallByParam(lua.P{
		Fn:      s.onTick,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(tick), lua.LNumber(seconds))
	if err != nil {
		return fmt.Errorf("script %q: %s: %w", s.name, TickFunction, err)
	}
	return nil
}

func (s *script) HasTick() bool {
	return s.onTick != nil
}

func (s *script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.state.Close()
}

func (s *script) setParam(L *lua.LState) int {
	key := L.CheckString(1)
	value := float64(L.CheckNumber(2))

	if err := s.params.Set(key, value); err != nil {
		common.Logger().Warn("script parameter rejected", "script", s.name, "key", key, "value", value, "err", err)
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	common.Logger().Debug("script parameter set", "script", s.name, "key", key, "value", value)
	L.Push(lua.LTrue)
	return 1
}

func (s *script) getParam(L *lua.LState) int {
	p := s.params.Parameters()
	switch L.CheckString(1) {
	case parameter_store.KeySigma:
		L.Push(lua.LNumber(p.Sigma))
	case parameter_store.KeyKernelSize:
		L.Push(lua.LNumber(p.KernelSize))
	default:
		L.Push(lua.LNil)
	}
	return 1
}
