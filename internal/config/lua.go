// This file implements the Lua configuration parser.

package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/arnodel/golua/lib"
	rt "github.com/arnodel/golua/runtime"
)

// luaGlobal is the global table a Lua configuration assigns into.
const luaGlobal = "cpustat"

// LuaConfigParser parses Lua configuration files. It uses the Golua
// runtime to execute the file and reads settings from the cpustat.config
// table, so configurations can compute values (for example from
// os.getenv) instead of only declaring them.
type LuaConfigParser struct {
	runtime *rt.Runtime
	cleanup func()
	mu      sync.Mutex
}

// NewLuaConfigParser creates a new LuaConfigParser with a fresh Lua runtime.
func NewLuaConfigParser() (*LuaConfigParser, error) {
	return NewLuaConfigParserWithOutput(io.Discard)
}

// NewLuaConfigParserWithOutput creates a LuaConfigParser whose print output
// goes to stdout.
func NewLuaConfigParserWithOutput(stdout io.Writer) (*LuaConfigParser, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	runtime := rt.New(stdout)
	cleanup := lib.LoadAll(runtime)

	return &LuaConfigParser{
		runtime: runtime,
		cleanup: cleanup,
	}, nil
}

// Parse executes a Lua configuration and extracts cpustat.config.
func (p *LuaConfigParser) Parse(content []byte) (*Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.initGlobal()

	closure, err := p.runtime.CompileAndLoadLuaChunk(
		"config",
		content,
		rt.TableValue(p.runtime.GlobalEnv()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile Lua configuration: %w", err)
	}

	// Configuration files must not be able to hang or exhaust the process.
	ctx := rt.RuntimeContextDef{
		HardLimits: rt.RuntimeResources{
			Cpu:    10_000_000,
			Memory: 50 * 1024 * 1024, // 50 MB
		},
	}
	if err := p.run(ctx, closure); err != nil {
		return nil, fmt.Errorf("failed to execute Lua configuration: %w", err)
	}

	return p.extractConfig()
}

// run calls closure under ctx. Golua panics when a hard limit is exceeded;
// that is reported as an error.
func (p *LuaConfigParser) run(ctx rt.RuntimeContextDef, closure *rt.Closure) (err error) {
	p.runtime.PushContext(ctx)
	defer p.runtime.PopContext()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resource limit exceeded: %v", r)
		}
	}()

	_, err = rt.Call1(p.runtime.MainThread(), rt.FunctionValue(closure))
	return err
}

// initGlobal resets the cpustat global table before each parse.
func (p *LuaConfigParser) initGlobal() {
	global := rt.NewTable()
	global.Set(rt.StringValue("config"), rt.TableValue(rt.NewTable()))
	p.runtime.GlobalEnv().Set(rt.StringValue(luaGlobal), rt.TableValue(global))
}

// extractConfig extracts configuration values from the cpustat global table.
func (p *LuaConfigParser) extractConfig() (*Config, error) {
	cfg := DefaultConfig()

	globalVal := p.runtime.GlobalEnv().Get(rt.StringValue(luaGlobal))
	if globalVal == rt.NilValue {
		return &cfg, nil
	}
	global, ok := globalVal.TryTable()
	if !ok {
		return nil, fmt.Errorf("%s is not a table", luaGlobal)
	}

	configVal := global.Get(rt.StringValue("config"))
	if configVal == rt.NilValue {
		return &cfg, nil
	}
	table, ok := configVal.TryTable()
	if !ok {
		return nil, fmt.Errorf("%s.config is not a table", luaGlobal)
	}

	for _, key := range settingKeys {
		val := getTableScalar(table, key)
		if val == nil {
			continue
		}
		if err := applySetting(&cfg, key, *val); err != nil {
			return nil, fmt.Errorf("%s.config.%s: %w", luaGlobal, key, err)
		}
	}
	return &cfg, nil
}

// Close releases resources associated with the parser's Lua runtime.
func (p *LuaConfigParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cleanup != nil {
		p.cleanup()
		p.cleanup = nil
	}
	return nil
}

// getTableScalar retrieves a string, boolean or number from a Lua table in
// its textual form. Returns nil if the key doesn't exist or holds another
// type.
func getTableScalar(table *rt.Table, key string) *string {
	val := table.Get(rt.StringValue(key))
	if val == rt.NilValue {
		return nil
	}

	var s string
	if str, ok := val.TryString(); ok {
		s = str
	} else if b, ok := val.TryBool(); ok {
		s = strconv.FormatBool(b)
	} else if n, ok := val.TryInt(); ok {
		s = strconv.FormatInt(n, 10)
	} else if f, ok := val.TryFloat(); ok {
		s = strconv.FormatFloat(f, 'g', -1, 64)
	} else {
		return nil
	}
	return &s
}
