// Package wasmrt implements the concrete WebAssembly engine behind the
// runtime's external agent-module contract: load module bytes, validate
// declared imports against a security.Profile, instantiate and reject a
// module whose initial linear memory exceeds the memory cap, invoke a
// named export, and charge fuel against the owning sandbox.Running's
// tracker before each invocation. Memory growth after instantiation is
// not limited by the cap.
//
// Grounded on the teacher's internal/wasm.Manager lifecycle shape
// (Init/Execute/Close) but reshaped from an external TCP host-process
// protocol into an in-process runtime, since the runtime's external
// interface frames the engine as an in-process "observable contract"
// rather than an external process. Built on wazero
// (github.com/tetratelabs/wazero), a pure-Go WebAssembly runtime used as
// a direct dependency by several repositories in the retrieval pack.
package wasmrt

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/caxton-rt/caxton/internal/domain"
	"github.com/caxton-rt/caxton/internal/security"
)

// InvokeCost is the flat fuel charge applied per export invocation. The
// runtime's fuel contract is "decrement a fuel counter" at the
// granularity of an invocation, not a per-instruction metering scheme
// (wazero has no built-in fuel API); callers needing finer-grained
// accounting can charge additional fuel themselves based on the agent's
// own self-reported cost.
const InvokeCost = 1

// Module wraps an instantiated WebAssembly agent module.
type Module struct {
	runtime  wazero.Runtime
	instance api.Module
	profile  security.Profile
}

// Runtime owns the shared wazero runtime used to load and instantiate
// agent modules.
type Runtime struct {
	rt wazero.Runtime
}

// New constructs a Runtime with a fresh wazero engine.
func New(ctx context.Context) *Runtime {
	return &Runtime{rt: wazero.NewRuntime(ctx)}
}

// Close releases all resources held by the underlying wazero runtime,
// including every module instantiated from it.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// LoadParams configures a module load/instantiate call.
type LoadParams struct {
	Bytes     []byte
	Profile   security.Profile
	MemoryCap domain.MemoryBytes
	HostFuncs HostFunctions
}

// HostFunctions is the set of host-function implementations a module may
// import, named per the allow-list in security.Profile.
type HostFunctions struct {
	GetID        func(ctx context.Context) string
	GetTimestamp func(ctx context.Context) int64
	Log          func(ctx context.Context, msg string)
}

// Load validates the module's declared imports against profile, then
// instantiates it and rejects it if its linear memory at instantiation is
// larger than MemoryCap (rounded down to whole 64 KiB pages, minimum one).
// The instance is not prevented from growing its memory past the cap
// afterwards. Disallowed imports cause load-time rejection per the
// agent-module contract.
func (r *Runtime) Load(ctx context.Context, p LoadParams) (*Module, error) {
	compiled, err := r.rt.CompileModule(ctx, p.Bytes)
	if err != nil {
		return nil, fmt.Errorf("wasmrt: compile module: %w", err)
	}

	imports := declaredImports(compiled)
	if err := p.Profile.ValidateImports(imports); err != nil {
		return nil, fmt.Errorf("wasmrt: %w", err)
	}

	if err := r.registerHostModule(ctx, p.Profile, p.HostFuncs); err != nil {
		return nil, err
	}

	pages := memoryCapToPages(p.MemoryCap)
	cfg := wazero.NewModuleConfig()
	instance, err := r.rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("wasmrt: instantiate: %w", err)
	}
	if mem := instance.Memory(); mem != nil {
		if mem.Size()/65536 > pages {
			instance.Close(ctx)
			return nil, fmt.Errorf("wasmrt: module memory exceeds cap of %d bytes", p.MemoryCap.Bytes())
		}
	}

	return &Module{runtime: r.rt, instance: instance, profile: p.Profile}, nil
}

func declaredImports(compiled wazero.CompiledModule) []string {
	names := make([]string, 0, len(compiled.ImportedFunctions()))
	for _, fn := range compiled.ImportedFunctions() {
		_, name, _ := fn.Import()
		names = append(names, name)
	}
	return names
}

func memoryCapToPages(cap domain.MemoryBytes) uint64 {
	const pageSize = 65536
	pages := cap.Bytes() / pageSize
	if pages == 0 {
		pages = 1
	}
	return pages
}

func (r *Runtime) registerHostModule(ctx context.Context, profile security.Profile, hf HostFunctions) error {
	builder := r.rt.NewHostModuleBuilder("env")
	if _, ok := profile.AllowedImports["agent_get_id"]; ok && hf.GetID != nil {
		builder = builder.NewFunctionBuilder().
			WithFunc(func(ctx context.Context) uint64 {
				return uint64(len(hf.GetID(ctx)))
			}).Export("agent_get_id")
	}
	if _, ok := profile.AllowedImports["agent_get_timestamp"]; ok && hf.GetTimestamp != nil {
		builder = builder.NewFunctionBuilder().
			WithFunc(func(ctx context.Context) int64 {
				return hf.GetTimestamp(ctx)
			}).Export("agent_get_timestamp")
	}
	if _, ok := profile.AllowedImports["agent_log"]; ok && hf.Log != nil {
		builder = builder.NewFunctionBuilder().
			WithFunc(func(ctx context.Context, ptr, length uint32) {
				if hf.Log != nil {
					hf.Log(ctx, fmt.Sprintf("<%d bytes at %d>", length, ptr))
				}
			}).Export("agent_log")
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("wasmrt: register host module: %w", err)
	}
	return nil
}

// Invoke calls the named export, charging InvokeCost fuel against
// consume before executing. consume is typically
// sandbox.Running.ConsumeFuel; a fuel-exhausted tracker rejects the
// invocation outright.
func (m *Module) Invoke(ctx context.Context, export string, consume func(uint64) (uint64, error), args ...uint64) ([]uint64, error) {
	if consume != nil {
		if _, err := consume(InvokeCost); err != nil {
			return nil, err
		}
	}
	fn := m.instance.ExportedFunction(export)
	if fn == nil {
		return nil, fmt.Errorf("wasmrt: no exported function %q", export)
	}
	return fn.Call(ctx, args...)
}

// Close releases the instantiated module.
func (m *Module) Close(ctx context.Context) error {
	return m.instance.Close(ctx)
}
