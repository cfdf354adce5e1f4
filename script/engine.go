package script

import (
	"context"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/errors"
	"github.com/trainerkit/scan-engine/scanner"
	"github.com/trainerkit/scan-engine/variant"
)

// HostModule is the import namespace scan scripts link against.
const HostModule = "memscan"

// Engine runs scan scripts compiled to core WebAssembly. Scripts import
// the memscan host module for target and scanner access, may export
// "main" (run once at load) and "tick" (driven by the event loop), and
// call "schedule-tick" to keep themselves alive.
type Engine struct {
	rt      wazero.Runtime
	target  scanengine.Target
	scan    *scanner.Scanner
	events  *EventQueue
	mod     api.Module
	tickGap time.Duration
}

// NewEngine creates a script engine bound to a target and scanner and
// instantiates the host module.
func NewEngine(ctx context.Context, target scanengine.Target, scan *scanner.Scanner) (*Engine, error) {
	e := &Engine{
		rt:     wazero.NewRuntime(ctx),
		target: target,
		scan:   scan,
		events: NewEventQueue(),
	}

	_, err := e.rt.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().WithFunc(e.hostAttach).Export("attach").
		NewFunctionBuilder().WithFunc(e.hostDetach).Export("detach").
		NewFunctionBuilder().WithFunc(e.hostPeekU32).Export("peek-u32").
		NewFunctionBuilder().WithFunc(e.hostPeekU64).Export("peek-u64").
		NewFunctionBuilder().WithFunc(e.hostPeekF64).Export("peek-f64").
		NewFunctionBuilder().WithFunc(e.hostPokeU32).Export("poke-u32").
		NewFunctionBuilder().WithFunc(e.hostPokeU64).Export("poke-u64").
		NewFunctionBuilder().WithFunc(e.hostPokeF64).Export("poke-f64").
		NewFunctionBuilder().WithFunc(e.hostFirstScan).Export("first-scan").
		NewFunctionBuilder().WithFunc(e.hostFirstScanUnknown).Export("first-scan-unknown").
		NewFunctionBuilder().WithFunc(e.hostNextScan).Export("next-scan").
		NewFunctionBuilder().WithFunc(e.hostNextScanRelative).Export("next-scan-relative").
		NewFunctionBuilder().WithFunc(e.hostResultCount).Export("result-count").
		NewFunctionBuilder().WithFunc(e.hostResultAt).Export("result-at").
		NewFunctionBuilder().WithFunc(e.hostScheduleTick).Export("schedule-tick").
		NewFunctionBuilder().WithFunc(e.hostLog).Export("log").
		Instantiate(ctx)
	if err != nil {
		e.rt.Close(ctx)
		return nil, errors.New(errors.PhaseScript, errors.KindInvalidInput).
			Detail("instantiate host module").Cause(err).Build()
	}

	return e, nil
}

// LoadScript instantiates a script module and runs its "main" export if
// present.
func (e *Engine) LoadScript(ctx context.Context, wasmBytes []byte) error {
	mod, err := e.rt.InstantiateWithConfig(ctx, wasmBytes,
		wazero.NewModuleConfig().WithName("script"))
	if err != nil {
		return errors.New(errors.PhaseScript, errors.KindInvalidInput).
			Detail("instantiate script").Cause(err).Build()
	}
	e.mod = mod

	if main := mod.ExportedFunction("main"); main != nil {
		if _, err := main.Call(ctx); err != nil {
			return errors.New(errors.PhaseScript, errors.KindInvalidInput).
				Detail("script main trapped").Cause(err).Build()
		}
	}
	return nil
}

// Think runs every due timed event. Call it from the host's main loop.
func (e *Engine) Think(ctx context.Context) {
	e.events.Think(ctx, time.Now())
}

// PendingEvents reports how many timed events are queued.
func (e *Engine) PendingEvents() int {
	return e.events.Len()
}

// Close releases the wazero runtime and every instantiated module.
func (e *Engine) Close(ctx context.Context) error {
	return e.rt.Close(ctx)
}

func (e *Engine) invokeTick(ctx context.Context) error {
	if e.mod == nil {
		return errors.NotFound(errors.PhaseScript, "no script loaded")
	}
	tick := e.mod.ExportedFunction("tick")
	if tick == nil {
		return errors.NotFound(errors.PhaseScript, "script exports no tick")
	}
	_, err := tick.Call(ctx)
	return err
}

// Host functions. Scripts see flat integer/float signatures; failures
// surface as zero returns with a logged cause, matching the engine's
// release-mode error posture.

func (e *Engine) hostAttach(ctx context.Context, pid uint32) uint32 {
	if err := e.target.Attach(scanengine.ProcessID(pid)); err != nil {
		Logger().Warn("script attach failed", zap.Error(err))
		return 0
	}
	return 1
}

func (e *Engine) hostDetach(ctx context.Context) {
	if err := e.target.Detach(); err != nil {
		Logger().Warn("script detach failed", zap.Error(err))
	}
}

func (e *Engine) hostPeekU32(ctx context.Context, addr uint64) uint32 {
	v, err := variant.FromTargetMemory(e.target, scanengine.MemoryAddress(addr), variant.UInt32)
	if err != nil {
		Logger().Warn("peek-u32 failed", zap.Uint64("addr", addr), zap.Error(err))
		return 0
	}
	out, _ := v.Uint32()
	return out
}

func (e *Engine) hostPeekU64(ctx context.Context, addr uint64) uint64 {
	v, err := variant.FromTargetMemory(e.target, scanengine.MemoryAddress(addr), variant.UInt64)
	if err != nil {
		Logger().Warn("peek-u64 failed", zap.Uint64("addr", addr), zap.Error(err))
		return 0
	}
	out, _ := v.Uint64()
	return out
}

func (e *Engine) hostPeekF64(ctx context.Context, addr uint64) float64 {
	v, err := variant.FromTargetMemory(e.target, scanengine.MemoryAddress(addr), variant.Float64)
	if err != nil {
		Logger().Warn("peek-f64 failed", zap.Uint64("addr", addr), zap.Error(err))
		return 0
	}
	out, _ := v.Float64Value()
	return out
}

func (e *Engine) hostPokeU32(ctx context.Context, addr uint64, value uint32) uint32 {
	return e.poke(variant.FromNumber(uint64(value), variant.UInt32), addr)
}

func (e *Engine) hostPokeU64(ctx context.Context, addr uint64, value uint64) uint32 {
	return e.poke(variant.FromNumber(value, variant.UInt64), addr)
}

func (e *Engine) hostPokeF64(ctx context.Context, addr uint64, value float64) uint32 {
	return e.poke(variant.FromFloat64(value), addr)
}

func (e *Engine) poke(v variant.Variant, addr uint64) uint32 {
	if err := v.WriteToTarget(e.target, scanengine.MemoryAddress(addr)); err != nil {
		Logger().Warn("poke failed", zap.Uint64("addr", addr), zap.Error(err))
		return 0
	}
	return 1
}

func (e *Engine) hostFirstScan(ctx context.Context, numType uint32, value uint64, mask uint32) uint64 {
	needle := variant.FromNumber(value, variant.NumericType(numType))
	if err := e.scan.FirstScan(needle, variant.Flags(mask)); err != nil {
		Logger().Warn("first-scan failed", zap.Error(err))
		return 0
	}
	return e.scan.ResultCount()
}

func (e *Engine) hostFirstScanUnknown(ctx context.Context, numType uint32) uint64 {
	needle := variant.MakePlaceholder(variant.NumericType(numType))
	if err := e.scan.FirstScan(needle, variant.FlagsAll); err != nil {
		Logger().Warn("first-scan-unknown failed", zap.Error(err))
		return 0
	}
	return e.scan.ResultCount()
}

func (e *Engine) hostNextScan(ctx context.Context, numType uint32, value uint64, mask uint32) uint64 {
	needle := variant.FromNumber(value, variant.NumericType(numType))
	if err := e.scan.NextScan(needle, variant.Flags(mask)); err != nil {
		Logger().Warn("next-scan failed", zap.Error(err))
		return 0
	}
	return e.scan.ResultCount()
}

func (e *Engine) hostNextScanRelative(ctx context.Context, numType uint32, mask uint32) uint64 {
	needle := variant.MakePlaceholder(variant.NumericType(numType))
	if err := e.scan.NextScan(needle, variant.Flags(mask)); err != nil {
		Logger().Warn("next-scan-relative failed", zap.Error(err))
		return 0
	}
	return e.scan.ResultCount()
}

func (e *Engine) hostResultCount(ctx context.Context) uint64 {
	return e.scan.ResultCount()
}

func (e *Engine) hostResultAt(ctx context.Context, index uint64) uint64 {
	results := e.scan.Results()
	if index >= uint64(len(results)) {
		return 0
	}
	return uint64(results[index].Address)
}

func (e *Engine) hostScheduleTick(ctx context.Context, delayMillis uint64) {
	e.events.ScheduleAfter(time.Now(), time.Duration(delayMillis)*time.Millisecond, e.invokeTick)
}

func (e *Engine) hostLog(ctx context.Context, mod api.Module, ptr, length uint32) {
	msg, ok := mod.Memory().Read(ptr, length)
	if !ok {
		Logger().Warn("script log read out of bounds",
			zap.Uint32("ptr", ptr), zap.Uint32("len", length))
		return
	}
	Logger().Info("script: " + string(msg))
}
