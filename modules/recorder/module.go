// Package recorder provides the recorder module, which records every
// "world.tick" event to a memory, CSV or CloudEvents JSON-lines sink.
//
// The recorder only subscribes to the event bus. It never reads or changes
// the simulation world, so enabling it cannot alter a run's outcome.
//
// Instance parameters:
//
//	sink = "csv" | "memory" | "cloudevents"   (default "csv")
//	path = "out/run.csv"                      (default <output_dir>/simulation.csv or .jsonl)
package recorder

import (
	"path/filepath"
	"slices"

	"github.com/GoCodeAlone/simhost"
	"github.com/GoCodeAlone/simhost/modules/world"
)

// TypeID is the module type identifier of the recorder.
const TypeID = "recorder"

const eventSource = "simhost/recorder"

// Module is the recorder module.
type Module struct {
	simhost.BaseModule

	mctx   *simhost.ModuleContext
	logger simhost.Logger
	kind   string
	path   string
	sink   Sink
	events []simhost.Event
}

// New is the simhost.Factory of the recorder. An unknown sink kind is a
// construction error.
func New(cfg simhost.InstanceConfig, mctx *simhost.ModuleContext) (simhost.Module, error) {
	kind, ok := cfg.Param("sink")
	if !ok || kind == "" {
		kind = SinkCSV
	}
	path, _ := cfg.Param("path")
	if path == "" && kind != SinkMemory {
		name := "simulation.csv"
		if kind == SinkCloudEvents {
			name = "simulation.jsonl"
		}
		path = filepath.Join(mctx.Config().OutputDir, name)
	}
	sink, err := NewSink(kind, path)
	if err != nil {
		return nil, err
	}
	return &Module{
		BaseModule: simhost.NewBaseModule(cfg),
		mctx:       mctx,
		logger:     mctx.Logger(),
		kind:       kind,
		path:       path,
		sink:       sink,
	}, nil
}

// OnStart opens the sink and subscribes to world ticks. A sink that cannot be
// opened degrades to memory-only recording.
func (m *Module) OnStart() {
	if err := m.sink.Open(); err != nil {
		m.logger.Error("Failed to open recorder sink, recording in memory only",
			"module", m.TypeID()+":"+m.InstanceID(), "sink", m.kind, "path", m.path, "error", err)
		m.sink = memorySink{}
	}
	m.mctx.EventBus().Subscribe(world.EventTick, m.handle)
	m.logger.Debug("Recorder started", "sink", m.kind, "path", m.path)
}

// OnStop closes the sink.
func (m *Module) OnStop() {
	if err := m.sink.Close(); err != nil {
		m.logger.Error("Failed to close recorder sink", "sink", m.kind, "path", m.path, "error", err)
	}
}

func (m *Module) handle(event simhost.Event) {
	m.events = append(m.events, event)
	if err := m.sink.Write(event); err != nil {
		m.logger.Warn("Failed to record event", "tick", event.Tick, "error", err)
	}
}

// Events returns the events recorded so far.
func (m *Module) Events() []simhost.Event {
	return slices.Clone(m.events)
}

// Path returns the output path, empty for the memory sink.
func (m *Module) Path() string { return m.path }
