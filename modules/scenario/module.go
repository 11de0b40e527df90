package scenario

import (
	"slices"
	"strconv"

	"github.com/GoCodeAlone/simhost"
	"github.com/GoCodeAlone/simhost/modules/world"
)

// TypeID is the module type identifier of the scenario runner.
const TypeID = "scenario"

// Module feeds a scenario's timeline into the simulation world.
type Module struct {
	simhost.BaseModule

	mctx     *simhost.ModuleContext
	logger   simhost.Logger
	world    world.Port
	timeline Timeline
	active   bool
}

// New is the simhost.Factory of the scenario runner.
func New(cfg simhost.InstanceConfig, mctx *simhost.ModuleContext) (simhost.Module, error) {
	return &Module{
		BaseModule: simhost.NewBaseModule(cfg),
		mctx:       mctx,
		logger:     mctx.Logger(),
	}, nil
}

// OnStart loads the configured scenario and queues the world reset. The
// runner stays idle when no scenario is configured, the file cannot be read
// or a required module type is not live.
func (m *Module) OnStart() {
	path := m.mctx.Config().ScenarioPath
	if path == "" {
		m.logger.Info("Scenario path not provided, skipping scenario runner")
		return
	}
	sc, err := Load(path)
	if err != nil {
		m.logger.Error("Failed to load scenario", "path", path, "error", err)
		return
	}

	live := m.mctx.ModuleTypes()
	for _, required := range sc.Requires {
		if !slices.Contains(live, required) {
			m.logger.Error("Missing required module for scenario", "module", required)
			return
		}
	}

	found, ok := m.mctx.FindModule(world.TypeID, simhost.DefaultInstanceID)
	if !ok {
		m.logger.Warn("Simulation world not available, scenario idle")
		return
	}
	port, ok := found.(world.Port)
	if !ok {
		m.logger.Warn("Simulation world does not accept commands, scenario idle", "type", found.TypeID())
		return
	}

	m.world = port
	m.timeline = NewTimeline(sc.Schedule)
	m.active = true

	m.world.EnqueueCommand(world.CommandReset, map[string]string{"seed": strconv.Itoa(sc.Seed)})
	if sc.StopAtTick > 0 {
		m.world.EnqueueCommand(world.CommandStopAtTick, map[string]string{"value": strconv.Itoa(sc.StopAtTick)})
	}
	m.logger.Info("Scenario loaded", "path", path, "seed", sc.Seed, "actions", m.timeline.Len())
}

// OnPreTick dispatches the actions scheduled for the world's next tick.
func (m *Module) OnPreTick() {
	if !m.active {
		return
	}
	next := m.world.ReadModel().Tick + 1
	for _, action := range m.timeline.ActionsFor(next) {
		switch action.Command {
		case world.CommandSpawn, world.CommandSetParam, world.CommandApplyShock:
			m.world.EnqueueCommand(action.Command, action.Params)
		default:
			m.logger.Warn("Unsupported scenario command", "command", action.Command, "tick", action.Tick)
		}
	}
}

// Active reports whether a scenario was loaded and bound to the world.
func (m *Module) Active() bool { return m.active }
