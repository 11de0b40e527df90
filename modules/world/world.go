// Package world provides the simulation_world module: a deterministic
// population model driven by queued commands.
//
// Commands are queued with EnqueueCommand and applied at the start of the next
// tick, in the pre-tick phase. The main tick advances the clock, grows every
// spawned species by one and emits a "world.tick" event carrying the new state.
package world

import (
	"maps"
	"reflect"
	"slices"
	"strconv"

	"github.com/golobby/cast"

	"github.com/GoCodeAlone/simhost"
)

// TypeID is the module type identifier of the simulation world.
const TypeID = "simulation_world"

// EventTick is emitted once per tick with the world's state.
const EventTick = "world.tick"

// Commands understood by EnqueueCommand.
const (
	CommandReset      = "world.reset"
	CommandSpawn      = "spawn"
	CommandSetParam   = "set_param"
	CommandApplyShock = "apply_shock"
	CommandStopAtTick = "stop.at_tick"
)

// ReadModel is a snapshot of the world state.
type ReadModel struct {
	Tick        int
	Seed        int
	Population  map[string]int
	EnergyTotal int
}

// Port is what other modules see of the world.
type Port interface {
	EnqueueCommand(command string, params map[string]string)
	ReadModel() ReadModel
	ShouldStop() bool
}

type command struct {
	name   string
	params map[string]string
}

// Module is the simulation_world module.
type Module struct {
	simhost.BaseModule

	logger  simhost.Logger
	sim     simhost.Logger
	bus     *simhost.EventBus
	pending []command

	state      ReadModel
	spawnOrder []string
	params     map[string]float64
	stopAt     int
}

var (
	_ Port                  = (*Module)(nil)
	_ simhost.StopCondition = (*Module)(nil)
)

// New is the simhost.Factory of simulation_world.
func New(cfg simhost.InstanceConfig, mctx *simhost.ModuleContext) (simhost.Module, error) {
	return &Module{
		BaseModule: simhost.NewBaseModule(cfg),
		logger:     mctx.Logger(),
		sim:        simhost.WithChannel(mctx.Logger(), simhost.ChannelSimulation),
		bus:        mctx.EventBus(),
		state:      ReadModel{Population: make(map[string]int)},
		params:     make(map[string]float64),
		stopAt:     -1,
	}, nil
}

// OnInit resets the read model.
func (m *Module) OnInit() {
	m.state = ReadModel{Population: make(map[string]int)}
	m.spawnOrder = nil
}

// EnqueueCommand queues a command for the next pre-tick phase. params is copied.
func (m *Module) EnqueueCommand(name string, params map[string]string) {
	m.pending = append(m.pending, command{name: name, params: maps.Clone(params)})
}

// OnPreTick applies queued commands in arrival order.
func (m *Module) OnPreTick() {
	pending := m.pending
	m.pending = nil
	for _, cmd := range pending {
		m.apply(cmd)
	}
}

// OnTick advances the clock and emits EventTick.
func (m *Module) OnTick() {
	m.state.Tick++
	for _, species := range m.spawnOrder {
		m.state.Population[species]++
	}
	m.state.EnergyTotal = 0
	for _, count := range m.state.Population {
		m.state.EnergyTotal += count * 2
	}
	m.emitTick()
}

func (m *Module) apply(cmd command) {
	switch cmd.name {
	case CommandReset:
		if seed, ok := m.intParam(cmd, "seed"); ok {
			m.state.Seed = seed
		}
		m.state.Tick = 0
		m.state.Population = make(map[string]int)
		m.spawnOrder = nil
		m.logger.Info("World reset", "seed", m.state.Seed)
	case CommandSpawn:
		species, ok := cmd.params["species"]
		if !ok {
			return
		}
		count, ok := m.intParam(cmd, "count")
		if !ok {
			return
		}
		if !slices.Contains(m.spawnOrder, species) {
			m.spawnOrder = append(m.spawnOrder, species)
		}
		m.state.Population[species] += count
	case CommandSetParam:
		name, ok := cmd.params["name"]
		if !ok {
			return
		}
		if value, ok := m.floatParam(cmd, "value"); ok {
			m.params[name] = value
		}
	case CommandApplyShock:
		strength, ok := m.floatParam(cmd, "strength")
		if !ok {
			return
		}
		for _, species := range m.spawnOrder {
			m.state.Population[species] = int(float64(m.state.Population[species]) * (1.0 - strength))
		}
	case CommandStopAtTick:
		if value, ok := m.intParam(cmd, "value"); ok {
			m.stopAt = value
		}
	default:
		m.logger.Warn("Unknown world command", "command", cmd.name)
	}
}

func (m *Module) intParam(cmd command, key string) (int, bool) {
	return param[int](m.logger, cmd, key)
}

func (m *Module) floatParam(cmd command, key string) (float64, bool) {
	return param[float64](m.logger, cmd, key)
}

// param converts a string command parameter. Malformed values are logged and
// reported as absent.
func param[T int | float64](logger simhost.Logger, cmd command, key string) (T, bool) {
	var zero T
	raw, ok := cmd.params[key]
	if !ok {
		return zero, false
	}
	t := reflect.TypeOf(zero)
	v, err := cast.FromType(raw, t)
	if err != nil {
		logger.Warn("Invalid command parameter", "command", cmd.name, "param", key, "value", raw, "error", err)
		return zero, false
	}
	return reflect.ValueOf(v).Convert(t).Interface().(T), true
}

func (m *Module) emitTick() {
	payload := map[string]string{
		"seed":         strconv.Itoa(m.state.Seed),
		"tick":         strconv.Itoa(m.state.Tick),
		"energy_total": strconv.Itoa(m.state.EnergyTotal),
	}
	for species, count := range m.state.Population {
		payload["population."+species] = strconv.Itoa(count)
	}
	m.bus.Emit(simhost.Event{Type: EventTick, Tick: m.state.Tick, Payload: payload})
	m.sim.Info("Tick", "tick", m.state.Tick, "species", len(m.state.Population))
}

// ReadModel returns a copy of the current state.
func (m *Module) ReadModel() ReadModel {
	rm := m.state
	rm.Population = maps.Clone(m.state.Population)
	return rm
}

// Param returns a value stored by set_param.
func (m *Module) Param(name string) (float64, bool) {
	v, ok := m.params[name]
	return v, ok
}

// ShouldStop reports whether a stop tick is set and has been reached.
func (m *Module) ShouldStop() bool {
	return m.stopAt >= 0 && m.state.Tick >= m.stopAt
}

// Checksum folds the population in species order, then the energy total and
// the seed, into a single number.
func (m *Module) Checksum() string {
	var total int64
	speciesKeys := make([]string, 0, len(m.state.Population))
	for species := range m.state.Population {
		speciesKeys = append(speciesKeys, species)
	}
	slices.Sort(speciesKeys)
	for _, species := range speciesKeys {
		total = total*31 + int64(m.state.Population[species])
	}
	total = total*31 + int64(m.state.EnergyTotal)
	total = total*31 + int64(m.state.Seed)
	return strconv.FormatInt(total, 10)
}
