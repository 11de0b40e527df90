package builtin

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/simhost"
	"github.com/GoCodeAlone/simhost/modules/recorder"
	"github.com/GoCodeAlone/simhost/modules/world"
)

// runResult captures what a finished run leaves behind.
type runResult struct {
	ticks    int
	world    world.ReadModel
	checksum string
	app      *simhost.Application
	logs     *bytes.Buffer
}

type runOptions struct {
	scenario  string
	maxTicks  int
	policy    string
	instances []simhost.InstanceConfig
}

func defaultInstances() []simhost.InstanceConfig {
	return []simhost.InstanceConfig{
		{TypeID: world.TypeID},
		{TypeID: "scenario"},
	}
}

func runSimulation(t *testing.T, opts runOptions) runResult {
	t.Helper()
	dir := t.TempDir()

	cfg := simhost.DefaultAppConfig()
	cfg.ModulesDir = ".."
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.MaxTicks = opts.maxTicks
	if opts.policy != "" {
		cfg.ErrorPolicy = opts.policy
	}
	cfg.Instances = opts.instances
	if cfg.Instances == nil {
		cfg.Instances = defaultInstances()
	}
	if opts.scenario != "" {
		cfg.ScenarioPath = filepath.Join(dir, "scenario.toml")
		require.NoError(t, os.WriteFile(cfg.ScenarioPath, []byte(opts.scenario), 0o600))
	}

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	app, err := simhost.NewApplication(
		simhost.WithLogger(logger),
		simhost.WithConfig(cfg),
		simhost.WithComponentLoader(nil),
		simhost.WithFactories(Register),
	)
	require.NoError(t, err)
	t.Cleanup(app.Shutdown)

	require.NoError(t, app.Initialize())
	require.NoError(t, app.StartModules())
	require.NoError(t, app.Run(context.Background()))

	res := runResult{ticks: app.Ticks(), app: app, logs: logs}
	if m, ok := app.Manager().FindModule(world.TypeID, simhost.DefaultInstanceID); ok {
		w := m.(*world.Module)
		res.world = w.ReadModel()
		res.checksum = w.Checksum()
	}
	return res
}

func TestBuiltin_StartOrderAndTickEvents(t *testing.T) {
	instances := append(defaultInstances(), simhost.InstanceConfig{
		TypeID: recorder.TypeID, Params: map[string]string{"sink": recorder.SinkMemory},
	})
	res := runSimulation(t, runOptions{maxTicks: 4, instances: instances})

	order := res.app.Manager().StartOrder()
	assert.Equal(t, []string{world.TypeID, recorder.TypeID, "scenario"}, order,
		"dependents follow the world in lexicographic order")

	for _, typeID := range []string{world.TypeID, "scenario", recorder.TypeID} {
		_, ok := res.app.Manager().FindModule(typeID, simhost.DefaultInstanceID)
		assert.True(t, ok, typeID)
	}

	m, ok := res.app.Manager().FindModule(recorder.TypeID, simhost.DefaultInstanceID)
	require.True(t, ok)
	assert.Equal(t, 4, res.ticks)
	assert.Len(t, m.(*recorder.Module).Events(), res.ticks, "one world tick event per tick")
}

func TestBuiltin_MissingDependencyDisablesDependent(t *testing.T) {
	res := runSimulation(t, runOptions{
		maxTicks:  2,
		policy:    "auto-disable",
		instances: []simhost.InstanceConfig{{TypeID: "scenario"}},
	})

	assert.Empty(t, res.app.Manager().StartOrder())
	assert.Contains(t, res.logs.String(), `"msg":"Missing dependency for module type"`)
	assert.Contains(t, res.logs.String(), `"dependency":"simulation_world"`)
}

func TestBuiltin_ScenarioSpawnAppliesOnNextPreTick(t *testing.T) {
	res := runSimulation(t, runOptions{maxTicks: 50, scenario: `
seed = 11
stop_at_tick = 2
requires = ["simulation_world"]
schedule = [ { tick = 1, command = "spawn", species = "boar", count = 2 } ]
`})

	assert.Equal(t, 2, res.ticks)
	assert.Equal(t, 2, res.world.Tick)
	assert.Equal(t, 11, res.world.Seed)
	assert.Equal(t, 3, res.world.Population["boar"])
}

func TestBuiltin_StopAtTick(t *testing.T) {
	res := runSimulation(t, runOptions{maxTicks: 50, scenario: "seed = 1\nstop_at_tick = 3\n"})
	assert.Equal(t, 3, res.ticks)
	assert.Equal(t, 3, res.world.Tick)
	assert.Contains(t, res.logs.String(), "Stop condition reached")
}

func TestBuiltin_RecorderDoesNotChangeOutcome(t *testing.T) {
	const scenario = `
seed = 17
stop_at_tick = 4
schedule = [
  { tick = 1, command = "spawn", species = "fox", count = 2 },
  { tick = 2, command = "spawn", species = "hare", count = 3 },
]
`
	without := runSimulation(t, runOptions{maxTicks: 50, scenario: scenario})
	with := runSimulation(t, runOptions{
		maxTicks: 50,
		scenario: scenario,
		instances: append(defaultInstances(), simhost.InstanceConfig{
			TypeID: recorder.TypeID, Params: map[string]string{"sink": recorder.SinkMemory},
		}),
	})

	assert.Equal(t, without.ticks, with.ticks)
	assert.Equal(t, without.world, with.world)
	assert.Equal(t, without.checksum, with.checksum)
	assert.Equal(t, 4, with.world.Tick)
}

func TestBuiltin_RunsAreReproducible(t *testing.T) {
	const scenario = `
seed = 23
stop_at_tick = 4
schedule = [
  { tick = 1, command = "spawn", species = "boar", count = 4 },
  { tick = 1, command = "spawn", species = "deer", count = 1 },
]
`
	first := runSimulation(t, runOptions{maxTicks: 50, scenario: scenario})
	second := runSimulation(t, runOptions{maxTicks: 50, scenario: scenario})

	require.NotEmpty(t, first.checksum)
	assert.Equal(t, first.checksum, second.checksum)
	assert.Equal(t, first.world, second.world)
}

func TestBuiltin_CSVRecorderWritesFile(t *testing.T) {
	instances := append(defaultInstances(), simhost.InstanceConfig{TypeID: recorder.TypeID})
	res := runSimulation(t, runOptions{maxTicks: 3, instances: instances})

	m, ok := res.app.Manager().FindModule(recorder.TypeID, simhost.DefaultInstanceID)
	require.True(t, ok)
	res.app.Shutdown()

	data, err := os.ReadFile(m.(*recorder.Module).Path())
	require.NoError(t, err)
	assert.Equal(t, "tick,seed,energy_total\n1,0,0\n2,0,0\n3,0,0\n", string(data))
}

func TestBuiltin_RebuildFlushesAndDetachesOldRecorder(t *testing.T) {
	instances := append(defaultInstances(), simhost.InstanceConfig{TypeID: recorder.TypeID})
	res := runSimulation(t, runOptions{maxTicks: 3, instances: instances})

	m, ok := res.app.Manager().FindModule(recorder.TypeID, simhost.DefaultInstanceID)
	require.True(t, ok)
	old := m.(*recorder.Module)

	require.NoError(t, res.app.Initialize())
	data, err := os.ReadFile(old.Path())
	require.NoError(t, err)
	assert.Equal(t, "tick,seed,energy_total\n1,0,0\n2,0,0\n3,0,0\n", string(data),
		"the previous recorder is stopped and flushed before the rebuild")

	require.NoError(t, res.app.StartModules())
	require.NoError(t, res.app.Run(context.Background()))

	m, ok = res.app.Manager().FindModule(recorder.TypeID, simhost.DefaultInstanceID)
	require.True(t, ok)
	assert.NotSame(t, old, m)
	assert.Len(t, old.Events(), 3, "the previous recorder no longer receives events")
	assert.Len(t, m.(*recorder.Module).Events(), 3)
}
