package simhost

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// logEntry is one captured log record.
type logEntry struct {
	Level string
	Msg   string
	Args  []any
}

// MockLogger implements the Logger interface for testing
type MockLogger struct {
	mu      sync.Mutex
	Entries []logEntry
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, logEntry{Level: level, Msg: msg, Args: args})
}

func (l *MockLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *MockLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }
func (l *MockLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *MockLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }

// Find returns the entries at level whose message contains msg.
func (l *MockLogger) Find(level, msg string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var found []logEntry
	for _, e := range l.Entries {
		if e.Level == level && strings.Contains(e.Msg, msg) {
			found = append(found, e)
		}
	}
	return found
}

// Arg returns the value logged under key.
func (e logEntry) Arg(key string) any {
	for i := 0; i+1 < len(e.Args); i += 2 {
		if e.Args[i] == key {
			return e.Args[i+1]
		}
	}
	return nil
}

// journal records hook invocations across modules in call order.
type journal struct {
	calls []string
}

func (j *journal) add(call string) { j.calls = append(j.calls, call) }

func (j *journal) reset() { j.calls = nil }

// filter returns the calls ending with suffix, e.g. ".start".
func (j *journal) filter(suffix string) []string {
	var out []string
	for _, c := range j.calls {
		if strings.HasSuffix(c, suffix) {
			out = append(out, strings.TrimSuffix(c, suffix))
		}
	}
	return out
}

// journalModule implements every hook and records each call as "<type>.<hook>".
type journalModule struct {
	BaseModule
	j *journal
}

func (m *journalModule) OnInit()                  { m.j.add(m.TypeID() + ".init") }
func (m *journalModule) OnStart()                 { m.j.add(m.TypeID() + ".start") }
func (m *journalModule) OnStop()                  { m.j.add(m.TypeID() + ".stop") }
func (m *journalModule) OnPreTick()               { m.j.add(m.TypeID() + ".pre") }
func (m *journalModule) OnTick()                  { m.j.add(m.TypeID() + ".tick") }
func (m *journalModule) OnPostTick()              { m.j.add(m.TypeID() + ".post") }
func (m *journalModule) OnDeliverBufferedEvents() { m.j.add(m.TypeID() + ".delivered") }

func journalFactory(j *journal) Factory {
	return func(cfg InstanceConfig, _ *ModuleContext) (Module, error) {
		return &journalModule{BaseModule: NewBaseModule(cfg), j: j}, nil
	}
}

// plainModule implements no optional hook.
type plainModule struct {
	BaseModule
}

func plainFactory(cfg InstanceConfig, _ *ModuleContext) (Module, error) {
	return &plainModule{BaseModule: NewBaseModule(cfg)}, nil
}

// writeDescriptor creates <dir>/<subdir>/manifest.toml.
func writeDescriptor(t *testing.T, dir, subdir, content string) {
	t.Helper()
	moduleDir := filepath.Join(dir, subdir)
	require.NoError(t, os.MkdirAll(moduleDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(moduleDir, DescriptorFile), []byte(content), 0o600))
}

// descriptorTOML renders a descriptor file.
func descriptorTOML(id, criticality string, deps ...string) string {
	quoted := make([]string, len(deps))
	for i, d := range deps {
		quoted[i] = `"` + d + `"`
	}
	return "id = \"" + id + "\"\nversion = \"1.0.0\"\ncriticality = \"" + criticality +
		"\"\ndependencies = [" + strings.Join(quoted, ", ") + "]\n"
}

// MockComponentLoader is a ComponentLoader backed by testify/mock.
type MockComponentLoader struct {
	mock.Mock
}

func (m *MockComponentLoader) Load(path string) (Component, error) {
	args := m.Called(path)
	if c := args.Get(0); c != nil {
		return c.(Component), args.Error(1)
	}
	return nil, args.Error(1)
}

func instance(typeID string) InstanceConfig {
	return InstanceConfig{TypeID: typeID, InstanceID: DefaultInstanceID}
}
