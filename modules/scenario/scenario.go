// Package scenario loads scenario files and drives the simulation world from
// a tick-indexed timeline.
package scenario

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/BurntSushi/toml"
)

// ErrInvalidAction is returned for a schedule entry without a command.
var ErrInvalidAction = errors.New("scheduled action has no command")

// Action is one scheduled world command.
type Action struct {
	Tick    int
	Command string
	Params  map[string]string
}

// Scenario is the parsed content of a scenario file.
type Scenario struct {
	Seed       int
	StopAtTick int
	Requires   []string
	Schedule   []Action
}

type scenarioFile struct {
	Seed       int              `toml:"seed"`
	StopAtTick int              `toml:"stop_at_tick"`
	Requires   []string         `toml:"requires"`
	Schedule   []map[string]any `toml:"schedule"`
}

// Load parses a TOML scenario file. Every key of a schedule entry other than
// tick and command becomes a string parameter of the action.
func Load(path string) (Scenario, error) {
	var raw scenarioFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}

	sc := Scenario{
		Seed:       raw.Seed,
		StopAtTick: raw.StopAtTick,
		Requires:   raw.Requires,
	}
	for i, entry := range raw.Schedule {
		action := Action{Params: make(map[string]string)}
		for key, value := range entry {
			switch key {
			case "tick":
				tick, err := strconv.Atoi(format(value))
				if err != nil {
					return Scenario{}, fmt.Errorf("schedule entry %d: invalid tick %v: %w", i, value, err)
				}
				action.Tick = tick
			case "command":
				action.Command = format(value)
			default:
				action.Params[key] = format(value)
			}
		}
		if action.Command == "" {
			return Scenario{}, fmt.Errorf("schedule entry %d: %w", i, ErrInvalidAction)
		}
		sc.Schedule = append(sc.Schedule, action)
	}
	return sc, nil
}

func format(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Timeline answers which actions are due on a tick.
type Timeline struct {
	actions []Action
}

// NewTimeline orders actions by tick. Actions on the same tick keep their
// file order.
func NewTimeline(actions []Action) Timeline {
	sorted := slices.Clone(actions)
	slices.SortStableFunc(sorted, func(a, b Action) int { return a.Tick - b.Tick })
	return Timeline{actions: sorted}
}

// ActionsFor returns the actions scheduled for tick.
func (t Timeline) ActionsFor(tick int) []Action {
	var due []Action
	for _, action := range t.actions {
		if action.Tick == tick {
			due = append(due, action)
		}
	}
	return due
}

// Len returns the number of scheduled actions.
func (t Timeline) Len() int { return len(t.actions) }
