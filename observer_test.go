package simhost

import (
	"context"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloudEvent(t *testing.T) {
	event, err := NewCloudEvent(EventTypeRunStarted, eventSource, map[string]any{"budget": 5}, map[string]interface{}{"attempt": 1})
	require.NoError(t, err)

	assert.Equal(t, EventTypeRunStarted, event.Type())
	assert.Equal(t, eventSource, event.Source())
	assert.NotEmpty(t, event.ID())
	assert.Contains(t, event.Extensions(), "attempt")
	assert.JSONEq(t, `{"budget":5}`, string(event.Data()))
}

func TestNewCloudEvent_UnencodableData(t *testing.T) {
	_, err := NewCloudEvent(EventTypeRunStarted, eventSource, map[string]any{"ch": make(chan int)}, nil)
	assert.Error(t, err)
}

func TestApplication_UnregisterObserver(t *testing.T) {
	var kept, removed []string
	f := newAppFixture(t, map[string]string{"a": descriptorTOML("a", "Optional")},
		[]InstanceConfig{instance("a")})

	keep := NewFunctionalObserver("keep", func(_ context.Context, e cloudevents.Event) error {
		kept = append(kept, e.Type())
		return nil
	})
	drop := NewFunctionalObserver("drop", func(_ context.Context, e cloudevents.Event) error {
		removed = append(removed, e.Type())
		return nil
	})
	f.app.RegisterObserver(keep)
	f.app.RegisterObserver(drop, EventTypeModuleStarted)

	require.NoError(t, f.app.Initialize())
	require.NoError(t, f.app.StartModules())
	assert.Equal(t, []string{EventTypeModuleStarted}, removed)

	f.app.UnregisterObserver(drop)
	f.app.UnregisterObserver(NewFunctionalObserver("unknown", nil))
	require.NoError(t, f.app.Run(context.Background()))
	f.app.Shutdown()

	assert.Equal(t, []string{EventTypeModuleStarted}, removed, "unregistered observers receive nothing more")
	assert.Equal(t, []string{
		EventTypeModuleStarted,
		EventTypeRunStarted,
		EventTypeRunStopped,
		EventTypeModuleStopped,
	}, kept)
}

func TestApplication_RegisterObserverReplacesSameID(t *testing.T) {
	var first, second int
	f := newAppFixture(t, map[string]string{"a": descriptorTOML("a", "Optional")},
		[]InstanceConfig{instance("a")})

	f.app.RegisterObserver(NewFunctionalObserver("obs", func(context.Context, cloudevents.Event) error {
		first++
		return nil
	}))
	f.app.RegisterObserver(NewFunctionalObserver("obs", func(context.Context, cloudevents.Event) error {
		second++
		return nil
	}))

	require.NoError(t, f.app.Initialize())
	require.NoError(t, f.app.StartModules())
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}
