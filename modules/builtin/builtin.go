// Package builtin registers the factories of the modules shipped with simhost.
package builtin

import (
	"github.com/GoCodeAlone/simhost"
	"github.com/GoCodeAlone/simhost/modules/recorder"
	"github.com/GoCodeAlone/simhost/modules/scenario"
	"github.com/GoCodeAlone/simhost/modules/world"
)

// Register installs the simulation_world, scenario and recorder factories.
// Its signature matches the entry point of external components, so a plugin
// can export it as RegisterModules.
func Register(r *simhost.Registry) {
	r.RegisterFactory(world.TypeID, world.New)
	r.RegisterFactory(scenario.TypeID, scenario.New)
	r.RegisterFactory(recorder.TypeID, recorder.New)
}
