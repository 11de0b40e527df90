package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/simhost"
)

// NewModulesCommand creates the modules command
func NewModulesCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the module instances a config starts",
		Long: `Build and start the modules of an application config without ticking,
print the live instances and the resolved start order, then shut down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootApplication(cmd, configPath, 0)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Type", "Instance", "Version", "Criticality", "Dependencies"})
			for _, m := range app.Manager().Modules() {
				desc, _ := app.Registry().FindDescriptor(m.TypeID())
				t.AppendRow(table.Row{m.TypeID(), m.InstanceID(), desc.Version, desc.Criticality, strings.Join(desc.Dependencies, ", ")})
			}
			t.Render()

			fmt.Fprintf(cmd.OutOrStdout(), "Start order: %s\n", strings.Join(app.Manager().StartOrder(), " -> "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the application config (toml, yaml or json)")

	return cmd
}

// renderDescriptors prints a descriptor table.
func renderDescriptors(cmd *cobra.Command, descriptors []simhost.Descriptor) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Version", "Criticality", "Dependencies", "Library"})
	for _, d := range descriptors {
		t.AppendRow(table.Row{d.TypeID, d.Version, d.Criticality, strings.Join(d.Dependencies, ", "), d.Library})
	}
	t.Render()
}
