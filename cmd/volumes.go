package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"shotty/internal/controller"
)

func newVolumesCmd(opts *options) *cobra.Command {
	volumesCmd := &cobra.Command{
		Use:   "volumes",
		Short: "Commands for volumes",
	}

	var project string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the volumes of the instances",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, ctl *controller.Controller) error {
			return ctl.ListVolumes(ctx, project)
		}),
	}
	addProjectFlag(listCmd, &project, "Only volumes of instances for project (tag project:<name>)")

	volumesCmd.AddCommand(listCmd)
	return volumesCmd
}
