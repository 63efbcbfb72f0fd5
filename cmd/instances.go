package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"shotty/internal/controller"
)

const instancesProjectHelp = "Only instances for project (tag project:<name>)"

func newInstancesCmd(opts *options) *cobra.Command {
	instancesCmd := &cobra.Command{
		Use:   "instances",
		Short: "Commands for instances",
	}

	var listProject string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List EC2 instances",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, ctl *controller.Controller) error {
			return ctl.ListInstances(ctx, listProject)
		}),
	}
	addProjectFlag(listCmd, &listProject, instancesProjectHelp)

	var stopProject string
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the instances",
		Long: `Issue a stop request for every matching instance. A failure on one
instance is reported and the remaining instances are still stopped.`,
		Args: cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, ctl *controller.Controller) error {
			return ctl.StopInstances(ctx, stopProject)
		}),
	}
	addProjectFlag(stopCmd, &stopProject, instancesProjectHelp)

	var startProject string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the instances",
		Long: `Issue a start request for every matching instance. A failure on one
instance is reported and the remaining instances are still started.`,
		Args: cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, ctl *controller.Controller) error {
			return ctl.StartInstances(ctx, startProject)
		}),
	}
	addProjectFlag(startCmd, &startProject, instancesProjectHelp)

	instancesCmd.AddCommand(listCmd, stopCmd, startCmd)
	return instancesCmd
}
