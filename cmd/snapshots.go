package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"shotty/internal/controller"
)

func newSnapshotsCmd(opts *options) *cobra.Command {
	snapshotsCmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Commands for snapshots",
	}

	var (
		listProject string
		listAll     bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the snapshots of the volumes",
		Long: `List snapshots newest first. By default listing a volume stops at its
most recent completed snapshot; pass --all to show every snapshot.`,
		Args: cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, ctl *controller.Controller) error {
			return ctl.ListSnapshots(ctx, listProject, listAll)
		}),
	}
	addProjectFlag(listCmd, &listProject, "Only snapshots of instances for project (tag project:<name>)")
	listCmd.Flags().BoolVar(&listAll, "all", false, "List all snapshots for each volume, not just the most recent")

	var createProject string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create snapshots of all volumes",
		Long: `For each matching instance: stop it, wait until it is stopped, snapshot
every attached volume, then start it again and wait until it is running.
Instances are processed one at a time and are briefly unavailable.`,
		Args: cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, ctl *controller.Controller) error {
			return ctl.CreateSnapshots(ctx, createProject)
		}),
	}
	addProjectFlag(createCmd, &createProject, "Only instances for project (tag project:<name>)")

	snapshotsCmd.AddCommand(listCmd, createCmd)
	return snapshotsCmd
}
