package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shotty/internal/aws"
	"shotty/internal/config"
	"shotty/internal/controller"
	"shotty/internal/interfaces"
	"shotty/internal/logging"
	"shotty/internal/output"
	"shotty/internal/version"
)

// clientFactory builds the EC2 client for a resolved configuration
type clientFactory func(ctx context.Context, cfg *config.Config) (interfaces.EC2Client, error)

// options holds global flag values shared by every subcommand
type options struct {
	configFile  string
	profile     string
	region      string
	output      string
	waitTimeout time.Duration
	verbose     bool

	newClient clientFactory
}

func newEC2Client(ctx context.Context, cfg *config.Config) (interfaces.EC2Client, error) {
	client, err := aws.NewClient(ctx, &aws.ClientConfig{
		Profile:     cfg.Profile,
		Region:      cfg.Region,
		MaxRetries:  cfg.MaxRetries,
		WaitTimeout: cfg.WaitTimeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight requests and waits.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return newRootCmd(&options{newClient: newEC2Client}).ExecuteContext(ctx)
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shotty",
		Short: "Shotty manages EC2 snapshots",
		Long: `Shotty lists and manages the EC2 instances, volumes and snapshots of a project.
Resources are grouped by the "project" tag on their instance.`,
		Example: `  # List instances of one project
  shotty instances list --project demo

  # Show every snapshot, not only the most recent completed one
  shotty snapshots list --project demo --all

  # Stop, snapshot and restart all instances of a project
  shotty snapshots create --project demo`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to a YAML or JSON configuration file")
	flags.StringVar(&opts.profile, "profile", config.DefaultProfile, "AWS shared config profile")
	flags.StringVarP(&opts.region, "region", "r", "", "AWS region (defaults to the profile's region)")
	flags.StringVarP(&opts.output, "output", "o", "text", "Output format (text, table)")
	flags.DurationVar(&opts.waitTimeout, "wait-timeout", config.DefaultWaitTimeout, "Maximum time to wait for an instance state change")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	rootCmd.AddCommand(newSnapshotsCmd(opts))
	rootCmd.AddCommand(newVolumesCmd(opts))
	rootCmd.AddCommand(newInstancesCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.GetFullVersionString())
		},
	}
}

// settings resolves configuration: defaults, then the config file, then flags set explicitly
func (o *options) settings(cmd *cobra.Command) (*config.Config, error) {
	parser := config.NewParser()

	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = parser.ParseConfig(o.configFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("profile") {
		cfg.Profile = o.profile
	}
	if flags.Changed("region") {
		cfg.Region = o.region
	}
	if flags.Changed("output") {
		cfg.Output = o.output
	}
	if flags.Changed("wait-timeout") {
		cfg.WaitTimeout = o.waitTimeout
	}

	if err := parser.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// controller wires a Controller for cmd from the resolved settings
func (o *options) controller(cmd *cobra.Command) (*controller.Controller, error) {
	cfg, err := o.settings(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, o.verbose)
	if err != nil {
		return nil, err
	}

	formatter, err := output.NewFormatter(cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}

	client, err := o.newClient(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("profile", cfg.Profile).
		Str("region", client.Region()).
		Str("output", formatter.FormatType()).
		Dur("wait_timeout", cfg.WaitTimeout).
		Msg("client ready")

	return controller.New(client, controller.Options{
		Out:                 cmd.OutOrStdout(),
		Formatter:           formatter,
		Logger:              &logger,
		SnapshotDescription: cfg.SnapshotDescription,
		WaitTimeout:         cfg.WaitTimeout,
	}), nil
}

// run adapts a controller operation to a cobra RunE function
func (o *options) run(op func(ctx context.Context, ctl *controller.Controller) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctl, err := o.controller(cmd)
		if err != nil {
			return err
		}
		return op(cmd.Context(), ctl)
	}
}

func addProjectFlag(cmd *cobra.Command, project *string, help string) {
	cmd.Flags().StringVar(project, "project", "", help)
}
