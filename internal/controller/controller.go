// Package controller implements the shotty commands on top of an EC2 client.
//
// Every operation resolves its target instances afresh through
// FilterInstances and works through them one at a time. Listing failures
// abort the operation; lifecycle failures on a single instance are reported
// and the operation moves on to the next instance.
package controller

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/rs/zerolog"

	"shotty/internal/config"
	"shotty/internal/errors"
	"shotty/internal/interfaces"
	"shotty/internal/models"
	"shotty/internal/output"
)

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	// Out receives progress messages and, for the default formatter, listed rows
	Out       io.Writer
	Formatter interfaces.RowFormatter
	Logger    *zerolog.Logger
	// SnapshotDescription is attached to snapshots created by CreateSnapshots
	SnapshotDescription string
	// WaitTimeout bounds each state wait when restarting an instance after cancellation
	WaitTimeout time.Duration
}

// Controller runs the resource commands
type Controller struct {
	client      interfaces.EC2Client
	out         io.Writer
	rows        interfaces.RowFormatter
	log         zerolog.Logger
	description string
	waitTimeout time.Duration
}

// New creates a controller for client
func New(client interfaces.EC2Client, opts Options) *Controller {
	c := &Controller{
		client:      client,
		out:         opts.Out,
		rows:        opts.Formatter,
		log:         zerolog.Nop(),
		description: opts.SnapshotDescription,
		waitTimeout: opts.WaitTimeout,
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.rows == nil {
		c.rows = output.NewTextFormatter(c.out)
	}
	if opts.Logger != nil {
		c.log = *opts.Logger
	}
	if c.description == "" {
		c.description = config.DefaultSnapshotDescription
	}
	if c.waitTimeout <= 0 {
		c.waitTimeout = config.DefaultWaitTimeout
	}
	return c
}

// FilterInstances yields the instances tagged project=<project>, or every
// instance when project is empty. The sequence queries EC2 each time it is ranged over.
func (c *Controller) FilterInstances(ctx context.Context, project string) iter.Seq2[models.Instance, error] {
	c.log.Debug().Str("project", project).Msg("resolving instances")
	return c.client.Instances(ctx, project)
}

// ListInstances prints one row per matching instance
func (c *Controller) ListInstances(ctx context.Context, project string) error {
	for instance, err := range c.FilterInstances(ctx, project) {
		if err != nil {
			return c.flush(err)
		}
		if err := c.rows.Instance(instance); err != nil {
			return c.flush(err)
		}
	}
	return c.flush(nil)
}

// ListVolumes prints one row per volume attached to a matching instance
func (c *Controller) ListVolumes(ctx context.Context, project string) error {
	for instance, err := range c.FilterInstances(ctx, project) {
		if err != nil {
			return c.flush(err)
		}
		for volume, err := range c.client.Volumes(ctx, instance.ID) {
			if err != nil {
				return c.flush(err)
			}
			if err := c.rows.Volume(volume); err != nil {
				return c.flush(err)
			}
		}
	}
	return c.flush(nil)
}

// ListSnapshots prints the snapshots of every volume of every matching
// instance, newest first. Unless all is set, listing a volume stops after
// its first completed snapshot.
func (c *Controller) ListSnapshots(ctx context.Context, project string, all bool) error {
	for instance, err := range c.FilterInstances(ctx, project) {
		if err != nil {
			return c.flush(err)
		}
		for volume, err := range c.client.Volumes(ctx, instance.ID) {
			if err != nil {
				return c.flush(err)
			}
			for snapshot, err := range c.client.Snapshots(ctx, volume.ID) {
				if err != nil {
					return c.flush(err)
				}
				if err := c.rows.Snapshot(snapshot, instance.ID); err != nil {
					return c.flush(err)
				}
				if snapshot.Completed() && !all {
					break
				}
			}
		}
	}
	return c.flush(nil)
}

// CreateSnapshots stops each matching instance, snapshots all of its
// volumes and starts it again, one instance at a time. Cancelling ctx ends
// the run after the current instance has been started again.
func (c *Controller) CreateSnapshots(ctx context.Context, project string) error {
	var total, failed int
	for instance, err := range c.FilterInstances(ctx, project) {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return c.interrupted("create snapshots", total, failed, err)
		}
		total++
		if !c.snapshotInstance(ctx, instance) {
			failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return c.interrupted("create snapshots", total, failed, err)
	}
	c.summarize("create snapshots", total, failed)
	return nil
}

// snapshotInstance runs the stop/snapshot/start cycle for one instance and
// reports whether every step succeeded. Once a stop has been issued the
// instance is always started again.
func (c *Controller) snapshotInstance(ctx context.Context, instance models.Instance) bool {
	id := instance.ID
	log := c.log.With().Str("instance", id).Logger()

	c.printf("Stopping %s instance\n", id)
	if err := c.client.StopInstance(ctx, id); err != nil {
		c.reportFailure(log, "stop", id, err)
		return false
	}

	// The restart runs even when ctx is cancelled, within its own budget:
	// one wait for stopped and one for running.
	restartCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*c.waitTimeout)
	defer cancel()

	var ok bool
	if err := c.client.WaitUntilStopped(ctx, id); err != nil {
		c.reportFailure(log, "confirm stop of", id, err)
		if ctx.Err() != nil {
			// EC2 rejects a start while the instance is still stopping.
			if err := c.client.WaitUntilStopped(restartCtx, id); err != nil {
				c.reportFailure(log, "confirm stop of", id, err)
			}
		}
	} else {
		ok = c.snapshotVolumes(ctx, log, id)
	}

	c.printf("Starting back %s instance\n", id)
	if err := c.client.StartInstance(restartCtx, id); err != nil {
		c.reportFailure(log, "start", id, err)
		return false
	}
	if err := c.client.WaitUntilRunning(restartCtx, id); err != nil {
		c.reportFailure(log, "confirm start of", id, err)
		return false
	}

	log.Debug().Bool("ok", ok).Msg("snapshot cycle finished")
	return ok
}

func (c *Controller) snapshotVolumes(ctx context.Context, log zerolog.Logger, instanceID string) bool {
	ok := true
	for volume, err := range c.client.Volumes(ctx, instanceID) {
		if err != nil {
			c.reportFailure(log, "list volumes of", instanceID, err)
			return false
		}
		if ctx.Err() != nil {
			return false
		}

		c.printf(" Creating snaphots for volume %s\n", volume.ID)
		snapshot, err := c.client.CreateSnapshot(ctx, volume.ID, c.description)
		if err != nil {
			c.printf(" Could not snapshot volume %s. %v\n", volume.ID, err)
			log.Warn().Err(err).Str("volume", volume.ID).Msg("snapshot failed")
			ok = false
			continue
		}
		log.Debug().Str("volume", volume.ID).Str("snapshot", snapshot.ID).Msg("snapshot requested")
	}
	return ok
}

// StopInstances issues a stop request for each matching instance
func (c *Controller) StopInstances(ctx context.Context, project string) error {
	return c.eachInstance(ctx, project, "Stopping", "stop", c.client.StopInstance)
}

// StartInstances issues a start request for each matching instance
func (c *Controller) StartInstances(ctx context.Context, project string) error {
	return c.eachInstance(ctx, project, "Starting", "start", c.client.StartInstance)
}

// eachInstance applies action to every matching instance. A failed action is
// reported and does not stop the remaining instances from being processed.
func (c *Controller) eachInstance(ctx context.Context, project, verb, action string, fn func(context.Context, string) error) error {
	var total, failed int
	for instance, err := range c.FilterInstances(ctx, project) {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return c.interrupted(action, total, failed, err)
		}
		total++

		c.printf("%s %s instance\n", verb, instance.ID)
		if err := fn(ctx, instance.ID); err != nil {
			c.reportFailure(c.log.With().Str("instance", instance.ID).Logger(), action, instance.ID, err)
			failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return c.interrupted(action, total, failed, err)
	}
	c.summarize(action, total, failed)
	return nil
}

func (c *Controller) reportFailure(log zerolog.Logger, action, instanceID string, err error) {
	c.printf(" Could not %s %s. %v\n", action, instanceID, err)
	log.Warn().Err(errors.InstanceErrorWithCause(instanceID, action, err)).Msg("instance action failed")
}

func (c *Controller) summarize(action string, total, failed int) {
	event := c.log.Info()
	if failed > 0 {
		event = c.log.Warn()
	}
	event.Str("action", action).Int("instances", total).Int("failed", failed).Msg("done")
}

func (c *Controller) interrupted(action string, total, failed int, err error) error {
	c.log.Warn().Err(err).Str("action", action).Int("instances", total).Int("failed", failed).Msg("interrupted")
	return err
}

func (c *Controller) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// flush renders buffered rows and returns err, or the flush error when err is nil
func (c *Controller) flush(err error) error {
	if ferr := c.rows.Flush(); ferr != nil && err == nil {
		return ferr
	}
	return err
}
