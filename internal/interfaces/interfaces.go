package interfaces

import (
	"context"
	"iter"

	"shotty/internal/models"
)

// EC2Client defines the EC2 operations the resource controller relies on.
// Sequences are lazy: every iteration issues fresh requests.
type EC2Client interface {
	// Instances yields all instances, or only those tagged project=<project> when project is set
	Instances(ctx context.Context, project string) iter.Seq2[models.Instance, error]

	// Volumes yields the volumes attached to an instance
	Volumes(ctx context.Context, instanceID string) iter.Seq2[models.Volume, error]

	// Snapshots yields the snapshots of a volume, newest first
	Snapshots(ctx context.Context, volumeID string) iter.Seq2[models.Snapshot, error]

	StopInstance(ctx context.Context, instanceID string) error
	StartInstance(ctx context.Context, instanceID string) error

	// WaitUntilStopped blocks until the instance reports the stopped state
	WaitUntilStopped(ctx context.Context, instanceID string) error

	// WaitUntilRunning blocks until the instance reports the running state
	WaitUntilRunning(ctx context.Context, instanceID string) error

	// CreateSnapshot requests a new snapshot of a volume
	CreateSnapshot(ctx context.Context, volumeID, description string) (models.Snapshot, error)

	// Region returns the region requests are sent to
	Region() string
}

// RowFormatter renders listed resources
type RowFormatter interface {
	Instance(instance models.Instance) error
	Volume(volume models.Volume) error
	Snapshot(snapshot models.Snapshot, instanceID string) error

	// Flush writes anything buffered by the formatter
	Flush() error

	// FormatType returns the format name (e.g. "text", "table")
	FormatType() string
}
