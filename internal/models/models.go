package models

import (
	"time"
)

const (
	// ProjectTagKey is the tag used to group instances into projects
	ProjectTagKey = "project"
	// NoProject is printed when an instance carries no project tag
	NoProject = "<no project>"
	// SnapshotStateCompleted is the state of a finished snapshot
	SnapshotStateCompleted = "completed"
)

// Tag is a single key/value label attached to an EC2 resource
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Instance represents an EC2 instance as seen by a single listing
type Instance struct {
	ID               string            `json:"id"`
	Type             string            `json:"type"`
	AvailabilityZone string            `json:"availabilityZone"`
	State            string            `json:"state"`
	PublicDNSName    string            `json:"publicDnsName"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// Volume represents an EBS volume attached to an instance
type Volume struct {
	ID         string `json:"id"`
	InstanceID string `json:"instanceId"`
	State      string `json:"state"`
	SizeGiB    int32  `json:"sizeGiB"`
	Encrypted  bool   `json:"encrypted"`
}

// Snapshot represents a point-in-time copy of a volume
type Snapshot struct {
	ID          string    `json:"id"`
	VolumeID    string    `json:"volumeId"`
	State       string    `json:"state"`
	Progress    string    `json:"progress"`
	StartTime   time.Time `json:"startTime"`
	Description string    `json:"description,omitempty"`
}

// Project returns the value of the project tag, or NoProject when absent
func (i Instance) Project() string {
	if p, ok := i.Tags[ProjectTagKey]; ok {
		return p
	}
	return NoProject
}

// Completed reports whether the snapshot has finished
func (s Snapshot) Completed() bool {
	return s.State == SnapshotStateCompleted
}

// EncryptionStatus returns the human readable encryption flag
func (v Volume) EncryptionStatus() string {
	if v.Encrypted {
		return "Encrypted"
	}
	return "Not Encrypted"
}

// TagMap builds a key/value mapping from a tag list.
// Later entries win when a key appears more than once.
func TagMap(tags []Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.Key] = t.Value
	}
	return m
}
