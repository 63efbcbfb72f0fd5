package aws

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"math"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"shotty/internal/errors"
	"shotty/internal/models"
)

const (
	defaultProfile     = "shotty"
	defaultMaxRetries  = 3
	defaultWaitTimeout = 10 * time.Minute
	defaultWaitDelay   = 15 * time.Second
	maxBackoff         = 30 * time.Second
)

// EC2API is the subset of *ec2.Client used by Client
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
}

// Client implements interfaces.EC2Client on top of the EC2 API
type Client struct {
	api         EC2API
	region      string
	waitTimeout time.Duration
	waitDelay   time.Duration
}

// ClientConfig holds configuration for the EC2 client
type ClientConfig struct {
	Profile     string
	Region      string
	MaxRetries  int
	WaitTimeout time.Duration
	// WaitDelay is the minimum poll interval used by the state waiters
	WaitDelay time.Duration
}

func (c *ClientConfig) withDefaults() ClientConfig {
	out := ClientConfig{}
	if c != nil {
		out = *c
	}
	if out.Profile == "" {
		out.Profile = defaultProfile
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = defaultMaxRetries
	}
	if out.WaitTimeout <= 0 {
		out.WaitTimeout = defaultWaitTimeout
	}
	if out.WaitDelay <= 0 {
		out.WaitDelay = defaultWaitDelay
	}
	return out
}

// NewClient loads the named shared config profile and creates an EC2 client
func NewClient(ctx context.Context, clientConfig *ClientConfig) (*Client, error) {
	cc := clientConfig.withDefaults()

	opts := []func(*config.LoadOptions) error{
		config.WithSharedConfigProfile(cc.Profile),
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(
				retry.NewStandard(func(so *retry.StandardOptions) {
					so.Backoff = retry.BackoffDelayerFunc(backoffDelay)
				}),
				cc.MaxRetries,
			)
		}),
	}
	if cc.Region != "" {
		opts = append(opts, config.WithRegion(cc.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.AuthErrorWithCause("failed to load AWS configuration", err).
			WithContext("profile", cc.Profile).
			WithSuggestion("Ensure the profile exists in ~/.aws/config or ~/.aws/credentials").
			WithSuggestion(fmt.Sprintf("Create it with 'aws configure --profile %s'", cc.Profile))
	}

	if cfg.Region == "" {
		return nil, errors.ConfigErrorf("no AWS region configured for profile %q", cc.Profile).
			WithContext("profile", cc.Profile).
			WithSuggestion("Set region in the profile, AWS_REGION, or pass --region")
	}

	client := NewClientFromAPI(ec2.NewFromConfig(cfg), &cc)
	client.region = cfg.Region
	return client, nil
}

// NewClientFromAPI wraps an existing EC2 API implementation
func NewClientFromAPI(api EC2API, clientConfig *ClientConfig) *Client {
	cc := clientConfig.withDefaults()
	return &Client{
		api:         api,
		region:      cc.Region,
		waitTimeout: cc.WaitTimeout,
		waitDelay:   cc.WaitDelay,
	}
}

// backoffDelay is exponential (1s, 2s, 4s, ...) capped at maxBackoff
func backoffDelay(attempt int, _ error) (time.Duration, error) {
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay, nil
}

// Region returns the region the client is configured for
func (c *Client) Region() string {
	return c.region
}

// Instances yields instances, filtered server-side on tag:project when project is set
func (c *Client) Instances(ctx context.Context, project string) iter.Seq2[models.Instance, error] {
	return func(yield func(models.Instance, error) bool) {
		input := &ec2.DescribeInstancesInput{}
		if project != "" {
			input.Filters = []types.Filter{{
				Name:   aws.String("tag:" + models.ProjectTagKey),
				Values: []string{project},
			}}
		}

		paginator := ec2.NewDescribeInstancesPaginator(c.api, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(models.Instance{}, apiError("failed to describe instances", err).
					WithContext("project", project))
				return
			}
			for _, reservation := range page.Reservations {
				for _, instance := range reservation.Instances {
					if !yield(convertInstance(instance), nil) {
						return
					}
				}
			}
		}
	}
}

// Volumes yields the volumes attached to instanceID
func (c *Client) Volumes(ctx context.Context, instanceID string) iter.Seq2[models.Volume, error] {
	return func(yield func(models.Volume, error) bool) {
		input := &ec2.DescribeVolumesInput{
			Filters: []types.Filter{{
				Name:   aws.String("attachment.instance-id"),
				Values: []string{instanceID},
			}},
		}

		paginator := ec2.NewDescribeVolumesPaginator(c.api, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(models.Volume{}, apiError("failed to describe volumes", err).
					WithContext("instanceId", instanceID))
				return
			}
			for _, volume := range page.Volumes {
				if !yield(convertVolume(volume, instanceID), nil) {
					return
				}
			}
		}
	}
}

// Snapshots yields the snapshots of volumeID, newest first.
// All pages are read before the first snapshot is yielded so the order holds across pages.
func (c *Client) Snapshots(ctx context.Context, volumeID string) iter.Seq2[models.Snapshot, error] {
	return func(yield func(models.Snapshot, error) bool) {
		input := &ec2.DescribeSnapshotsInput{
			Filters: []types.Filter{{
				Name:   aws.String("volume-id"),
				Values: []string{volumeID},
			}},
		}

		var snapshots []models.Snapshot
		paginator := ec2.NewDescribeSnapshotsPaginator(c.api, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(models.Snapshot{}, apiError("failed to describe snapshots", err).
					WithContext("volumeId", volumeID))
				return
			}
			for _, snapshot := range page.Snapshots {
				snapshots = append(snapshots, convertSnapshot(snapshot))
			}
		}

		sort.SliceStable(snapshots, func(i, j int) bool {
			return snapshots[i].StartTime.After(snapshots[j].StartTime)
		})

		for _, snapshot := range snapshots {
			if !yield(snapshot, nil) {
				return
			}
		}
	}
}

// StopInstance requests that an instance be stopped
func (c *Client) StopInstance(ctx context.Context, instanceID string) error {
	_, err := c.api.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return apiError("failed to stop instance", err).WithContext("instanceId", instanceID)
	}
	return nil
}

// StartInstance requests that an instance be started
func (c *Client) StartInstance(ctx context.Context, instanceID string) error {
	_, err := c.api.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return apiError("failed to start instance", err).WithContext("instanceId", instanceID)
	}
	return nil
}

// WaitUntilStopped polls until the instance is stopped or the wait timeout elapses
func (c *Client) WaitUntilStopped(ctx context.Context, instanceID string) error {
	waiter := ec2.NewInstanceStoppedWaiter(c.api, func(o *ec2.InstanceStoppedWaiterOptions) {
		o.MinDelay = c.waitDelay
		o.MaxDelay = max(c.waitDelay, o.MaxDelay)
	})
	input := &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}}
	if err := waiter.Wait(ctx, input, c.waitTimeout); err != nil {
		return apiError("instance did not reach the stopped state", err).
			WithContext("instanceId", instanceID).
			WithContext("timeout", c.waitTimeout)
	}
	return nil
}

// WaitUntilRunning polls until the instance is running or the wait timeout elapses
func (c *Client) WaitUntilRunning(ctx context.Context, instanceID string) error {
	waiter := ec2.NewInstanceRunningWaiter(c.api, func(o *ec2.InstanceRunningWaiterOptions) {
		o.MinDelay = c.waitDelay
		o.MaxDelay = max(c.waitDelay, o.MaxDelay)
	})
	input := &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}}
	if err := waiter.Wait(ctx, input, c.waitTimeout); err != nil {
		return apiError("instance did not reach the running state", err).
			WithContext("instanceId", instanceID).
			WithContext("timeout", c.waitTimeout)
	}
	return nil
}

// CreateSnapshot requests a snapshot of volumeID
func (c *Client) CreateSnapshot(ctx context.Context, volumeID, description string) (models.Snapshot, error) {
	out, err := c.api.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(volumeID),
		Description: aws.String(description),
	})
	if err != nil {
		return models.Snapshot{}, apiError("failed to create snapshot", err).
			WithContext("volumeId", volumeID)
	}
	if out.SnapshotId == nil {
		return models.Snapshot{}, errors.APIError("create snapshot returned no snapshot id").
			WithContext("volumeId", volumeID)
	}

	return models.Snapshot{
		ID:          aws.ToString(out.SnapshotId),
		VolumeID:    aws.ToString(out.VolumeId),
		State:       string(out.State),
		Progress:    aws.ToString(out.Progress),
		StartTime:   aws.ToTime(out.StartTime),
		Description: aws.ToString(out.Description),
	}, nil
}

// apiError wraps a provider failure, recording the EC2 error code when there is one
func apiError(message string, err error) *errors.ShottyError {
	e := errors.APIErrorWithCause(message, err)

	var ae smithy.APIError
	if stderrors.As(err, &ae) {
		e.WithContext("code", ae.ErrorCode())
		switch ae.ErrorCode() {
		case "UnauthorizedOperation", "AuthFailure":
			e.WithSuggestion("Check the IAM permissions of the configured profile")
		case "IncorrectInstanceState":
			e.WithSuggestion("The instance is in a state that does not allow this action; retry once it settles")
		}
	}
	return e
}

func convertInstance(i types.Instance) models.Instance {
	tags := make([]models.Tag, 0, len(i.Tags))
	for _, t := range i.Tags {
		tags = append(tags, models.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}

	instance := models.Instance{
		ID:            aws.ToString(i.InstanceId),
		Type:          string(i.InstanceType),
		PublicDNSName: aws.ToString(i.PublicDnsName),
		Tags:          models.TagMap(tags),
	}
	if i.Placement != nil {
		instance.AvailabilityZone = aws.ToString(i.Placement.AvailabilityZone)
	}
	if i.State != nil {
		instance.State = string(i.State.Name)
	}
	return instance
}

func convertVolume(v types.Volume, instanceID string) models.Volume {
	return models.Volume{
		ID:         aws.ToString(v.VolumeId),
		InstanceID: instanceID,
		State:      string(v.State),
		SizeGiB:    aws.ToInt32(v.Size),
		Encrypted:  aws.ToBool(v.Encrypted),
	}
}

func convertSnapshot(s types.Snapshot) models.Snapshot {
	return models.Snapshot{
		ID:          aws.ToString(s.SnapshotId),
		VolumeID:    aws.ToString(s.VolumeId),
		State:       string(s.State),
		Progress:    aws.ToString(s.Progress),
		StartTime:   aws.ToTime(s.StartTime),
		Description: aws.ToString(s.Description),
	}
}
