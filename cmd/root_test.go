package cmd

import (
	"bytes"
	"context"
	stderrors "errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotty/internal/config"
	"shotty/internal/errors"
	"shotty/internal/interfaces"
	"shotty/internal/models"
)

// stubClient serves a fixed inventory and records lifecycle calls.
type stubClient struct {
	instances []models.Instance
	volumes   map[string][]models.Volume
	snapshots map[string][]models.Snapshot
	stopErr   map[string]error
	calls     []string
}

func (s *stubClient) Instances(_ context.Context, project string) iter.Seq2[models.Instance, error] {
	return func(yield func(models.Instance, error) bool) {
		for _, i := range s.instances {
			if project != "" && i.Tags["project"] != project {
				continue
			}
			if !yield(i, nil) {
				return
			}
		}
	}
}

func (s *stubClient) Volumes(_ context.Context, instanceID string) iter.Seq2[models.Volume, error] {
	return func(yield func(models.Volume, error) bool) {
		for _, v := range s.volumes[instanceID] {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (s *stubClient) Snapshots(_ context.Context, volumeID string) iter.Seq2[models.Snapshot, error] {
	return func(yield func(models.Snapshot, error) bool) {
		for _, snap := range s.snapshots[volumeID] {
			if !yield(snap, nil) {
				return
			}
		}
	}
}

func (s *stubClient) StopInstance(_ context.Context, id string) error {
	s.calls = append(s.calls, "stop:"+id)
	return s.stopErr[id]
}

func (s *stubClient) StartInstance(_ context.Context, id string) error {
	s.calls = append(s.calls, "start:"+id)
	return nil
}

func (s *stubClient) WaitUntilStopped(_ context.Context, id string) error {
	s.calls = append(s.calls, "wait-stopped:"+id)
	return nil
}

func (s *stubClient) WaitUntilRunning(_ context.Context, id string) error {
	s.calls = append(s.calls, "wait-running:"+id)
	return nil
}

func (s *stubClient) CreateSnapshot(_ context.Context, volumeID, description string) (models.Snapshot, error) {
	s.calls = append(s.calls, "create-snapshot:"+volumeID+":"+description)
	return models.Snapshot{ID: "snap-x", VolumeID: volumeID, State: "pending"}, nil
}

func (s *stubClient) Region() string {
	return "eu-west-1"
}

func newStubClient() *stubClient {
	started := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
	return &stubClient{
		instances: []models.Instance{
			{ID: "i-1", Type: "t2.micro", AvailabilityZone: "us-east-1a", State: "running", PublicDNSName: "ec2-1.example.com", Tags: map[string]string{"project": "demo"}},
			{ID: "i-2", Type: "t2.micro", AvailabilityZone: "us-east-1b", State: "running", Tags: map[string]string{"project": "other"}},
		},
		volumes: map[string][]models.Volume{
			"i-1": {
				{ID: "vol-1", InstanceID: "i-1", State: "in-use", SizeGiB: 8},
				{ID: "vol-2", InstanceID: "i-1", State: "in-use", SizeGiB: 16, Encrypted: true},
			},
		},
		snapshots: map[string][]models.Snapshot{
			"vol-1": {
				{ID: "snap-2", VolumeID: "vol-1", State: "completed", Progress: "100%", StartTime: started},
				{ID: "snap-1", VolumeID: "vol-1", State: "completed", Progress: "100%", StartTime: started.Add(-time.Hour)},
			},
		},
		stopErr: map[string]error{},
	}
}

type harness struct {
	client *stubClient
	cfg    *config.Config
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (h *harness) run(args ...string) error {
	opts := &options{
		newClient: func(_ context.Context, cfg *config.Config) (interfaces.EC2Client, error) {
			h.cfg = cfg
			return h.client, nil
		},
	}
	root := newRootCmd(opts)
	root.SetOut(&h.stdout)
	root.SetErr(&h.stderr)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func newHarness() *harness {
	return &harness{client: newStubClient()}
}

func outputLines(buf *bytes.Buffer) []string {
	trimmed := strings.TrimRight(buf.String(), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestInstancesList(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("instances", "list", "--project", "demo"))
	assert.Equal(t, []string{"i-1,t2.micro,us-east-1a,running,ec2-1.example.com,demo"}, outputLines(&h.stdout))
}

func TestInstancesListAll(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("instances", "list"))
	assert.Len(t, outputLines(&h.stdout), 2)
}

func TestVolumesList(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("volumes", "list", "--project", "demo"))
	assert.Equal(t, []string{
		"vol-1, i-1, in-use, 8GiB, Not Encrypted",
		"vol-2, i-1, in-use, 16GiB, Encrypted",
	}, outputLines(&h.stdout))
}

func TestSnapshotsList(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		count int
	}{
		{name: "most recent completed only", args: []string{"snapshots", "list"}, count: 1},
		{name: "all snapshots", args: []string{"snapshots", "list", "--all"}, count: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			require.NoError(t, h.run(tt.args...))

			out := outputLines(&h.stdout)
			require.Len(t, out, tt.count)
			assert.Equal(t, "snap-2, vol-1, i-1, completed, 100%, Tue Mar  5 14:07:09 2024", out[0])
		})
	}
}

func TestSnapshotsCreate(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("snapshots", "create", "--project", "demo"))
	assert.Equal(t, []string{
		"stop:i-1",
		"wait-stopped:i-1",
		"create-snapshot:vol-1:Created by snapshotAlyzer 30000",
		"create-snapshot:vol-2:Created by snapshotAlyzer 30000",
		"start:i-1",
		"wait-running:i-1",
	}, h.client.calls)
}

func TestInstancesStopContinuesAfterError(t *testing.T) {
	h := newHarness()
	h.client.stopErr["i-1"] = stderrors.New("IncorrectInstanceState")

	require.NoError(t, h.run("instances", "stop"))
	assert.Equal(t, []string{"stop:i-1", "stop:i-2"}, h.client.calls)
	assert.Contains(t, h.stdout.String(), " Could not stop i-1. IncorrectInstanceState")
}

func TestInstancesStart(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("instances", "start", "--project", "other"))
	assert.Equal(t, []string{"start:i-2"}, h.client.calls)
	assert.Equal(t, []string{"Starting i-2 instance"}, outputLines(&h.stdout))
}

func TestTableOutput(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("instances", "list", "--output", "table"))
	assert.Contains(t, h.stdout.String(), "INSTANCE")
	assert.Contains(t, h.stdout.String(), "i-2")
}

func TestVerboseLogsResolvedClient(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("volumes", "list", "--verbose", "--output", "table"))
	assert.Contains(t, h.stderr.String(), "client ready")
	assert.Contains(t, h.stderr.String(), "eu-west-1")
	assert.Contains(t, h.stderr.String(), "table")
}

func TestSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "shotty.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("profile: lab\nregion: eu-west-1\nwait_timeout: 2m\n"), 0o644))

	t.Run("defaults", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.run("instances", "list"))
		assert.Equal(t, config.Default(), h.cfg)
	})

	t.Run("config file", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.run("instances", "list", "--config", configFile))
		assert.Equal(t, "lab", h.cfg.Profile)
		assert.Equal(t, "eu-west-1", h.cfg.Region)
		assert.Equal(t, 2*time.Minute, h.cfg.WaitTimeout)
	})

	t.Run("flags override the file", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.run("instances", "list", "--config", configFile, "--profile", "prod", "--wait-timeout", "30s"))
		assert.Equal(t, "prod", h.cfg.Profile)
		assert.Equal(t, "eu-west-1", h.cfg.Region)
		assert.Equal(t, 30*time.Second, h.cfg.WaitTimeout)
	})
}

func TestSettingsErrors(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		errorType errors.ErrorType
	}{
		{
			name:      "unknown output format",
			args:      []string{"instances", "list", "--output", "json"},
			errorType: errors.ValidationErrorType,
		},
		{
			name:      "missing config file",
			args:      []string{"instances", "list", "--config", "/nonexistent/shotty.yaml"},
			errorType: errors.FileErrorType,
		},
		{
			name:      "non-positive wait timeout",
			args:      []string{"snapshots", "create", "--wait-timeout", "0s"},
			errorType: errors.ValidationErrorType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			err := h.run(tt.args...)
			require.Error(t, err)
			assert.True(t, errors.IsErrorType(err, tt.errorType), "got %v", err)
			assert.Nil(t, h.cfg, "client must not be built when settings are invalid")
		})
	}
}

func TestClientFactoryError(t *testing.T) {
	opts := &options{
		newClient: func(context.Context, *config.Config) (interfaces.EC2Client, error) {
			return nil, errors.AuthErrorWithCause("failed to load AWS configuration", stderrors.New("profile not found"))
		},
	}
	root := newRootCmd(opts)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"volumes", "list"})

	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, 3, errors.GetExitCode(err))
}

func TestRejectsPositionalArgs(t *testing.T) {
	h := newHarness()
	assert.Error(t, h.run("instances", "list", "demo"))
}

func TestVersionCommand(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("version"))
	assert.Contains(t, h.stdout.String(), "shotty EC2 snapshot tool")
}
