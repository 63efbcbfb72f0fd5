package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagMap(t *testing.T) {
	tests := []struct {
		name     string
		tags     []Tag
		expected map[string]string
	}{
		{
			name:     "nil tags",
			tags:     nil,
			expected: map[string]string{},
		},
		{
			name: "distinct keys",
			tags: []Tag{
				{Key: "project", Value: "demo"},
				{Key: "Name", Value: "web"},
			},
			expected: map[string]string{"project": "demo", "Name": "web"},
		},
		{
			name: "duplicate key keeps last value",
			tags: []Tag{
				{Key: "project", Value: "first"},
				{Key: "env", Value: "prod"},
				{Key: "project", Value: "second"},
			},
			expected: map[string]string{"project": "second", "env": "prod"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TagMap(tt.tags))
		})
	}
}

func TestInstanceProject(t *testing.T) {
	tagged := Instance{ID: "i-1", Tags: map[string]string{"project": "demo"}}
	assert.Equal(t, "demo", tagged.Project())

	untagged := Instance{ID: "i-2"}
	assert.Equal(t, NoProject, untagged.Project())

	empty := Instance{ID: "i-3", Tags: map[string]string{"project": ""}}
	assert.Equal(t, "", empty.Project())
}

func TestSnapshotCompleted(t *testing.T) {
	assert.True(t, Snapshot{State: "completed"}.Completed())
	assert.False(t, Snapshot{State: "pending"}.Completed())
	assert.False(t, Snapshot{State: "error"}.Completed())
}

func TestVolumeEncryptionStatus(t *testing.T) {
	assert.Equal(t, "Encrypted", Volume{Encrypted: true}.EncryptionStatus())
	assert.Equal(t, "Not Encrypted", Volume{}.EncryptionStatus())
}
