package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionString(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	Version = "dev"
	assert.Contains(t, GetVersionString(), "shotty dev")

	Version = "1.2.0"
	assert.Equal(t, "shotty v1.2.0", GetVersionString())
}

func TestGetFullVersionString(t *testing.T) {
	out := GetFullVersionString()
	assert.Contains(t, out, runtime.Version())
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}
