package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestUserAgent(t *testing.T) {
	t.Cleanup(func(v, c string) func() {
		return func() { Version, Commit = v, c }
	}(Version, Commit))

	Version, Commit = "v1.2.3", "abc1234"
	assert.Equal(t, "fortyfive/v1.2.3 (abc1234)", UserAgent())
}
