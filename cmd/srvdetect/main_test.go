package main

import (
	"fmt"
	"testing"

	"github.com/psm-tools/srvdetect/pkg/launch"
	"github.com/psm-tools/srvdetect/pkg/supervise"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(launch.ErrNoExecutable))
	assert.Equal(t, 2, exitCode(fmt.Errorf("resolving launch configuration: %w", launch.ErrNoExecutable)))
	assert.Equal(t, 2, exitCode(fmt.Errorf("detection run failed: %w", supervise.ErrProcessLaunch)))
	assert.Equal(t, 1, exitCode(errNoPrimary))
	assert.Equal(t, 1, exitCode(fmt.Errorf("failed to load configuration")))
}
