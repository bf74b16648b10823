// Package netmon observes the operating system's live connection table for a
// supervised process and reports newly established connections.
package netmon

import (
	"context"
	"runtime"

	"github.com/psm-tools/srvdetect/pkg/evidence"
)

// Enumerator is the one OS-dependent primitive in the system: list the
// ESTABLISHED connections owned by a process. Backends parse whatever
// facility the platform provides into ConnectionRecords without timestamps;
// the monitor stamps records when it first sees them.
type Enumerator interface {
	Name() string
	Connections(ctx context.Context, pid int) ([]evidence.ConnectionRecord, error)
}

// NewEnumerator selects the platform backend once at startup. Nothing else
// in the codebase branches on the host OS for enumeration.
func NewEnumerator() Enumerator {
	switch runtime.GOOS {
	case "windows":
		return &netstatEnumerator{}
	case "linux":
		return &procfsEnumerator{root: "/proc"}
	default:
		return &lsofEnumerator{}
	}
}
