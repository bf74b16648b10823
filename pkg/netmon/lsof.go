package netmon

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/psm-tools/srvdetect/pkg/evidence"
)

// lsofEnumerator shells out to lsof, the connection-enumeration facility on
// macOS and the BSDs.
type lsofEnumerator struct{}

func (e *lsofEnumerator) Name() string { return "lsof" }

func (e *lsofEnumerator) Connections(ctx context.Context, pid int) ([]evidence.ConnectionRecord, error) {
	out, err := exec.CommandContext(ctx, "lsof", "-p", strconv.Itoa(pid), "-i", "-n", "-P").Output()
	if err != nil {
		// lsof exits 1 when the process has no network files; that is an
		// empty snapshot, not a failure.
		if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 && len(out) > 0 {
			return parseLsofOutput(string(out), pid), nil
		}
		return nil, fmt.Errorf("lsof: %w", err)
	}
	return parseLsofOutput(string(out), pid), nil
}

// parseLsofOutput extracts ESTABLISHED rows from plain lsof output:
//
//	java 123 user 45u IPv4 0x.. 0t0 TCP 10.0.0.5:50123->1.2.3.4:43594 (ESTABLISHED)
func parseLsofOutput(output string, pid int) []evidence.ConnectionRecord {
	var records []evidence.ConnectionRecord

	for _, line := range strings.Split(output, "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}
		if fields[len(fields)-1] != "(ESTABLISHED)" {
			continue
		}
		name := fields[len(fields)-2]
		arrow := strings.Index(name, "->")
		if arrow < 0 {
			continue
		}

		localAddr, localPort := splitAddrPort(name[:arrow])
		remoteAddr, remotePort := splitAddrPort(name[arrow+2:])
		if remoteAddr == "" || remotePort == 0 {
			continue
		}

		records = append(records, evidence.ConnectionRecord{
			LocalAddr:  localAddr,
			LocalPort:  localPort,
			RemoteAddr: remoteAddr,
			RemotePort: remotePort,
			State:      "ESTABLISHED",
			PID:        pid,
		})
	}
	return records
}

// splitAddrPort splits "host:port", tolerating the bracketed IPv6 form.
func splitAddrPort(s string) (string, int) {
	if strings.HasPrefix(s, "[") {
		end := strings.LastIndex(s, "]")
		if end < 0 || end+1 >= len(s) || s[end+1] != ':' {
			return "", 0
		}
		port, err := strconv.Atoi(s[end+2:])
		if err != nil {
			return "", 0
		}
		return s[1:end], port
	}

	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", 0
	}
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return "", 0
	}
	return s[:idx], port
}
