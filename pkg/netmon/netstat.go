package netmon

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/psm-tools/srvdetect/pkg/evidence"
)

// netstatEnumerator shells out to netstat -ano, the Windows enumeration
// facility that reports owning PIDs without elevated privileges.
type netstatEnumerator struct{}

func (e *netstatEnumerator) Name() string { return "netstat" }

func (e *netstatEnumerator) Connections(ctx context.Context, pid int) ([]evidence.ConnectionRecord, error) {
	out, err := exec.CommandContext(ctx, "netstat", "-ano").Output()
	if err != nil {
		return nil, fmt.Errorf("netstat: %w", err)
	}
	return parseNetstatOutput(string(out), pid), nil
}

// parseNetstatOutput extracts the tracked PID's ESTABLISHED rows from
// netstat -ano output:
//
//	TCP    10.0.0.5:50123    1.2.3.4:43594    ESTABLISHED    4321
func parseNetstatOutput(output string, pid int) []evidence.ConnectionRecord {
	var records []evidence.ConnectionRecord
	pidStr := strconv.Itoa(pid)

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		if !strings.EqualFold(fields[0], "TCP") {
			continue
		}
		if fields[3] != "ESTABLISHED" || fields[4] != pidStr {
			continue
		}

		localAddr, localPort := splitAddrPort(fields[1])
		remoteAddr, remotePort := splitAddrPort(fields[2])
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
