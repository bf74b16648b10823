package netmon

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/psm-tools/srvdetect/pkg/evidence"
)

// tcpEstablished is the /proc/net/tcp state column value for ESTABLISHED.
const tcpEstablished = "01"

// procfsEnumerator reads the Linux connection table directly from procfs,
// mapping socket inodes to the tracked process through /proc/<pid>/fd.
type procfsEnumerator struct {
	root string
}

func (e *procfsEnumerator) Name() string { return "procfs" }

func (e *procfsEnumerator) Connections(_ context.Context, pid int) ([]evidence.ConnectionRecord, error) {
	inodes, err := socketInodes(e.root, pid)
	if err != nil {
		return nil, fmt.Errorf("read socket inodes for pid %d: %w", pid, err)
	}

	var records []evidence.ConnectionRecord
	for _, table := range []struct {
		path string
		ipv6 bool
	}{
		{e.root + "/net/tcp", false},
		{e.root + "/net/tcp6", true},
	} {
		data, err := os.ReadFile(table.path)
		if err != nil {
			if table.ipv6 {
				continue // no tcp6 table is fine
			}
			return nil, fmt.Errorf("read %s: %w", table.path, err)
		}
		for _, rec := range parseProcNetTCP(string(data), table.ipv6, inodes) {
			rec.PID = pid
			records = append(records, rec)
		}
	}
	return records, nil
}

// socketInodes returns the socket inodes held open by pid.
func socketInodes(root string, pid int) (map[string]struct{}, error) {
	fdDir := fmt.Sprintf("%s/%d/fd", root, pid)
	fds, err := os.ReadDir(fdDir)
	if err != nil {
		return nil, err
	}
	inodes := make(map[string]struct{})
	for _, fd := range fds {
		link, err := os.Readlink(fdDir + "/" + fd.Name())
		if err != nil {
			continue
		}
		if strings.HasPrefix(link, "socket:[") && strings.HasSuffix(link, "]") {
			inodes[link[8:len(link)-1]] = struct{}{}
		}
	}
	return inodes, nil
}

// parseProcNetTCP parses a /proc/net/tcp[6] table, keeping only ESTABLISHED
// rows whose inode belongs to the tracked process. A nil inode set keeps
// every ESTABLISHED row.
func parseProcNetTCP(content string, ipv6 bool, inodes map[string]struct{}) []evidence.ConnectionRecord {
	var records []evidence.ConnectionRecord

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Scan() // header

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		if fields[3] != tcpEstablished {
			continue
		}
		if inodes != nil {
			if _, ok := inodes[fields[9]]; !ok {
				continue
			}
		}

		localIP, localPort := parseHexAddr(fields[1], ipv6)
		remoteIP, remotePort := parseHexAddr(fields[2], ipv6)
		if remoteIP == "" || remotePort == 0 {
			continue
		}

		records = append(records, evidence.ConnectionRecord{
			LocalAddr:  localIP,
			LocalPort:  localPort,
			RemoteAddr: remoteIP,
			RemotePort: remotePort,
			State:      "ESTABLISHED",
		})
	}
	return records
}

// parseHexAddr decodes the kernel's hex address:port notation. IPv6
// addresses are stored as four little-endian 32-bit groups.
func parseHexAddr(raw string, ipv6 bool) (string, int) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return "", 0
	}
	port, _ := strconv.ParseInt(parts[1], 16, 32)

	b, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", int(port)
	}

	if ipv6 {
		if len(b) != 16 {
			return "", int(port)
		}
		ip := make(net.IP, 16)
		for i := 0; i < 4; i++ {
			ip[i*4+0] = b[i*4+3]
			ip[i*4+1] = b[i*4+2]
			ip[i*4+2] = b[i*4+1]
			ip[i*4+3] = b[i*4+0]
		}
		return ip.String(), int(port)
	}

	if len(b) < 4 {
		return "", int(port)
	}
	return fmt.Sprintf("%d.%d.%d.%d", b[3], b[2], b[1], b[0]), int(port)
}
