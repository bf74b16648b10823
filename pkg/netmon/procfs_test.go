package netmon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addresses are little-endian hex: 0500000A is 10.0.0.5, 0A71D1CB is
// 203.209.113.10
const procNetTCPFixture = `  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
   0: 0100007F:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 11111 1 0000000000000000 100 0 0 10 0
   1: 0500000A:C4C2 0A71D1CB:AA4A 01 00000000:00000000 00:00000000 00000000  1000        0 22222 1 0000000000000000 20 4 30 10 -1
   2: 0500000A:C4C3 0B71D1CB:01BB 01 00000000:00000000 00:00000000 00000000  1000        0 33333 1 0000000000000000 20 4 30 10 -1
`

func TestParseProcNetTCP(t *testing.T) {
	inodes := map[string]struct{}{"22222": {}}

	records := parseProcNetTCP(procNetTCPFixture, false, inodes)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "10.0.0.5", rec.LocalAddr)
	assert.Equal(t, 50370, rec.LocalPort)
	assert.Equal(t, "203.209.113.10", rec.RemoteAddr)
	assert.Equal(t, 43594, rec.RemotePort)
	assert.Equal(t, "ESTABLISHED", rec.State)
}

func TestParseProcNetTCPNilInodesKeepsAllEstablished(t *testing.T) {
	records := parseProcNetTCP(procNetTCPFixture, false, nil)
	// the LISTEN row (st 0A) is dropped, both ESTABLISHED rows kept
	assert.Len(t, records, 2)
}

func TestParseProcNetTCPUnknownInodesDropped(t *testing.T) {
	records := parseProcNetTCP(procNetTCPFixture, false, map[string]struct{}{"99999": {}})
	assert.Empty(t, records)
}

func TestParseHexAddr(t *testing.T) {
	host, port := parseHexAddr("0100007F:1F90", false)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 8080, port)

	host, port = parseHexAddr("0A71D1CB:AA4A", false)
	assert.Equal(t, "203.209.113.10", host)
	assert.Equal(t, 43594, port)

	// IPv6 loopback, four little-endian groups
	host, port = parseHexAddr("00000000000000000000000001000000:1F90", true)
	assert.Equal(t, "::1", host)
	assert.Equal(t, 8080, port)

	host, _ = parseHexAddr("garbage", false)
	assert.Empty(t, host)
}
