package evidence_test

import (
	"testing"

	"github.com/psm-tools/srvdetect/pkg/evidence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEndpoints(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []evidence.Endpoint
	}{
		{
			name: "bare domain",
			text: "Connecting to www.example-server.com please wait",
			want: []evidence.Endpoint{{Host: "www.example-server.com"}},
		},
		{
			name: "domain with port",
			text: "server=play.example.net:43594",
			want: []evidence.Endpoint{{Host: "play.example.net", Port: 43594}},
		},
		{
			name: "ipv4 with port",
			text: "world 1 at 203.0.113.10:43594",
			want: []evidence.Endpoint{{Host: "203.0.113.10", Port: 43594}},
		},
		{
			name: "file names are not domains",
			text: "Loading Loader.jar and config.agf from cache.dat",
			want: nil,
		},
		{
			name: "mixed, in order of appearance",
			text: "trying 198.51.100.7 then world2.example.net:50001",
			want: []evidence.Endpoint{
				{Host: "198.51.100.7"},
				{Host: "world2.example.net", Port: 50001},
			},
		},
		{
			name: "loopback still extracted, filtering is downstream",
			text: "bound to 127.0.0.1:8080",
			want: []evidence.Endpoint{{Host: "127.0.0.1", Port: 8080}},
		},
		{
			name: "bad octets rejected",
			text: "version 300.1.2.999 ready",
			want: nil,
		},
		{
			name: "no addresses",
			text: "Loading sprites... done",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evidence.ExtractEndpoints(tt.text))
		})
	}
}

func TestExtractEndpointsURL(t *testing.T) {
	eps := evidence.ExtractEndpoints("configurl http://www.example-server.com/config.agf")
	require.NotEmpty(t, eps)
	assert.Equal(t, "www.example-server.com", eps[0].Host)
}

func TestSplitHostPort(t *testing.T) {
	assert.Equal(t, evidence.Endpoint{Host: "a.example.com", Port: 8080},
		evidence.SplitHostPort("a.example.com:8080"))
	assert.Equal(t, evidence.Endpoint{Host: "a.example.com"},
		evidence.SplitHostPort("a.example.com"))
	// out-of-range port is kept as part of the host, not a port
	assert.Equal(t, evidence.Endpoint{Host: "a.example.com:99999"},
		evidence.SplitHostPort("a.example.com:99999"))
}
