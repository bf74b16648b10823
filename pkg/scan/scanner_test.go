package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/psm-tools/srvdetect/pkg/evidence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func hosts(cands []evidence.AddressCandidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Host)
	}
	return out
}

func TestScanProperties(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "server.properties",
		"# world config\n"+
			"server-host=play.example.net\n"+
			"server-port=43594\n"+
			"motd=welcome\n")

	cands := New(nil, 0).Scan(dir)
	assert.Contains(t, hosts(cands), "play.example.net")
	for _, c := range cands {
		assert.Equal(t, evidence.SourceConfigFile, c.Source)
	}
}

func TestScanJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json",
		`{"world": {"address": "world1.example.net", "port": 43594}, "name": "main"}`)

	cands := New(nil, 0).Scan(dir)
	assert.Contains(t, hosts(cands), "world1.example.net")
}

func TestScanYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.yml",
		"server:\n  host: play.example.net:43594\n  threads: 4\n")

	cands := New(nil, 0).Scan(dir)
	require.Contains(t, hosts(cands), "play.example.net")
	for _, c := range cands {
		if c.Host == "play.example.net" {
			assert.Equal(t, 43594, c.Port)
		}
	}
}

func TestScanXML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "client.xml",
		`<client><server>world2.example.net</server><cache size="64"/></client>`)

	cands := New(nil, 0).Scan(dir)
	assert.Contains(t, hosts(cands), "world2.example.net")
}

func TestScanRegexSweepCatchesUnkeyedAddresses(t *testing.T) {
	dir := t.TempDir()
	// a .txt file has no structure to parse; only the raw sweep applies
	writeFile(t, dir, "notes.txt", "backup endpoint 203.0.113.9:50001 when main is down")

	cands := New(nil, 0).Scan(dir)
	assert.Contains(t, hosts(cands), "203.0.113.9")
}

func TestScanDeduplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.properties", "host=play.example.net\n")
	writeFile(t, dir, "b.properties", "address=play.example.net\n")

	cands := New(nil, 0).Scan(dir)
	count := 0
	for _, h := range hosts(cands) {
		if h == "play.example.net" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestScanDepthBound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shallow.properties", "host=shallow.example.net\n")
	writeFile(t, dir, "a/b/c/deep.properties", "host=deep.example.net\n")

	cands := New(nil, 2).Scan(dir)
	got := hosts(cands)
	assert.Contains(t, got, "shallow.example.net")
	assert.NotContains(t, got, "deep.example.net")
}

func TestScanSkipsBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cache.dat", "host=hidden.example.net\n")
	writeFile(t, dir, "client.jar", "host=hidden.example.net\n")

	cands := New(nil, 0).Scan(dir)
	assert.Empty(t, cands)
}

func TestScanMalformedFilesAreSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"server": `)
	writeFile(t, dir, "ok.properties", "host=play.example.net\n")

	cands := New(nil, 0).Scan(dir)
	assert.Contains(t, hosts(cands), "play.example.net")
}

func TestInteresting(t *testing.T) {
	s := New(nil, 0)
	assert.True(t, s.interesting("world.properties"))
	assert.True(t, s.interesting("config.agf"))
	assert.True(t, s.interesting("server.dat2"))
	assert.False(t, s.interesting("sprites.dat"))
	assert.False(t, s.interesting("client.jar"))
	assert.False(t, s.interesting("readme.md"))
}
