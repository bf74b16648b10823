// Package scan walks a target directory for configuration-like files and
// extracts candidate server addresses from them.
package scan

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/psm-tools/srvdetect/pkg/evidence"
	"github.com/psm-tools/srvdetect/pkg/reporting"
)

const maxFileSize = 1 << 20 // config files bigger than this are blobs, not configs

// addressKeys are config keys whose values are worth inspecting even when
// they do not match the address patterns on their own.
var addressKeys = []string{"server", "host", "address", "url", "ip", "world", "endpoint"}

// skipExts are binary and media files the walk never opens.
var skipExts = map[string]struct{}{
	".jar": {}, ".zip": {}, ".gz": {}, ".exe": {}, ".dll": {}, ".so": {},
	".class": {}, ".dat": {}, ".idx": {}, ".cache": {}, ".png": {},
	".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".mid": {}, ".wav": {}, ".ogg": {}, ".mp3": {},
}

// configExts are the file shapes that get format-aware parsing. Everything
// else that survives the skip list still gets the regex sweep.
var configExts = map[string]struct{}{
	".xml": {}, ".json": {}, ".yml": {}, ".yaml": {},
	".properties": {}, ".ini": {}, ".cfg": {}, ".conf": {}, ".txt": {},
}

// Scanner extracts config-file address candidates from a directory tree.
type Scanner struct {
	log      *reporting.Logger
	maxDepth int
}

// New creates a scanner. A maxDepth of 0 selects the default bound.
func New(log *reporting.Logger, maxDepth int) *Scanner {
	if log == nil {
		log = reporting.Nop()
	}
	if maxDepth <= 0 {
		maxDepth = 6
	}
	return &Scanner{log: log, maxDepth: maxDepth}
}

// Scan walks dir to the configured depth and returns every address candidate
// found in configuration-like files, deduplicated, in first-observed order.
// Individual file failures are logged and skipped; the scan itself never
// fails.
func (s *Scanner) Scan(dir string) []evidence.AddressCandidate {
	var candidates []evidence.AddressCandidate
	seen := make(map[string]struct{})

	add := func(ep evidence.Endpoint) {
		host := strings.ToLower(strings.TrimSpace(ep.Host))
		if host == "" {
			return
		}
		if _, dup := seen[host]; dup {
			return
		}
		seen[host] = struct{}{}
		candidates = append(candidates, evidence.AddressCandidate{
			Host:       host,
			Port:       ep.Port,
			Source:     evidence.SourceConfigFile,
			ObservedAt: time.Now(),
		})
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Warn("Skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if depthOf(dir, path) > s.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.interesting(path) {
			return nil
		}
		for _, ep := range s.scanFile(path) {
			add(ep)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Config scan aborted early", "dir", dir, "error", err)
	}

	return candidates
}

func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// interesting reports whether a file is worth opening: a known config shape,
// or a config.*/server.* name, and never a binary/media file.
func (s *Scanner) interesting(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, skip := skipExts[ext]; skip {
		return false
	}
	if _, ok := configExts[ext]; ok {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	return strings.HasPrefix(base, "config.") || strings.HasPrefix(base, "server.")
}

// scanFile extracts endpoints from one file. Format-aware parsing runs first,
// then the regex sweep over the raw content catches what structure missed.
func (s *Scanner) scanFile(path string) []evidence.Endpoint {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxFileSize {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("Failed to read config file", "path", path, "error", err)
		return nil
	}

	var values []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		values = s.parseJSON(path, data)
	case ".xml":
		values = s.parseXML(path, data)
	case ".yml", ".yaml":
		values = s.parseYAML(path, data)
	case ".properties", ".ini", ".cfg", ".conf":
		values = parseKeyValues(string(data))
	}

	var endpoints []evidence.Endpoint
	for _, v := range values {
		endpoints = append(endpoints, evidence.ExtractEndpoints(v)...)
	}
	endpoints = append(endpoints, evidence.ExtractEndpoints(string(data))...)
	return endpoints
}

func (s *Scanner) parseJSON(path string, data []byte) []string {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("Skipping malformed JSON", "path", path, "error", err)
		return nil
	}
	return collectValues(doc, nil)
}

func (s *Scanner) parseYAML(path string, data []byte) []string {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		s.log.Warn("Skipping malformed YAML", "path", path, "error", err)
		return nil
	}
	return collectValues(doc, nil)
}

// parseXML walks every element and records text content of address-bearing
// elements plus all attribute values. Malformed markup stops the walk but
// keeps what was already collected.
func (s *Scanner) parseXML(path string, data []byte) []string {
	var values []string
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	dec.Strict = false
	var inAddressElem bool
	for {
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn("Skipping malformed XML", "path", path, "error", err)
			}
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inAddressElem = isAddressKey(t.Name.Local)
			for _, attr := range t.Attr {
				values = append(values, attr.Value)
			}
		case xml.CharData:
			if inAddressElem {
				values = append(values, string(t))
			}
		case xml.EndElement:
			inAddressElem = false
		}
	}
	return values
}

// parseKeyValues handles .properties/.ini/.cfg/.conf lines.
func parseKeyValues(content string) []string {
	var values []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			continue
		}
		if isAddressKey(line[:sep]) {
			values = append(values, strings.Trim(strings.TrimSpace(line[sep+1:]), `"'`))
		}
	}
	return values
}

// collectValues walks decoded JSON/YAML structures and gathers string values
// stored under address-bearing keys, recursing through maps and lists.
func collectValues(doc interface{}, values []string) []string {
	switch v := doc.(type) {
	case map[string]interface{}:
		for key, val := range v {
			if str, ok := val.(string); ok && isAddressKey(key) {
				values = append(values, str)
			}
			values = collectValues(val, values)
		}
	case []interface{}:
		for _, item := range v {
			values = collectValues(item, values)
		}
	}
	return values
}

func isAddressKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, k := range addressKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}
