package evidence

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Compiled once at startup and passed by reference wherever matching is
// needed. Nothing mutates these.
var (
	// DomainPattern matches dot-separated label sequences whose final label
	// is alphabetic and at least two characters, optionally followed by a
	// port.
	DomainPattern = regexp.MustCompile(`\b(?:[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.)+[A-Za-z]{2,63}(?::[0-9]{1,5})?`)

	// IPv4Pattern matches four dot-separated octets each in 0-255,
	// optionally followed by a port.
	IPv4Pattern = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b(?::[0-9]{1,5})?`)
)

// fileExtLabels are final labels that make a "domain" match a file name
// instead ("Loader.jar", "config.agf"). The domain pattern cannot tell the
// two apart, so these are rejected after matching.
var fileExtLabels = map[string]struct{}{
	"jar": {}, "zip": {}, "gz": {}, "json": {}, "xml": {}, "yml": {},
	"yaml": {}, "properties": {}, "cfg": {}, "conf": {}, "ini": {},
	"txt": {}, "log": {}, "dat": {}, "idx": {}, "bak": {}, "tmp": {},
	"class": {}, "exe": {}, "dll": {}, "png": {}, "jpg": {}, "jpeg": {},
	"gif": {}, "bmp": {}, "mid": {}, "wav": {}, "ogg": {}, "mpb": {},
	"agf": {}, "html": {}, "htm": {}, "php": {}, "md": {},
}

// Endpoint is a bare host with an optional port, as extracted from text.
type Endpoint struct {
	Host string
	Port int
}

// SplitHostPort splits a pattern match into host and optional port.
func SplitHostPort(match string) Endpoint {
	if idx := strings.LastIndex(match, ":"); idx > 0 {
		if port, err := strconv.Atoi(match[idx+1:]); err == nil && port > 0 && port < 65536 {
			return Endpoint{Host: match[:idx], Port: port}
		}
	}
	return Endpoint{Host: match}
}

// looksLikeFileName reports whether a domain match is really a file name.
func looksLikeFileName(host string) bool {
	idx := strings.LastIndex(host, ".")
	if idx < 0 {
		return false
	}
	_, ok := fileExtLabels[strings.ToLower(host[idx+1:])]
	return ok
}

// ExtractEndpoints returns every domain and IPv4 endpoint found in text, in
// order of appearance, with file-name lookalikes removed. Validity filtering
// (loopback, private ranges, denylist) is the caller's concern.
func ExtractEndpoints(text string) []Endpoint {
	type located struct {
		offset int
		ep     Endpoint
	}
	var found []located

	for _, loc := range IPv4Pattern.FindAllStringIndex(text, -1) {
		found = append(found, located{loc[0], SplitHostPort(text[loc[0]:loc[1]])})
	}
	for _, loc := range DomainPattern.FindAllStringIndex(text, -1) {
		ep := SplitHostPort(text[loc[0]:loc[1]])
		if looksLikeFileName(ep.Host) {
			continue
		}
		found = append(found, located{loc[0], ep})
	}

	if len(found) == 0 {
		return nil
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	out := make([]Endpoint, 0, len(found))
	for _, f := range found {
		out = append(out, f.ep)
	}
	return out
}
