// Package analyze extracts candidate domains and IPs from the monitored
// process's output lines, independent of connection monitoring.
package analyze

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/psm-tools/srvdetect/pkg/evidence"
	"github.com/psm-tools/srvdetect/pkg/reporting"
)

// serverKeywords boost a candidate's relevance when they share a line with
// it: the loader mentioning "connecting to X" is stronger evidence than X in
// a stack trace.
var serverKeywords = []string{
	"server", "world", "host", "address", "connecting", "connection",
	"bind", "listening", "port", "url", "config", "endpoint",
}

const (
	baseRelevance    = 1
	keywordRelevance = 3
)

// Analyzer applies the address patterns to output lines as they arrive and
// accumulates one candidate per distinct host for the session.
type Analyzer struct {
	domain *regexp.Regexp
	ipv4   *regexp.Regexp
	log    *reporting.Logger

	mutex      sync.Mutex
	byHost     map[string]int // host -> index into candidates
	candidates []evidence.AddressCandidate
}

// New creates an analyzer over the package-level compiled patterns.
func New(log *reporting.Logger) *Analyzer {
	if log == nil {
		log = reporting.Nop()
	}
	return &Analyzer{
		domain: evidence.DomainPattern,
		ipv4:   evidence.IPv4Pattern,
		log:    log,
		byHost: make(map[string]int),
	}
}

// Analyze inspects one output line and returns the candidates it newly
// contributed. A host seen on an earlier line is not re-added, but its
// relevance is raised if this line scores higher.
func (a *Analyzer) Analyze(line string) []evidence.AddressCandidate {
	endpoints := evidence.ExtractEndpoints(line)
	if len(endpoints) == 0 {
		return nil
	}

	relevance := baseRelevance
	if hasServerKeyword(line) {
		relevance = keywordRelevance
	}
	now := time.Now()

	a.mutex.Lock()
	defer a.mutex.Unlock()

	var added []evidence.AddressCandidate
	for _, ep := range endpoints {
		host := strings.ToLower(ep.Host)
		if !evidence.RoutableHost(host) {
			continue
		}

		if idx, ok := a.byHost[host]; ok {
			if relevance > a.candidates[idx].Relevance {
				a.candidates[idx].Relevance = relevance
			}
			if ep.Port > 0 && a.candidates[idx].Port == 0 {
				a.candidates[idx].Port = ep.Port
			}
			continue
		}

		cand := evidence.AddressCandidate{
			Host:       host,
			Port:       ep.Port,
			Source:     evidence.SourceOutput,
			Relevance:  relevance,
			ObservedAt: now,
		}
		a.byHost[host] = len(a.candidates)
		a.candidates = append(a.candidates, cand)
		added = append(added, cand)
		a.log.Info("Address detected in output", "host", host, "relevance", relevance)
	}
	return added
}

// Candidates returns a copy of everything extracted so far, in
// first-observed order.
func (a *Analyzer) Candidates() []evidence.AddressCandidate {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	out := make([]evidence.AddressCandidate, len(a.candidates))
	copy(out, a.candidates)
	return out
}

func hasServerKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range serverKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
