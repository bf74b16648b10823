package reporting

import (
	"github.com/psm-tools/srvdetect/pkg/evidence"
)

// Builder reconciles the three evidence streams into a ranked result.
type Builder struct {
	log *Logger
}

// NewBuilder creates a report builder.
func NewBuilder(log *Logger) *Builder {
	if log == nil {
		log = Nop()
	}
	return &Builder{log: log}
}

// Build merges config-scan candidates, connection records, and output
// candidates into the report's evidence sections and picks the primary
// address. Priority: network evidence beats config files beats output text;
// ties within a tier go to the first-observed candidate, with output-text
// ties resolved by relevance first.
func (b *Builder) Build(report *DetectionReport,
	configCands []evidence.AddressCandidate,
	records []evidence.ConnectionRecord,
	outputCands []evidence.AddressCandidate,
) {
	report.Connections = records
	report.ConfigAddresses = validOnly(configCands)
	report.OutputAddresses = validOnly(outputCands)
	report.ConnectionAddresses = connectionCandidates(records)

	if primary := b.pick(report); primary != nil {
		report.Primary = primary
		b.log.Info("Primary address determined",
			"address", primary.Endpoint(), "source", primary.Source)
	} else {
		b.log.Warn("No primary address could be determined")
	}
}

func (b *Builder) pick(report *DetectionReport) *evidence.AddressCandidate {
	// tier 1: a live connection is the most reliable signal
	if len(report.ConnectionAddresses) > 0 {
		c := report.ConnectionAddresses[0]
		return &c
	}

	// tier 2: addresses found in config files
	if len(report.ConfigAddresses) > 0 {
		c := report.ConfigAddresses[0]
		return &c
	}

	// tier 3: highest-relevance output candidate, first observed wins ties
	var best *evidence.AddressCandidate
	for i := range report.OutputAddresses {
		c := &report.OutputAddresses[i]
		if best == nil || c.Relevance > best.Relevance {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// connectionCandidates converts the remote endpoint of each record into a
// candidate, dropping unroutable remotes and duplicates while preserving
// observation order.
func connectionCandidates(records []evidence.ConnectionRecord) []evidence.AddressCandidate {
	var out []evidence.AddressCandidate
	seen := make(map[string]struct{})
	for _, rec := range records {
		cand := rec.Candidate()
		if !cand.Valid() {
			continue
		}
		if _, dup := seen[rec.Key()]; dup {
			continue
		}
		seen[rec.Key()] = struct{}{}
		out = append(out, cand)
	}
	return out
}

func validOnly(cands []evidence.AddressCandidate) []evidence.AddressCandidate {
	var out []evidence.AddressCandidate
	for _, c := range cands {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}
