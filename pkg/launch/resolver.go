package launch

import (
	"io/fs"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/psm-tools/srvdetect/pkg/evidence"
	"github.com/psm-tools/srvdetect/pkg/reporting"
	"github.com/psm-tools/srvdetect/pkg/scan"
)

// preferredScriptNames order launch scripts so the ones most likely to be the
// real entry point are parsed first.
var preferredScriptNames = []string{"run", "start", "launch"}

// preferredJarNames order JAR fallback candidates.
var preferredJarNames = []string{"server", "loader", "gameserver", "world"}

// Detection is the full static-inspection result for one directory: a
// runnable launch configuration plus every address the config scan turned up.
type Detection struct {
	Config     *LaunchConfig
	Candidates []evidence.AddressCandidate
}

// Resolver reconstructs a runnable LaunchConfig from a target directory.
type Resolver struct {
	log           *reporting.Logger
	scanner       *scan.Scanner
	defaultMemory string
}

// NewResolver creates a resolver. defaultMemory is the -Xmx flag synthesized
// for script-less JAR launches; empty selects -Xmx512M.
func NewResolver(log *reporting.Logger, scanner *scan.Scanner, defaultMemory string) *Resolver {
	if log == nil {
		log = reporting.Nop()
	}
	if scanner == nil {
		scanner = scan.New(log, 0)
	}
	if defaultMemory == "" {
		defaultMemory = "-Xmx512M"
	}
	return &Resolver{log: log, scanner: scanner, defaultMemory: defaultMemory}
}

// Detect inspects dir and returns a launch configuration together with the
// config-scan candidates. Script-derived configs win over JAR fallbacks; the
// config scan always runs. ErrNoExecutable is returned only when the tree
// holds neither a usable script nor any JAR.
func (r *Resolver) Detect(dir string) (*Detection, error) {
	cfg := r.detectFromScripts(dir)
	if cfg == nil {
		cfg = r.detectFromJars(dir)
	}
	if cfg == nil {
		return nil, ErrNoExecutable
	}

	candidates := r.scanner.Scan(dir)
	if host := configURLCandidate(cfg.ConfigURL); host != nil {
		candidates = mergeCandidate(candidates, *host)
	}

	return &Detection{Config: cfg, Candidates: candidates}, nil
}

// detectFromScripts parses every recognized launch script, preferred names
// first, and returns the first fragment whose JAR resolves.
func (r *Resolver) detectFromScripts(dir string) *LaunchConfig {
	scripts := findFiles(dir, func(path string) bool {
		return KindOf(path) != KindUnknown
	})
	sort.SliceStable(scripts, func(i, j int) bool {
		pi, pj := scriptRank(scripts[i]), scriptRank(scripts[j])
		if pi != pj {
			return pi < pj
		}
		return scripts[i] < scripts[j]
	})

	for _, script := range scripts {
		frag, err := ParseScript(script)
		if err != nil {
			r.log.Warn("Skipping unparseable script", "script", script, "error", err)
			continue
		}
		if frag.Resolvable() {
			r.log.Info("Launch configuration detected from script",
				"script", script, "jar", frag.JarPath)
			return frag.Config()
		}
		r.log.Debug("Script yielded no resolvable JAR", "script", script)
	}
	return nil
}

// detectFromJars synthesizes a default configuration around the most
// plausible JAR in the tree.
func (r *Resolver) detectFromJars(dir string) *LaunchConfig {
	jars := findFiles(dir, func(path string) bool {
		return strings.EqualFold(filepath.Ext(path), ".jar")
	})
	if len(jars) == 0 {
		return nil
	}
	sort.Strings(jars)

	pick := jars[0]
	for _, name := range preferredJarNames {
		found := ""
		for _, jar := range jars {
			if strings.Contains(strings.ToLower(filepath.Base(jar)), name) {
				found = jar
				break
			}
		}
		if found != "" {
			pick = found
			break
		}
	}

	r.log.Info("No launch script found, falling back to JAR", "jar", pick)
	return &LaunchConfig{
		JarPath:  pick,
		WorkDir:  filepath.Dir(pick),
		JavaArgs: []string{r.defaultMemory},
	}
}

func scriptRank(path string) int {
	base := strings.ToLower(filepath.Base(path))
	for i, name := range preferredScriptNames {
		if strings.Contains(base, name) {
			return i
		}
	}
	return len(preferredScriptNames)
}

// findFiles walks dir collecting files that match, in sorted order so
// repeated detection on an unchanged directory is deterministic.
func findFiles(dir string, match func(string) bool) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && match(path) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// configURLCandidate turns a -configurl value into a config-file address
// candidate, since the URL host is itself static evidence.
func configURLCandidate(raw string) *evidence.AddressCandidate {
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	port := 0
	if p := u.Port(); p != "" {
		port, _ = strconv.Atoi(p)
	}
	return &evidence.AddressCandidate{
		Host:       strings.ToLower(u.Hostname()),
		Port:       port,
		Source:     evidence.SourceConfigFile,
		ObservedAt: time.Now(),
	}
}

// mergeCandidate prepends cand unless the scan already saw its host.
func mergeCandidate(candidates []evidence.AddressCandidate, cand evidence.AddressCandidate) []evidence.AddressCandidate {
	for _, c := range candidates {
		if c.Host == cand.Host {
			return candidates
		}
	}
	return append([]evidence.AddressCandidate{cand}, candidates...)
}
