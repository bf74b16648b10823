package launch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScriptKind is the closed set of launch-script dialects the parser
// understands. Dispatch happens once, on the kind, never on file extensions
// at call sites.
type ScriptKind int

const (
	KindUnknown ScriptKind = iota
	KindBatch
	KindShell
)

func (k ScriptKind) String() string {
	switch k {
	case KindBatch:
		return "batch"
	case KindShell:
		return "shell"
	default:
		return "unknown"
	}
}

// KindOf classifies a script file by its extension.
func KindOf(path string) ScriptKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bat", ".cmd":
		return KindBatch
	case ".sh":
		return KindShell
	default:
		return KindUnknown
	}
}

// Fragment is the partial launch configuration extracted from one script.
// JarPath is resolved relative to the script's directory and may still point
// at a file that does not exist; the resolver checks that.
type Fragment struct {
	Script    string
	WorkDir   string
	JarPath   string
	JavaArgs  []string
	ConfigURL string
	MainClass string
}

// ParseScript parses a batch or shell launch script into a Fragment.
// Lines that do not contribute launch arguments are skipped, never fatal.
func ParseScript(path string) (*Fragment, error) {
	kind := KindOf(path)
	if kind == KindUnknown {
		return nil, fmt.Errorf("unrecognized script type: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	frag := &Fragment{
		Script:  path,
		WorkDir: filepath.Dir(path),
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch kind {
		case KindBatch:
			parseBatchLine(frag, line)
		case KindShell:
			parseShellLine(frag, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return frag, nil
}

// parseBatchLine handles one line of a .bat/.cmd script. Comments and echo
// directives are dropped, %~dp0 resolves to the script directory.
func parseBatchLine(frag *Fragment, line string) {
	upper := strings.ToUpper(line)
	if strings.HasPrefix(upper, "REM") || strings.HasPrefix(line, "::") {
		return
	}
	line = strings.TrimPrefix(line, "@")
	if strings.HasPrefix(strings.ToUpper(line), "ECHO") {
		return
	}
	line = strings.ReplaceAll(line, "%~dp0", "")
	extractTokens(frag, line)
}

// parseShellLine handles one line of a .sh script.
func parseShellLine(frag *Fragment, line string) {
	if strings.HasPrefix(line, "#") {
		return
	}
	if idx := strings.Index(line, " #"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.ReplaceAll(line, `"$(dirname "$0")"/`, "")
	extractTokens(frag, line)
}

// extractTokens scans a java invocation line for the flags the loader
// ecosystem actually uses: memory flags, system properties, generic JVM
// flags, -configurl, and the JAR reference.
func extractTokens(frag *Fragment, line string) {
	if !strings.Contains(strings.ToLower(line), "java") {
		return
	}

	tokens := strings.Fields(line)
	for i := 0; i < len(tokens); i++ {
		tok := strings.Trim(tokens[i], `"'`)
		switch {
		case strings.HasPrefix(tok, "-Xmx"), strings.HasPrefix(tok, "-Xms"),
			strings.HasPrefix(tok, "-D"), strings.HasPrefix(tok, "-XX:"):
			frag.JavaArgs = append(frag.JavaArgs, tok)
		case tok == "-jar" && i+1 < len(tokens):
			i++
			frag.setJar(strings.Trim(tokens[i], `"'`))
		case tok == "-configurl" && i+1 < len(tokens):
			i++
			frag.ConfigURL = strings.Trim(tokens[i], `"'`)
		case tok == "-cp" || tok == "-classpath":
			// main-class invocation: -cp something.jar pkg.Main
			if i+2 < len(tokens) {
				frag.setJar(strings.Trim(tokens[i+1], `"'`))
				frag.MainClass = strings.Trim(tokens[i+2], `"'`)
				i += 2
			}
		case strings.HasSuffix(strings.ToLower(tok), ".jar") && frag.JarPath == "":
			frag.setJar(tok)
		}
	}
}

func (f *Fragment) setJar(jar string) {
	if jar == "" {
		return
	}
	if !filepath.IsAbs(jar) {
		jar = filepath.Join(f.WorkDir, jar)
	}
	f.JarPath = filepath.Clean(jar)
}

// Resolvable reports whether the fragment points at a JAR that exists on
// disk.
func (f *Fragment) Resolvable() bool {
	if f.JarPath == "" {
		return false
	}
	info, err := os.Stat(f.JarPath)
	return err == nil && !info.IsDir()
}

// Config promotes a resolvable fragment into a full LaunchConfig.
func (f *Fragment) Config() *LaunchConfig {
	return &LaunchConfig{
		JarPath:   f.JarPath,
		WorkDir:   f.WorkDir,
		Script:    f.Script,
		JavaArgs:  f.JavaArgs,
		ConfigURL: f.ConfigURL,
		MainClass: f.MainClass,
	}
}
