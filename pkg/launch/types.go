package launch

import "errors"

// ErrNoExecutable is returned by Resolver.Detect when a directory contains
// neither a parseable launch script nor any JAR file. There is nothing to
// launch, so the run cannot proceed.
var ErrNoExecutable = errors.New("no launch script or JAR file found")

// LaunchConfig describes one concrete way to start the target process. It is
// built once per run by the Resolver and is immutable afterwards.
type LaunchConfig struct {
	// JarPath is the absolute path of the executable JAR.
	JarPath string
	// WorkDir is the directory the process must run in. For script-derived
	// configs this is the script's own directory, not the caller's.
	WorkDir string
	// Script is the launch script the config was parsed from, empty for
	// synthesized fallback configs.
	Script string
	// JavaArgs are the runtime flags in the order they appeared.
	JavaArgs []string
	// ConfigURL is the value of a -configurl flag, when present.
	ConfigURL string
	// MainClass overrides -jar execution when the script names an explicit
	// entry point.
	MainClass string
}

// Command renders the argv used to spawn the process.
func (c *LaunchConfig) Command(javaBin string) []string {
	if javaBin == "" {
		javaBin = "java"
	}
	argv := make([]string, 0, len(c.JavaArgs)+6)
	argv = append(argv, javaBin)
	argv = append(argv, c.JavaArgs...)
	if c.MainClass != "" {
		argv = append(argv, "-cp", c.JarPath, c.MainClass)
	} else {
		argv = append(argv, "-jar", c.JarPath)
	}
	if c.ConfigURL != "" {
		argv = append(argv, "-configurl", c.ConfigURL)
	}
	return argv
}
