package main

import (
	"errors"
	"os"

	"github.com/psm-tools/srvdetect/pkg/launch"
	"github.com/psm-tools/srvdetect/pkg/supervise"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	version = "dev" // Will be set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "srvdetect",
	Short: "Detects the server address a launcher-driven game installation connects to",
	Long: `srvdetect inspects a game installation directory, resolves how its server
process is launched (launch scripts, JAR layout, embedded config URLs), runs
the process under supervision, and watches its network connections and console
output to determine the primary server address it talks to.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./srvdetect.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(reportsCmd)
}

// Commands are defined in separate files:
// - detectCmd in detect.go
// - reportsCmd in reports.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to the documented exit codes: 2 for fatal resolution
// or spawn failures, 1 for a run that completed without a primary address
// (and for every other error).
func exitCode(err error) int {
	if errors.Is(err, launch.ErrNoExecutable) || errors.Is(err, supervise.ErrProcessLaunch) {
		return 2
	}
	return 1
}
