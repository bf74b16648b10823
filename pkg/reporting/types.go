package reporting

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/psm-tools/srvdetect/pkg/evidence"
)

// DetectionReport is the complete result of one detection run: the resolved
// launch configuration, the evidence accumulated by every source, the chosen
// primary address, and the raw connection audit list.
type DetectionReport struct {
	RunID     string    `json:"run_id"`
	TargetDir string    `json:"target_dir"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  string    `json:"duration"`

	// Launched is false for static-only (--no-launch) runs.
	Launched bool       `json:"launched"`
	Launch   LaunchInfo `json:"launch"`

	// Primary is nil when no valid candidate survived filtering in any
	// tier; the result then reports "not determined" rather than guessing.
	Primary *evidence.AddressCandidate `json:"primary,omitempty"`

	ConfigAddresses     []evidence.AddressCandidate `json:"config_addresses,omitempty"`
	ConnectionAddresses []evidence.AddressCandidate `json:"connection_addresses,omitempty"`
	OutputAddresses     []evidence.AddressCandidate `json:"output_addresses,omitempty"`

	// Connections is the raw record list, kept for audit.
	Connections []evidence.ConnectionRecord `json:"connections,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// Determined reports whether any evidence source produced a primary address.
func (r *DetectionReport) Determined() bool {
	return r.Primary != nil
}

// LaunchInfo summarizes the resolved launch configuration for the report.
type LaunchInfo struct {
	JarPath   string   `json:"jar_path"`
	WorkDir   string   `json:"work_dir"`
	Script    string   `json:"script,omitempty"`
	JavaArgs  []string `json:"java_args,omitempty"`
	ConfigURL string   `json:"config_url,omitempty"`
	MainClass string   `json:"main_class,omitempty"`
}

// NewRunID generates a unique identifier for one detection run.
func NewRunID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("run-%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(buf))
}
