package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/psm-tools/srvdetect/pkg/evidence"
)

// ReportFormat represents the report output format
type ReportFormat string

const (
	ReportFormatText ReportFormat = "text"
	ReportFormatJSON ReportFormat = "json"
)

// Formatter renders DetectionReports for humans and for machines.
type Formatter struct{}

// NewFormatter creates a report formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Write renders the report in the requested format.
func (f *Formatter) Write(w io.Writer, report *DetectionReport, format ReportFormat) error {
	switch format {
	case ReportFormatJSON:
		return f.writeJSON(w, report)
	case ReportFormatText, "":
		return f.writeText(w, report)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func (f *Formatter) writeJSON(w io.Writer, report *DetectionReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (f *Formatter) writeText(w io.Writer, report *DetectionReport) error {
	var buf strings.Builder
	rule := strings.Repeat("=", 70) + "\n"
	thin := strings.Repeat("-", 70) + "\n"

	buf.WriteString(rule)
	buf.WriteString("   SERVER DETECTION REPORT\n")
	buf.WriteString(rule)
	buf.WriteString(fmt.Sprintf("Run ID:       %s\n", report.RunID))
	buf.WriteString(fmt.Sprintf("Target:       %s\n", report.TargetDir))
	buf.WriteString(fmt.Sprintf("Duration:     %s\n", report.Duration))
	if !report.Launched {
		buf.WriteString("Mode:         static inspection only (no launch)\n")
	}
	buf.WriteString("\n")

	buf.WriteString("LAUNCH CONFIGURATION\n")
	buf.WriteString(thin)
	buf.WriteString(fmt.Sprintf("JAR:          %s\n", report.Launch.JarPath))
	buf.WriteString(fmt.Sprintf("Working Dir:  %s\n", report.Launch.WorkDir))
	if report.Launch.Script != "" {
		buf.WriteString(fmt.Sprintf("Script:       %s\n", report.Launch.Script))
	}
	if len(report.Launch.JavaArgs) > 0 {
		buf.WriteString(fmt.Sprintf("Java Args:    %s\n", strings.Join(report.Launch.JavaArgs, " ")))
	}
	if report.Launch.ConfigURL != "" {
		buf.WriteString(fmt.Sprintf("Config URL:   %s\n", report.Launch.ConfigURL))
	}
	buf.WriteString("\n")

	writeCandidates(&buf, thin, "CONFIG FILE ADDRESSES", report.ConfigAddresses)

	if report.Launched {
		buf.WriteString("NETWORK CONNECTIONS\n")
		buf.WriteString(thin)
		if len(report.Connections) == 0 {
			buf.WriteString("(none observed)\n")
		}
		for _, rec := range report.Connections {
			class := "web/cdn"
			if rec.LikelyGameServer() {
				class = "game server"
			}
			buf.WriteString(fmt.Sprintf("%s  %s:%d -> %s:%d  [%s]\n",
				rec.ObservedAt.Format("15:04:05"),
				rec.LocalAddr, rec.LocalPort,
				rec.RemoteAddr, rec.RemotePort,
				class))
		}
		buf.WriteString("\n")

		writeCandidates(&buf, thin, "OUTPUT ADDRESSES", report.OutputAddresses)
	}

	buf.WriteString(rule)
	if report.Determined() {
		buf.WriteString(fmt.Sprintf("PRIMARY ADDRESS: %s (%s)\n",
			report.Primary.Endpoint(), report.Primary.Source))
	} else {
		buf.WriteString("PRIMARY ADDRESS: not determined\n")
	}
	buf.WriteString(rule)

	for _, warning := range report.Warnings {
		buf.WriteString(fmt.Sprintf("warning: %s\n", warning))
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

func writeCandidates(buf *strings.Builder, thin, title string, cands []evidence.AddressCandidate) {
	buf.WriteString(title + "\n")
	buf.WriteString(thin)
	if len(cands) == 0 {
		buf.WriteString("(none)\n")
	}
	for _, c := range cands {
		buf.WriteString(fmt.Sprintf("- %s\n", c.Endpoint()))
	}
	buf.WriteString("\n")
}
