package verify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ReportFormat selects how ReportGenerator renders a Report.
type ReportFormat string

const (
	FormatText     ReportFormat = "text"
	FormatJSON     ReportFormat = "json"
	FormatMarkdown ReportFormat = "markdown"
	FormatHTML     ReportFormat = "html"
)

// ReportGenerator renders a Report in one of the supported formats,
// grounded on the teacher's verify.ReportGenerator but trimmed to this
// protocol's flat Report shape (no evidence-class tiers, no per-component
// breakdown).
type ReportGenerator struct {
	format  ReportFormat
	verbose bool
}

func NewReportGenerator(format ReportFormat) *ReportGenerator {
	return &ReportGenerator{format: format}
}

// WithVerbose adds the hash-comparison fields of a failed report to text and
// markdown output (and, in text, the timestamps of a TimestampViolation).
// Text output leaves out empty hash fields; markdown shows the hashes only
// when ExpectedHash is set.
func (g *ReportGenerator) WithVerbose(verbose bool) *ReportGenerator {
	g.verbose = verbose
	return g
}

func (g *ReportGenerator) Generate(report *Report, w io.Writer) error {
	switch g.format {
	case FormatJSON:
		return g.generateJSON(report, w)
	case FormatText:
		return g.generateText(report, w)
	case FormatMarkdown:
		return g.generateMarkdown(report, w)
	case FormatHTML:
		return g.generateHTML(report, w)
	default:
		return fmt.Errorf("verify: unknown report format %q", g.format)
	}
}

func (g *ReportGenerator) generateJSON(report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (g *ReportGenerator) generateText(report *Report, w io.Writer) error {
	fmt.Fprintf(w, "result: %s\n", g.resultString(report.Valid))
	if report.Valid {
		if report.SampledSegments > 0 {
			fmt.Fprintf(w, "mode: sampled (%d/%d segments, %d/%d events)\n",
				report.SampledSegments, report.TotalSegments, report.EventsVerified, report.TotalEvents)
		} else {
			fmt.Fprintf(w, "mode: full (%d events)\n", report.TotalEvents)
		}
		return nil
	}

	fmt.Fprintf(w, "errorAt: %d\n", report.ErrorAt)
	fmt.Fprintf(w, "reason: %s\n", report.Reason)
	if g.verbose {
		if report.ExpectedHash != "" {
			fmt.Fprintf(w, "expectedHash: %s\n", report.ExpectedHash)
		}
		if report.ComputedHash != "" {
			fmt.Fprintf(w, "computedHash: %s\n", report.ComputedHash)
		}
		if report.Reason == ReasonTimestampViolation {
			fmt.Fprintf(w, "previousTimestamp: %d\n", report.PreviousTimestamp)
			fmt.Fprintf(w, "currentTimestamp: %d\n", report.CurrentTimestamp)
		}
	}
	return nil
}

func (g *ReportGenerator) generateMarkdown(report *Report, w io.Writer) error {
	fmt.Fprintf(w, "## Verification Report\n\n")
	fmt.Fprintf(w, "**Result:** %s\n\n", g.resultString(report.Valid))
	if report.Valid {
		if report.SampledSegments > 0 {
			fmt.Fprintf(w, "- Mode: sampled\n- Segments: %d/%d\n- Events verified: %d/%d\n",
				report.SampledSegments, report.TotalSegments, report.EventsVerified, report.TotalEvents)
		} else {
			fmt.Fprintf(w, "- Mode: full\n- Events: %d\n", report.TotalEvents)
		}
		return nil
	}
	fmt.Fprintf(w, "- Error at: `%d`\n- Reason: `%s`\n", report.ErrorAt, report.Reason)
	if g.verbose && report.ExpectedHash != "" {
		fmt.Fprintf(w, "- Expected hash: `%s`\n- Computed hash: `%s`\n", report.ExpectedHash, report.ComputedHash)
	}
	return nil
}

func (g *ReportGenerator) generateHTML(report *Report, w io.Writer) error {
	var b strings.Builder
	b.WriteString("<table>\n")
	fmt.Fprintf(&b, "<tr><th>result</th><td>%s</td></tr>\n", g.resultString(report.Valid))
	if report.Valid {
		fmt.Fprintf(&b, "<tr><th>events</th><td>%d</td></tr>\n", report.TotalEvents)
	} else {
		fmt.Fprintf(&b, "<tr><th>errorAt</th><td>%d</td></tr>\n", report.ErrorAt)
		fmt.Fprintf(&b, "<tr><th>reason</th><td>%s</td></tr>\n", report.Reason)
	}
	b.WriteString("</table>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (g *ReportGenerator) resultString(valid bool) string {
	if valid {
		return "PASS"
	}
	return "FAIL"
}
