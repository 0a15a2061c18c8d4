package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourorg/authflow/pkg/types"
)

// RenderMarkdown renders a human-readable summary of the report to
// outputDir/report.md.
func RenderMarkdown(rep *types.FlowReport, outputDir string) error {
	if rep == nil {
		return fmt.Errorf("report is nil")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	b := &strings.Builder{}
	fmt.Fprintf(b, "# Auth flow report %s\n\n", rep.RunID)
	fmt.Fprintf(b, "- Archive: %s\n", rep.HARPath)
	fmt.Fprintf(b, "- Entries: %d\n", rep.EntryCount)
	fmt.Fprintf(b, "- Candidate flow length: %d (%s)\n\n", rep.CandidateFlowLength, rep.FlowStrategy)

	fmt.Fprintln(b, "## Flow sample")
	for _, s := range rep.FlowStepsSample {
		marker := " "
		if s.IsAuthLike {
			marker = "*"
		}
		fmt.Fprintf(b, "- %s %s %s (%d)\n", marker, s.Method, s.URL, s.Status)
	}

	fmt.Fprintln(b, "\n## Diagram")
	fmt.Fprintf(b, "```\n%s\n```\n", rep.DiagramASCII)

	if rep.ReplayReport != nil {
		fmt.Fprintln(b, "\n## Replay trace")
		for _, step := range rep.ReplayReport.Steps {
			switch {
			case step.Error != "":
				fmt.Fprintf(b, "- %s %s: %s\n", step.Action, step.URL, step.Error)
			case step.URL != "":
				fmt.Fprintf(b, "- %s %s (%d)\n", step.Action, step.URL, step.Status)
			default:
				fmt.Fprintf(b, "- %s\n", step.Action)
			}
		}
		if rep.ReplayReport.FoundSAMLToken != "" {
			fmt.Fprintln(b, "\nFound samlToken cookie.")
		}
		if rep.ReplayReport.FoundAccessToken != "" {
			fmt.Fprintln(b, "\nFound access_token in last response.")
		}
	}

	return os.WriteFile(filepath.Join(outputDir, "report.md"), []byte(b.String()), 0o644)
}
