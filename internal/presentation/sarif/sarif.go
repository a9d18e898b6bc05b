// Package sarif renders a redaction report as SARIF 2.1.0, letting a CI
// pipeline surface what bugsafe found the same way it already surfaces
// linter/scanner output.
package sarif

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	sarif "github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/bugsafe/bugsafe/internal/bundle/schema"
	"github.com/bugsafe/bugsafe/internal/redact/engine"
)

const toolName = "bugsafe"
const toolInformationURI = "https://github.com/bugsafe/bugsafe"

// Formatter renders one capture's redaction report as a SARIF run. Every
// match becomes a result; every distinct pattern name becomes a rule.
type Formatter struct {
	writer io.Writer
	bundle *schema.Bundle
	report *engine.Report
}

// NewFormatter builds a Formatter for bundle's capture, describing the
// redactions recorded in report.
func NewFormatter(w io.Writer, bundle *schema.Bundle, report *engine.Report) *Formatter {
	return &Formatter{writer: w, bundle: bundle, report: report}
}

// Format writes the SARIF document to the Formatter's writer.
func (f *Formatter) Format() error {
	doc := sarif.NewReport()

	run := sarif.NewRunWithInformationURI(toolName, toolInformationURI)
	run.Tool.Driver.Version = &f.bundle.Metadata.BugsafeVersion

	f.addRules(run)
	f.addResults(run)
	f.addInvocation(run)
	f.addProperties(run)

	doc.AddRun(run)

	if err := doc.Write(f.writer); err != nil {
		return fmt.Errorf("sarif: failed to write report: %w", err)
	}
	_, err := f.writer.Write([]byte("\n"))
	return err
}

// addRules registers one reporting descriptor per distinct pattern name
// the report actually matched, so a SARIF viewer can group findings by
// secret category instead of listing them flat.
func (f *Formatter) addRules(run *sarif.Run) {
	for name := range f.report.PatternsUsed {
		rule := sarif.NewReportingDescriptor().WithID(name)
		rule.WithName(name)
		desc := fmt.Sprintf("Redacted secret matching pattern %q", name)
		rule.WithShortDescription(&sarif.MultiformatMessageString{Text: &desc})
		rule.WithFullDescription(&sarif.MultiformatMessageString{Text: &desc})
		rule.WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "note"})
		run.Tool.Driver.AddRule(rule)
	}
}

// addResults converts every recorded Match to a SARIF result. There is no
// file location to attach — a redaction finding lives inside captured
// process output, not a source file — so results carry only a message and
// properties identifying the token and category.
func (f *Formatter) addResults(run *sarif.Run) {
	for _, m := range f.report.Matches {
		result := sarif.NewRuleResult(m.PatternName)
		result.Level = levelForCategory(m.Category)
		result.Kind = "fail"
		result.Message = sarif.NewTextMessage(
			fmt.Sprintf("redacted %s secret as %s", m.Category, m.Token),
		)

		props := sarif.NewPropertyBag()
		props.Add("category", m.Category)
		props.Add("token", m.Token)
		props.Add("start", m.Start)
		props.Add("end", m.End)
		result.WithProperties(props)

		run.AddResult(result)
	}
}

// levelForCategory maps a redaction category to a SARIF level. Structural
// categories (paths, hostnames) are informational; credential categories
// are errors since an unredacted one would be a real leak.
func levelForCategory(category string) string {
	switch category {
	case "EMAIL", "IP_PRIVATE", "IP_PUBLIC", "UUID", "HOSTNAME":
		return "note"
	default:
		return "error"
	}
}

func (f *Formatter) addInvocation(run *sarif.Run) {
	invocation := sarif.NewInvocation()
	invocation.ExecutionSuccessful = ptrBool(f.bundle.Capture.ExitCode == 0)

	if cwd, err := os.Getwd(); err == nil {
		uri := "file://" + filepath.ToSlash(cwd)
		invocation.WorkingDirectory = sarif.NewArtifactLocation().WithURI(uri)
	}
	if hostname, err := os.Hostname(); err == nil {
		invocation.Machine = &hostname
	}

	props := sarif.NewPropertyBag()
	props.Add("bundleId", f.bundle.Metadata.BundleID.String())
	props.Add("command", f.bundle.Capture.Command)
	props.Add("exitCode", f.bundle.Capture.ExitCode)
	props.Add("durationMs", f.bundle.Capture.DurationMs)
	invocation.WithProperties(props)

	run.AddInvocation(invocation)
}

func (f *Formatter) addProperties(run *sarif.Run) {
	props := sarif.NewPropertyBag()
	props.Add("categories", f.report.Categories)
	props.Add("totalRedactions", f.report.Total())
	if len(f.report.Warnings) > 0 {
		props.Add("warnings", f.report.Warnings)
	}
	run.WithProperties(props)
}

func ptrBool(b bool) *bool {
	return &b
}
