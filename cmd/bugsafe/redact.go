package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bugsafe/bugsafe/internal/config"
	"github.com/bugsafe/bugsafe/internal/redact/engine"
)

func newRedactCmd() *cobra.Command {
	var (
		outFile  string
		noReport bool
	)

	cmd := &cobra.Command{
		Use:   "redact [file]",
		Short: "Redact secrets and anonymize paths in a file or stdin",
		Long: `Scrub secrets and local filesystem paths out of the given file, or
stdin if no file is given, and print the redacted text followed by a
summary of what was found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedact(cmd, args, outFile, noReport)
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "write redacted text to this file instead of stdout")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "suppress the redaction summary on stderr")

	return cmd
}

func init() {
	rootCmd.AddCommand(newRedactCmd())
}

func runRedact(cmd *cobra.Command, args []string, outFile string, noReport bool) error {
	var input io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("redact: failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		input = f
	}

	raw, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("redact: failed to read input: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	patternsCfg, err := cfg.PatternsConfig()
	if err != nil {
		return err
	}

	eng, err := engine.Create("", patternsCfg)
	if err != nil {
		return fmt.Errorf("redact: failed to build engine: %w", err)
	}

	redacted, report, err := eng.Redact(context.Background(), string(raw))
	if err != nil {
		return fmt.Errorf("redact: %w", err)
	}

	out := cmd.OutOrStdout()
	if outFile != "" {
		if err := os.WriteFile(outFile, []byte(redacted), 0o644); err != nil {
			return fmt.Errorf("redact: failed to write %s: %w", outFile, err)
		}
	} else {
		fmt.Fprint(out, redacted)
	}

	if !noReport {
		printReportSummary(cmd.ErrOrStderr(), report)
	}
	return nil
}

func printReportSummary(w io.Writer, report *engine.Report) {
	summary := report.Summary()
	if len(summary) == 0 {
		fmt.Fprintln(w, "no secrets found")
		return
	}

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "redacted %d secret(s):\n", report.Total())
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, summary[name])
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
