package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bugsafe/bugsafe/internal/bundle/reader"
	"github.com/bugsafe/bugsafe/internal/bundle/schema"
	"github.com/bugsafe/bugsafe/internal/bundle/writer"
	"github.com/bugsafe/bugsafe/internal/config"
	"github.com/bugsafe/bugsafe/internal/redact/engine"
)

func newBundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Create, inspect, and verify .bugbundle archives",
	}
	cmd.AddCommand(
		newBundleCreateCmd(),
		newBundleValidateCmd(),
		newBundleVerifyCmd(),
		newBundleAttachCmd(),
		newBundleReadCmd(),
	)
	return cmd
}

func init() {
	rootCmd.AddCommand(newBundleCmd())
}

// reviewCategories asks the operator to confirm before a bundle containing
// non-default-off categories (public IPs, UUIDs if enabled) is written,
// unless --yes was passed. A nil report or an empty summary needs no
// confirmation.
func reviewCategories(report map[string]int, assumeYes bool) (bool, error) {
	if assumeYes || len(report) == 0 {
		return true, nil
	}

	names := make([]string, 0, len(report))
	for name := range report {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %d", name, report[name]))
	}

	confirmed := true
	err := huh.NewConfirm().
		Title("These categories will be included in the shared bundle — continue?").
		Description(strings.Join(lines, "\n")).
		Affirmative("Continue").
		Negative("Abort").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, fmt.Errorf("bundle: confirmation failed: %w", err)
	}
	return confirmed, nil
}

func newBundleCreateCmd() *cobra.Command {
	var (
		stdoutFile string
		stderrFile string
		exitCode   int
		command    []string
		output     string
		overwrite  bool
		noRedact   bool
		assumeYes  bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new .bugbundle from captured output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundleCreate(cmd, bundleCreateOptions{
				stdoutFile: stdoutFile,
				stderrFile: stderrFile,
				exitCode:   exitCode,
				command:    command,
				output:     output,
				overwrite:  overwrite,
				noRedact:   noRedact,
				assumeYes:  assumeYes,
			})
		},
	}

	cmd.Flags().StringVar(&stdoutFile, "stdout", "", "file containing captured stdout")
	cmd.Flags().StringVar(&stderrFile, "stderr", "", "file containing captured stderr")
	cmd.Flags().IntVar(&exitCode, "exit-code", 0, "captured process exit code")
	cmd.Flags().StringSliceVar(&command, "command", nil, "captured command argv")
	cmd.Flags().StringVarP(&output, "output", "o", "bug.bugbundle", "output bundle path")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing bundle at the output path")
	cmd.Flags().BoolVar(&noRedact, "no-redact", false, "skip redaction of stdout/stderr")
	cmd.Flags().BoolVar(&assumeYes, "yes", false, "skip the interactive category review")

	return cmd
}

type bundleCreateOptions struct {
	stdoutFile, stderrFile string
	exitCode               int
	command                []string
	output                 string
	overwrite, noRedact    bool
	assumeYes              bool
}

func runBundleCreate(cmd *cobra.Command, opts bundleCreateOptions) error {
	stdout, err := readFileOrEmpty(opts.stdoutFile)
	if err != nil {
		return err
	}
	stderr, err := readFileOrEmpty(opts.stderrFile)
	if err != nil {
		return err
	}

	capture := schema.CaptureOutput{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: opts.exitCode,
		Command:  opts.command,
	}

	saltHash := ""
	redactionReport := map[string]int{}

	if !opts.noRedact {
		eng, err := buildEngineFromConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		redactedStdout, stdoutReport, err := eng.Redact(ctx, capture.Stdout)
		if err != nil {
			return fmt.Errorf("bundle create: %w", err)
		}
		redactedStderr, stderrReport, err := eng.Redact(ctx, capture.Stderr)
		if err != nil {
			return fmt.Errorf("bundle create: %w", err)
		}
		combined := stdoutReport.Merge(stderrReport)

		capture.Stdout = redactedStdout
		capture.Stderr = redactedStderr
		saltHash = eng.GetSaltHash()
		redactionReport = combined.Summary()
	}

	confirmed, err := reviewCategories(redactionReport, opts.assumeYes)
	if err != nil {
		return err
	}
	if !confirmed {
		return fmt.Errorf("bundle create: aborted by operator")
	}

	bundle := schema.NewBundle(capture, saltHash)
	bundle.RedactionReport = redactionReport

	if err := writer.Create(bundle, opts.output, writer.Options{Overwrite: opts.overwrite}); err != nil {
		return fmt.Errorf("bundle create: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "bundle created: %s\n", opts.output)
	return nil
}

func readFileOrEmpty(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("bundle create: failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func buildEngineFromConfig() (*engine.Engine, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	patternsCfg, err := cfg.PatternsConfig()
	if err != nil {
		return nil, err
	}
	return engine.Create("", patternsCfg)
}

func newBundleValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bundle>",
		Short: "Structurally validate a .bugbundle without fully decoding it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := writer.Validate(args[0])
			out := cmd.OutOrStdout()

			if result.Valid {
				fmt.Fprintln(out, "bundle is valid")
			} else {
				fmt.Fprintln(out, "bundle validation failed:")
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  - %s\n", e)
				}
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if !result.Valid {
				return fmt.Errorf("bundle validate: %d error(s)", len(result.Errors))
			}
			return nil
		},
	}
}

func newBundleVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <bundle>",
		Short: "Verify a bundle's manifest checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := reader.VerifyIntegrity(args[0])
			if err != nil {
				return fmt.Errorf("bundle verify: %w", err)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "integrity check failed")
				return fmt.Errorf("bundle verify: checksum mismatch")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "integrity check passed")
			return nil
		},
	}
}

func newBundleAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <bundle> <file>",
		Short: "Add an attachment to an existing bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("bundle attach: failed to read %s: %w", args[1], err)
			}
			name := args[1]
			if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
				name = name[idx+1:]
			}
			finalName, err := writer.AddAttachment(args[0], name, content)
			if err != nil {
				return fmt.Errorf("bundle attach: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attached as %s\n", finalName)
			return nil
		},
	}
}

func newBundleReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <bundle>",
		Short: "Print a bundle's manifest and attachment list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := reader.ReadBundle(args[0])
			if err != nil {
				return fmt.Errorf("bundle read: %w", err)
			}
			attachments, err := reader.ListAttachments(args[0])
			if err != nil {
				return fmt.Errorf("bundle read: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bundle id:    %s\n", bundle.Metadata.BundleID)
			fmt.Fprintf(out, "version:      %s\n", bundle.Metadata.Version)
			fmt.Fprintf(out, "created at:   %s\n", bundle.Metadata.CreatedAt)
			fmt.Fprintf(out, "exit code:    %d\n", bundle.Capture.ExitCode)
			fmt.Fprintf(out, "command:      %s\n", strings.Join(bundle.Capture.Command, " "))
			if bundle.Traceback != nil {
				fmt.Fprintf(out, "traceback:    %s: %s\n", bundle.Traceback.ExceptionType, bundle.Traceback.Message)
			}
			if len(bundle.RedactionReport) > 0 {
				fmt.Fprintln(out, "redactions:")
				names := make([]string, 0, len(bundle.RedactionReport))
				for name := range bundle.RedactionReport {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(out, "  %s: %d\n", name, bundle.RedactionReport[name])
				}
			}
			if len(attachments) > 0 {
				fmt.Fprintln(out, "attachments:")
				for _, a := range attachments {
					fmt.Fprintf(out, "  - %s\n", a)
				}
			}
			return nil
		},
	}
}
