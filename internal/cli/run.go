package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"forum-sync/internal/batch"
	"forum-sync/internal/report"
)

type runOptions struct {
	File        string
	DryRun      bool
	Rules       string
	Report      string
	SFTP        bool
	MaxAttempts int
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run [course-ids...]",
	Short: "Update the forums of the given courses",
	Long: `Update the discussion forums of the given courses.

Course ids may be separated by commas, spaces or line breaks, in arguments,
in a file (--file) or on stdin (--file -). Failures of single courses or
forums are reported and counted; the run always goes on to the next one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("rules") {
			cfg.RulesFile = runOpts.Rules
		}
		if cmd.Flags().Changed("max-attempts") {
			cfg.CanvasMaxAttempts = runOpts.MaxAttempts
		}

		input, err := readCourseInput(cmd.InOrStdin(), args, runOpts.File)
		if err != nil {
			return err
		}

		client, err := buildClient(cfg, globals.Verbose)
		if err != nil {
			return err
		}
		rules, err := loadRules(cfg.RulesFile)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		audit := &report.Audit{}
		proc := &batch.Processor{
			Forums:   client,
			Selector: rules,
			Reporter: report.NewConsole(cmd.OutOrStdout(), globals.NoColor),
			Recorder: audit,
			DryRun:   runOpts.DryRun,
		}
		tally, runErr := proc.Run(ctx, input)
		if errors.Is(runErr, batch.ErrNoCourseIDs) {
			return runErr
		}

		exp := auditExport{Path: runOpts.Report, Upload: runOpts.SFTP, SFTP: cfg.SFTP()}
		if _, err := exp.Write(context.WithoutCancel(ctx), audit.Outcomes()); err != nil {
			return err
		}

		if runErr != nil {
			return runErr
		}
		if tally.Failed > 0 {
			return fmt.Errorf("%d forum updates failed", tally.Failed)
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.File, "file", "f", "", "read course ids from a file (- for stdin)")
	f.BoolVar(&runOpts.DryRun, "dry-run", false, "list forums and show the change without updating Canvas")
	f.StringVar(&runOpts.Rules, "rules", "", "YAML payload rules (env FORUM_RULES_FILE)")
	f.StringVar(&runOpts.Report, "report", "", "write a CSV audit of every forum to this path")
	f.BoolVar(&runOpts.SFTP, "sftp", false, "upload the CSV audit via SFTP (env SFTP_*)")
	f.IntVar(&runOpts.MaxAttempts, "max-attempts", 1, "attempts per Canvas call; 1 disables retries (env CANVAS_MAX_ATTEMPTS)")
	rootCmd.AddCommand(runCmd)
}

// readCourseInput joins arguments and, when file is set, the file contents into
// one free-text input for batch.Processor.Run.
func readCourseInput(stdin io.Reader, args []string, file string) (string, error) {
	parts := append([]string{}, args...)
	switch file {
	case "":
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		parts = append(parts, string(b))
	default:
		b, err := os.ReadFile(file) //nolint:gosec // path comes from CLI flag
		if err != nil {
			return "", fmt.Errorf("read course ids: %w", err)
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, "\n"), nil
}
