package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"

	"forum-sync/internal/config"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

type globalOptions struct {
	Verbose bool
	Debug   bool
	NoColor bool
}

var (
	globals globalOptions
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "forumsync",
	Short: "Switch the discussion forums of Canvas courses to threaded replies",
	Long: `forumsync lists the discussion forums of each given Canvas course and updates
them to threaded replies. Forums named "Foro Académico" also get peer reviews disabled.

The Canvas token is read from CANVAS_TOKEN (or TOKEN) and is required.

Examples:
	# Update the forums of two courses
	forumsync run 12345 67890

	# Read ids from a file, write an audit CSV, change nothing
	forumsync run --file courses.txt --report audit.csv --dry-run

	# Start the operator web form
	forumsync serve --listen :8080`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		cfg = config.Load()
		if globals.NoColor {
			color.NoColor = true
		}
		setupLog(globals.Debug || globals.Verbose, cfg.CanvasToken)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "log every Canvas API call (implies --dbg)")
	rootCmd.PersistentFlags().BoolVar(&globals.Debug, "dbg", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&globals.NoColor, "no-color", false, "disable color output")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLog(dbg bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(os.Stderr)}
	if dbg {
		logOpts = []lgr.Option{lgr.Out(os.Stderr), lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.CallerFile}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	var secs []string
	for _, s := range secrets {
		if s != "" {
			secs = append(secs, s)
		}
	}
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
