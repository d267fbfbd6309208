package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"forum-sync/internal/batch"
	"forum-sync/internal/web"
)

type serveOptions struct {
	Listen    string
	DryRun    bool
	Rules     string
	ReportDir string
	SFTP      bool
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the operator web form",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("listen") {
			cfg.Listen = serveOpts.Listen
		}
		if cmd.Flags().Changed("rules") {
			cfg.RulesFile = serveOpts.Rules
		}

		client, err := buildClient(cfg, globals.Verbose)
		if err != nil {
			return err
		}
		rules, err := loadRules(cfg.RulesFile)
		if err != nil {
			return err
		}

		exp := auditExport{Dir: serveOpts.ReportDir, Upload: serveOpts.SFTP, SFTP: cfg.SFTP()}
		srv, err := web.New(web.Config{
			Listen:   cfg.Listen,
			Version:  buildVersion,
			Debug:    globals.Debug,
			DryRun:   serveOpts.DryRun,
			Forums:   client,
			Selector: rules,
			AfterRun: func(ctx context.Context, outcomes []batch.Outcome) {
				if _, err := exp.Write(ctx, outcomes); err != nil {
					log.Printf("[ERROR] audit export: %v", err)
				}
			},
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.Listen, "listen", "l", ":8080", "listen address (env LISTEN)")
	f.BoolVar(&serveOpts.DryRun, "dry-run", false, "list forums and show the change without updating Canvas")
	f.StringVar(&serveOpts.Rules, "rules", "", "YAML payload rules (env FORUM_RULES_FILE)")
	f.StringVar(&serveOpts.ReportDir, "report-dir", "", "write a CSV audit of every run into this directory")
	f.BoolVar(&serveOpts.SFTP, "sftp", false, "upload each CSV audit via SFTP (env SFTP_*)")
	rootCmd.AddCommand(serveCmd)
}
