package cli

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"forum-sync/internal/batch"
	"forum-sync/internal/config"
	"forum-sync/internal/export"
	"forum-sync/internal/forums"
	"forum-sync/internal/httpx"
	"forum-sync/internal/providers/canvas"
	"forum-sync/internal/sftpclient"
)

// buildClient validates the configuration and builds the Canvas client. It is
// the first thing every command touching Canvas does, so a missing token stops
// the process before any request or listener.
func buildClient(c config.Config, verbose bool) (*canvas.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return canvas.New(c.CanvasBaseURL, c.CanvasToken,
		canvas.WithTimeout(c.CanvasTimeout),
		canvas.WithRetry(httpx.WithAttempts(c.CanvasMaxAttempts)),
		canvas.WithVerbose(verbose),
	)
}

func loadRules(path string) (forums.RuleSet, error) {
	rs, err := forums.LoadRules(path)
	if err != nil {
		return forums.RuleSet{}, err
	}
	log.Printf("[DEBUG] payload rules: %d title rules, default discussion_type=%s", len(rs.Rules), rs.Default.DiscussionType)
	return rs, nil
}

// auditExport writes outcomes to a CSV and optionally ships it over SFTP.
type auditExport struct {
	Path   string // file path; empty picks a timestamped name in Dir
	Dir    string
	Upload bool
	SFTP   sftpclient.Config
	now    func() time.Time
}

func (a auditExport) enabled() bool {
	return a.Path != "" || a.Dir != "" || a.Upload
}

func (a auditExport) target() string {
	if a.Path != "" {
		return a.Path
	}
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	dir := a.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, export.DefaultAuditName(now()))
}

// Write returns the written path. Upload errors are returned after the file is on disk.
func (a auditExport) Write(ctx context.Context, outcomes []batch.Outcome) (string, error) {
	if !a.enabled() {
		return "", nil
	}
	path := a.target()
	if err := export.WriteForumAuditFile(path, outcomes); err != nil {
		return "", err
	}
	log.Printf("[INFO] wrote %d audit rows to %s", len(outcomes), path)

	if !a.Upload {
		return path, nil
	}
	upCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	remote := filepath.Base(path)
	if err := sftpclient.UploadFile(upCtx, a.SFTP, path, remote); err != nil {
		return path, err
	}
	log.Printf("[INFO] uploaded to sftp://%s:%d%s/%s", a.SFTP.Host, a.SFTP.Port, a.SFTP.RemoteDir, remote)
	return path, nil
}
