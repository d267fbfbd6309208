package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"forum-sync/internal/batch"
)

// Audit CSV columns. Keep header order EXACT; downstream sheets key on position.
var forumAuditHeader = []string{
	"COURSE_ID",
	"FORUM_ID",
	"FORUM_TITLE",
	"PAYLOAD",
	"STATUS",
	"ERROR",
}

// WriteForumAuditCSV writes one row per forum outcome.
func WriteForumAuditCSV(w io.Writer, outcomes []batch.Outcome) error {
	cw := csv.NewWriter(w)
	// match typical spreadsheet templates
	cw.UseCRLF = true

	if err := cw.Write(forumAuditHeader); err != nil {
		return err
	}
	for _, o := range outcomes {
		if err := cw.Write(toAuditRow(o)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForumAuditFile creates path (and its directory) and writes the audit CSV into it.
func WriteForumAuditFile(path string, outcomes []batch.Outcome) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // path comes from CLI flag
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := WriteForumAuditCSV(f, outcomes); err != nil {
		_ = f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return f.Close()
}

// DefaultAuditName is a timestamped file name, e.g. forum-audit-20250307-101500.csv.
func DefaultAuditName(now time.Time) string {
	return "forum-audit-" + now.Format("20060102-150405") + ".csv"
}

func toAuditRow(o batch.Outcome) []string {
	return []string{
		o.CourseID,
		o.ForumID,
		oneLine(o.Title),
		o.Payload,
		string(o.Status),
		oneLine(o.Err),
	}
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
