package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"forum-sync/internal/forums"
	"forum-sync/internal/httpx"
	"forum-sync/internal/providers"
	"forum-sync/internal/providers/canvas"
)

// ErrNoCourseIDs is returned when the input holds no course id; nothing is called remotely.
var ErrNoCourseIDs = errors.New("batch: no course ids")

// Processor switches the forums of a list of courses to the configured discussion settings.
// It is not safe for concurrent runs sharing one Reporter.
type Processor struct {
	Forums   providers.ForumProvider
	Selector forums.Selector
	Reporter Reporter
	Recorder Recorder // optional
	DryRun   bool
}

// Run parses raw operator input and processes every course in order.
// Remote failures never abort the run; they are reported and counted.
// Only empty input (ErrNoCourseIDs) or a canceled ctx end it early.
func (p *Processor) Run(ctx context.Context, raw string) (Tally, error) {
	if strings.TrimSpace(raw) == "" {
		p.Reporter.Message(Warning, "Please enter the course IDs.")
		return Tally{}, ErrNoCourseIDs
	}
	ids := ParseCourseIDs(raw)
	if len(ids) == 0 {
		p.Reporter.Message(Warning, "Please enter at least one valid course ID.")
		return Tally{}, ErrNoCourseIDs
	}
	return p.RunCourses(ctx, ids)
}

// RunCourses processes already parsed course ids.
func (p *Processor) RunCourses(ctx context.Context, ids []string) (Tally, error) {
	tally := Tally{Courses: len(ids)}
	if len(ids) == 0 {
		p.Reporter.Message(Warning, "Please enter at least one valid course ID.")
		return tally, ErrNoCourseIDs
	}

	log.Printf("[INFO] processing %d courses (dry-run=%v)", len(ids), p.DryRun)
	p.Reporter.Progress(0)

	for _, courseID := range ids {
		if err := ctx.Err(); err != nil {
			return p.abort(tally, err)
		}

		p.Reporter.Message(Info, fmt.Sprintf("Processing course: %s", courseID))
		for _, topic := range p.fetchForums(ctx, courseID) {
			if err := ctx.Err(); err != nil {
				return p.abort(tally, err)
			}
			p.processForum(ctx, courseID, topic, &tally)
		}

		tally.Processed++
		p.Reporter.Progress(float64(tally.Processed) / float64(tally.Courses))
	}

	p.summarize(tally)
	return tally, nil
}

func (p *Processor) processForum(ctx context.Context, courseID string, topic canvas.DiscussionTopic, tally *Tally) {
	upd := p.Selector.Select(topic.Title)
	out := Outcome{CourseID: courseID, ForumID: topic.ID.String(), Title: topic.Title, Payload: describe(upd)}

	switch {
	case p.DryRun:
		tally.Skipped++
		out.Status = StatusSkipped
		p.Reporter.Message(Info, fmt.Sprintf("Dry run: forum %s (%q) in course %s would be set to %s%s",
			topic.ID, topic.Title, courseID, out.Payload, p.ruleNote(topic.Title)))
	case p.updateForum(ctx, courseID, topic.ID, upd, &out):
		tally.Successful++
		out.Status = StatusUpdated
	default:
		tally.Failed++
		out.Status = StatusFailed
	}
	p.record(out)
}

// fetchForums lists a course's forums. Failures are reported and read as "no forums".
func (p *Processor) fetchForums(ctx context.Context, courseID string) []canvas.DiscussionTopic {
	topics, err := p.Forums.ListDiscussionTopics(ctx, courseID)
	if err != nil {
		log.Printf("[WARN] %v", err)
		status := httpx.StatusText(err)
		p.Reporter.Message(Error, fmt.Sprintf("Error fetching forums for course %s: %s", courseID, status))
		p.record(Outcome{CourseID: courseID, Status: StatusFetchFailed, Err: status})
		return nil
	}
	return topics
}

// updateForum sends upd and reports a failure; the boolean is the only result.
func (p *Processor) updateForum(ctx context.Context, courseID string, forumID canvas.ID, upd canvas.TopicUpdate, out *Outcome) bool {
	err := p.Forums.UpdateDiscussionTopic(ctx, courseID, forumID, upd)
	if err == nil {
		return true
	}
	log.Printf("[WARN] %v", err)
	out.Err = httpx.StatusText(err)
	p.Reporter.Message(Error, fmt.Sprintf("Error updating forum %s in course %s: %s", forumID, courseID, out.Err))
	return false
}

func (p *Processor) abort(tally Tally, err error) (Tally, error) {
	p.Reporter.Message(Warning, fmt.Sprintf("Run canceled after %d of %d courses.", tally.Processed, tally.Courses))
	p.summarize(tally)
	return tally, err
}

func (p *Processor) summarize(t Tally) {
	p.Reporter.Message(Info, fmt.Sprintf("Processed %d courses.", t.Processed))
	if p.DryRun {
		p.Reporter.Message(Info, fmt.Sprintf("Forums that would be updated: %d", t.Skipped))
	} else {
		p.Reporter.Message(Success, fmt.Sprintf("Forums updated successfully: %d", t.Successful))
	}
	if t.Failed > 0 {
		p.Reporter.Message(Error, fmt.Sprintf("Update errors: %d", t.Failed))
	}
	log.Printf("[INFO] run finished: courses=%d processed=%d ok=%d failed=%d skipped=%d",
		t.Courses, t.Processed, t.Successful, t.Failed, t.Skipped)
}

// ruleNote names the rule that picked the payload, when the selector can tell.
func (p *Processor) ruleNote(title string) string {
	m, ok := p.Selector.(forums.Matcher)
	if !ok {
		return ""
	}
	if r := m.Match(title); r != nil {
		return fmt.Sprintf(" (rule %q)", r.Title)
	}
	return " (default)"
}

func (p *Processor) record(o Outcome) {
	if p.Recorder != nil {
		p.Recorder.Record(o)
	}
}

// describe renders an update for messages and the audit report.
func describe(upd canvas.TopicUpdate) string {
	s := "discussion_type=" + upd.DiscussionType
	if upd.Assignment != nil {
		s += fmt.Sprintf(" peer_reviews=%v", upd.Assignment.PeerReviews)
	}
	return s
}
