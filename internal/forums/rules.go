package forums

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"forum-sync/internal/providers/canvas"
)

// Selector picks the update to send for a forum, given its title.
type Selector interface {
	Select(title string) canvas.TopicUpdate
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(title string) canvas.TopicUpdate

func (f SelectorFunc) Select(title string) canvas.TopicUpdate { return f(title) }

// Matcher is implemented by selectors that can name the rule behind a choice.
type Matcher interface {
	Match(title string) *Rule
}

// Payload is the YAML form of a topic update. A nil PeerReviews leaves the
// assignment untouched.
type Payload struct {
	DiscussionType string `yaml:"discussion_type"`
	PeerReviews    *bool  `yaml:"peer_reviews,omitempty"`
}

// Update converts the payload into the request body.
func (p Payload) Update() canvas.TopicUpdate {
	upd := canvas.TopicUpdate{DiscussionType: p.DiscussionType}
	if p.PeerReviews != nil {
		upd.Assignment = &canvas.AssignmentUpdate{PeerReviews: *p.PeerReviews}
	}
	return upd
}

// Rule applies Payload to forums whose title normalizes to Title.
type Rule struct {
	Title   string  `yaml:"title"`
	Payload Payload `yaml:",inline"`
}

// RuleSet is an ordered list of title rules with a fallback. First match wins.
type RuleSet struct {
	Default Payload `yaml:"default"`
	Rules   []Rule  `yaml:"rules"`
}

// DefaultRules switches every forum to threaded replies and, for the academic
// forum, also disables peer reviews.
func DefaultRules() RuleSet {
	off := false
	return RuleSet{
		Default: Payload{DiscussionType: canvas.DiscussionThreaded},
		Rules: []Rule{{
			Title:   AcademicForumTitle,
			Payload: Payload{DiscussionType: canvas.DiscussionThreaded, PeerReviews: &off},
		}},
	}
}

func (rs RuleSet) Select(title string) canvas.TopicUpdate {
	if r := rs.Match(title); r != nil {
		return r.Payload.Update()
	}
	return rs.Default.Update()
}

// Match returns the rule that applies to title, or nil for the default payload.
func (rs RuleSet) Match(title string) *Rule {
	for i := range rs.Rules {
		if SameTitle(rs.Rules[i].Title, title) {
			return &rs.Rules[i]
		}
	}
	return nil
}

func (rs *RuleSet) validate() error {
	if rs.Default.DiscussionType == "" {
		rs.Default.DiscussionType = canvas.DiscussionThreaded
	}
	if !canvas.ValidDiscussionType(rs.Default.DiscussionType) {
		return fmt.Errorf("rules: default: unknown discussion_type %q", rs.Default.DiscussionType)
	}
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if Normalize(r.Title) == "" {
			return fmt.Errorf("rules: rule %d: empty title", i+1)
		}
		if r.Payload.DiscussionType == "" {
			r.Payload.DiscussionType = canvas.DiscussionThreaded
		}
		if !canvas.ValidDiscussionType(r.Payload.DiscussionType) {
			return fmt.Errorf("rules: rule %d (%s): unknown discussion_type %q", i+1, r.Title, r.Payload.DiscussionType)
		}
	}
	return nil
}

// ParseRules decodes a YAML rule set.
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("rules: parse yaml: %w", err)
	}
	if err := rs.validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadRules reads a YAML rule set from path; an empty path yields DefaultRules.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from CLI flag
	if err != nil {
		return RuleSet{}, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return ParseRules(data)
}
