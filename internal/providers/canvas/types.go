package canvas

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an opaque Canvas identifier. The API returns numbers by default and
// strings when string ids are requested; both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("canvas: id %s: %w", string(b), err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// DiscussionTopic is a course forum as returned by GET /courses/:id/discussion_topics.
type DiscussionTopic struct {
	ID             ID          `json:"id"`
	Title          string      `json:"title"`
	DiscussionType string      `json:"discussion_type,omitempty"`
	Published      bool        `json:"published"`
	AssignmentID   *ID         `json:"assignment_id,omitempty"`
	Assignment     *Assignment `json:"assignment,omitempty"`
}

type Assignment struct {
	ID          ID   `json:"id"`
	PeerReviews bool `json:"peer_reviews"`
}

// TopicUpdate is the PUT body for a discussion topic.
type TopicUpdate struct {
	DiscussionType string            `json:"discussion_type"`
	Assignment     *AssignmentUpdate `json:"assignment,omitempty"`
}

type AssignmentUpdate struct {
	PeerReviews bool `json:"peer_reviews"`
}

// Discussion types accepted by Canvas.
const (
	DiscussionThreaded    = "threaded"
	DiscussionNotThreaded = "not_threaded"
	DiscussionSideComment = "side_comment"
	DiscussionFlat        = "flat"
)

// ValidDiscussionType reports whether t is a discussion_type Canvas accepts.
func ValidDiscussionType(t string) bool {
	switch t {
	case DiscussionThreaded, DiscussionNotThreaded, DiscussionSideComment, DiscussionFlat:
		return true
	}
	return false
}
