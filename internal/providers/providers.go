package providers

import (
	"context"

	"forum-sync/internal/providers/canvas"
)

// ForumProvider lists and reconfigures the discussion forums of a course.
type ForumProvider interface {
	ListDiscussionTopics(ctx context.Context, courseID string) ([]canvas.DiscussionTopic, error)
	UpdateDiscussionTopic(ctx context.Context, courseID string, topicID canvas.ID, upd canvas.TopicUpdate) error
}

var _ ForumProvider = (*canvas.Client)(nil)
