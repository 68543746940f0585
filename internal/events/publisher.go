// Package events provides a fire-and-forget NATS publisher for comment
// moderation events. Consumers (notification mail, cache invalidation)
// subscribe to the comments.* subjects.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subject constants for every moderation event type.
const (
	SubjectCommentSubmitted    = "comments.comment.submitted"
	SubjectCommentApproved     = "comments.comment.approved"
	SubjectCommentRejected     = "comments.comment.rejected"
	SubjectCommentDeleted      = "comments.comment.deleted"
	SubjectCommentAdminReplied = "comments.comment.admin_replied"
)

// Event is the canonical envelope sent to all comments.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	CommentID  string         `json:"comment_id"`
	PostSlug   string         `json:"post_slug,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Publisher publishes moderation events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub (useful in tests and deployments
// without NATS).
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	return &Publisher{js: js, log: log}
}

// Publish sends a moderation event asynchronously (fire-and-forget).
// Failures are logged as warnings and never surface to the caller.
// The publisher is safe to call with a nil receiver.
func (p *Publisher) Publish(subject, commentID, postSlug string, props map[string]any) {
	if p == nil || p.js == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		CommentID:  commentID,
		PostSlug:   postSlug,
		OccurredAt: time.Now().UTC(),
		Properties: props,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
