package service

import "context"

// Live feed event types.
const (
	EventDesignCreated    = "design_created"
	EventPostCreated      = "post_created"
	EventCommentCreated   = "comment_created"
	EventContentConverted = "content_converted"
)

// FeedPublisher receives content events for the live feed. Publishing is
// fire and forget.
type FeedPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

func publish(ctx context.Context, feed FeedPublisher, eventType string, payload interface{}) {
	if feed == nil {
		return
	}
	feed.Publish(ctx, eventType, payload)
}
