package controller

import (
	"context"

	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/asyncstate"
	"github.com/pubsync/pubsync/internal/sync/envelope"
)

const (
	MessageCommentFailed = "unable to post comment"
	MessageDeleteFailed  = "unable to delete comment"
)

// Comments posts and deletes comments. Created holds the last posted comment.
type Comments struct {
	gw      gateway.RepositoryGateway
	Created *asyncstate.Observable[gateway.Comment]
	Deleted *asyncstate.Observable[envelope.NoContent]
}

func NewComments(gw gateway.RepositoryGateway) *Comments {
	return &Comments{
		gw:      gw,
		Created: asyncstate.NewObservable[gateway.Comment](),
		Deleted: asyncstate.NewObservable[envelope.NoContent](),
	}
}

func (c *Comments) Create(ctx context.Context, publicationID int64, body string) envelope.Envelope[gateway.Comment] {
	return asyncstate.Run(ctx, c.Created, func(ctx context.Context) envelope.Envelope[gateway.Comment] {
		return c.gw.CreateComment(ctx, publicationID, body)
	}, MessageCommentFailed)
}

func (c *Comments) Delete(ctx context.Context, commentID int64) envelope.Envelope[envelope.NoContent] {
	return asyncstate.Run(ctx, c.Deleted, func(ctx context.Context) envelope.Envelope[envelope.NoContent] {
		return c.gw.DeleteComment(ctx, commentID)
	}, MessageDeleteFailed)
}
