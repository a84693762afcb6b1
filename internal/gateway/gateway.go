// Package gateway defines the remote content API used by the controllers and an
// HTTP implementation of it. Every operation returns an envelope; none of them
// return errors or panic.
package gateway

import (
	"context"

	"github.com/pubsync/pubsync/internal/sync/envelope"
)

// RepositoryGateway is the set of remote operations the client performs.
// Pages are zero-based.
type RepositoryGateway interface {
	Login(ctx context.Context, creds Credentials) envelope.Envelope[AuthResult]
	Register(ctx context.Context, reg Registration) envelope.Envelope[AuthResult]

	GetAllCategories(ctx context.Context) envelope.Envelope[[]Category]
	GetCategoryByID(ctx context.Context, id int64) envelope.Envelope[Category]
	GetSubcategoriesByCategory(ctx context.Context, categoryID int64) envelope.Envelope[[]Subcategory]

	GetPublications(ctx context.Context, page int) envelope.Envelope[[]Publication]
	SearchPublications(ctx context.Context, query string, page int) envelope.Envelope[[]Publication]
	ToggleLike(ctx context.Context, publicationID int64) envelope.Envelope[ToggleState]
	ToggleBookmark(ctx context.Context, publicationID int64) envelope.Envelope[ToggleState]

	CreateComment(ctx context.Context, publicationID int64, body string) envelope.Envelope[Comment]
	DeleteComment(ctx context.Context, commentID int64) envelope.Envelope[envelope.NoContent]

	GetUserInfo(ctx context.Context) envelope.Envelope[User]
	UpdateUsername(ctx context.Context, username string) envelope.Envelope[User]
	UpdateProfilePicture(ctx context.Context, image []byte) envelope.Envelope[User]
}
