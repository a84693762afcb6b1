package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"github.com/h2non/filetype"
	"github.com/pubsync/pubsync/internal/common/apperrors"
	"github.com/pubsync/pubsync/internal/common/httpclient"
	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"
)

// Failure messages used when the server does not provide one.
const (
	MessageInvalidCredentials = "invalid credentials"
	MessageSessionExpired     = "session expired"
	MessageUsernameTaken      = "username already taken"
	MessageNotFound           = "not found"
)

var ErrUnsupportedImage = apperrors.ErrClientValidation.New("unsupported image type")

var (
	codesAuth    = envelope.Codes(http.StatusOK, http.StatusCreated)
	codesRead    = envelope.Codes(http.StatusOK)
	codesToggle  = envelope.Any2xx
	codesCreate  = envelope.Codes(http.StatusCreated, http.StatusOK)
	codesDelete  = envelope.Codes(http.StatusOK, http.StatusNoContent)
	codesUpdate  = envelope.Codes(http.StatusOK)
	authFallback = envelope.Fallbacks{
		http.StatusUnauthorized: MessageInvalidCredentials,
		http.StatusConflict:     MessageUsernameTaken,
	}
	callFallback = envelope.Fallbacks{
		http.StatusUnauthorized: MessageSessionExpired,
		http.StatusNotFound:     MessageNotFound,
		http.StatusConflict:     MessageUsernameTaken,
	}
)

// HTTPGateway implements RepositoryGateway against the content API.
type HTTPGateway struct {
	client httpclient.HTTPClientInterface
}

var _ RepositoryGateway = (*HTTPGateway)(nil)

// NewHTTPGateway returns a gateway issuing requests through client.
func NewHTTPGateway(client httpclient.HTTPClientInterface) *HTTPGateway {
	return &HTTPGateway{client: client}
}

// call performs one request and classifies its outcome.
func call[T any](ctx context.Context, g *HTTPGateway, op string, opts httpclient.RequestOptions, codes envelope.SuccessCodes, fallbacks envelope.Fallbacks) envelope.Envelope[T] {
	resp, err := g.client.DoRequest(ctx, opts)
	raw := envelope.Raw{Err: err}
	if resp != nil {
		raw.StatusCode = resp.StatusCode
		raw.Body = resp.Body
	}
	env := envelope.Classify[T](raw, codes, fallbacks)
	if !env.OK() {
		log.Debug().
			Str("op", op).
			Int("status", env.StatusCode).
			Str("kind", env.Kind().String()).
			Str("msg", env.MessageOr("")).
			Msg("gateway call failed")
	}
	return env
}

func jsonBody(kv ...any) ([]byte, error) {
	body := []byte("{}")
	var err error
	for i := 0; i+1 < len(kv); i += 2 {
		body, err = sjson.SetBytes(body, kv[i].(string), kv[i+1])
		if err != nil {
			return nil, apperrors.ErrClientValidation.MsgErr("unable to encode request", err)
		}
	}
	return body, nil
}

func (g *HTTPGateway) Login(ctx context.Context, creds Credentials) envelope.Envelope[AuthResult] {
	if err := validateStruct(creds); err != nil {
		return envelope.FromError[AuthResult](err)
	}
	body, err := jsonBody("email", creds.Email, "password", creds.Password)
	if err != nil {
		return envelope.FromError[AuthResult](err)
	}
	return call[AuthResult](ctx, g, "login", httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   "auth/login",
		Body:   body,
	}, codesAuth, authFallback)
}

func (g *HTTPGateway) Register(ctx context.Context, reg Registration) envelope.Envelope[AuthResult] {
	if err := validateStruct(reg); err != nil {
		return envelope.FromError[AuthResult](err)
	}
	body, err := jsonBody("username", reg.Username, "email", reg.Email, "password", reg.Password)
	if err != nil {
		return envelope.FromError[AuthResult](err)
	}
	return call[AuthResult](ctx, g, "register", httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   "auth/register",
		Body:   body,
	}, codesAuth, authFallback)
}

func (g *HTTPGateway) GetAllCategories(ctx context.Context) envelope.Envelope[[]Category] {
	return call[[]Category](ctx, g, "get_categories", httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "categories",
	}, codesRead, callFallback)
}

func (g *HTTPGateway) GetCategoryByID(ctx context.Context, id int64) envelope.Envelope[Category] {
	if err := validateVar("id", id, "gt=0"); err != nil {
		return envelope.FromError[Category](err)
	}
	return call[Category](ctx, g, "get_category", httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("categories/%d", id),
	}, codesRead, callFallback)
}

func (g *HTTPGateway) GetSubcategoriesByCategory(ctx context.Context, categoryID int64) envelope.Envelope[[]Subcategory] {
	if err := validateVar("categoryId", categoryID, "gt=0"); err != nil {
		return envelope.FromError[[]Subcategory](err)
	}
	return call[[]Subcategory](ctx, g, "get_subcategories", httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("categories/%d/subcategories", categoryID),
	}, codesRead, callFallback)
}

func (g *HTTPGateway) GetPublications(ctx context.Context, page int) envelope.Envelope[[]Publication] {
	if err := validateVar("page", page, "gte=0"); err != nil {
		return envelope.FromError[[]Publication](err)
	}
	return call[[]Publication](ctx, g, "get_publications", httpclient.RequestOptions{
		Method:      http.MethodGet,
		Path:        "publications",
		QueryParams: map[string]string{"page": strconv.Itoa(page)},
	}, codesRead, callFallback)
}

func (g *HTTPGateway) SearchPublications(ctx context.Context, query string, page int) envelope.Envelope[[]Publication] {
	if err := validateVar("query", query, "required"); err != nil {
		return envelope.FromError[[]Publication](err)
	}
	if err := validateVar("page", page, "gte=0"); err != nil {
		return envelope.FromError[[]Publication](err)
	}
	return call[[]Publication](ctx, g, "search_publications", httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "publications/search",
		QueryParams: map[string]string{
			"query": query,
			"page":  strconv.Itoa(page),
		},
	}, codesRead, callFallback)
}

type likeResponse struct {
	Liked *bool `json:"liked"`
	Likes *int  `json:"likes"`
}

type bookmarkResponse struct {
	Bookmarked *bool `json:"bookmarked"`
}

func (g *HTTPGateway) ToggleLike(ctx context.Context, publicationID int64) envelope.Envelope[ToggleState] {
	if err := validateVar("publicationId", publicationID, "gt=0"); err != nil {
		return envelope.FromError[ToggleState](err)
	}
	env := call[likeResponse](ctx, g, "toggle_like", httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("publications/%d/like", publicationID),
	}, codesToggle, callFallback)
	return envelope.Map(env, func(r likeResponse) ToggleState {
		return ToggleState{Active: r.Liked, Count: r.Likes}
	})
}

func (g *HTTPGateway) ToggleBookmark(ctx context.Context, publicationID int64) envelope.Envelope[ToggleState] {
	if err := validateVar("publicationId", publicationID, "gt=0"); err != nil {
		return envelope.FromError[ToggleState](err)
	}
	env := call[bookmarkResponse](ctx, g, "toggle_bookmark", httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("publications/%d/bookmark", publicationID),
	}, codesToggle, callFallback)
	return envelope.Map(env, func(r bookmarkResponse) ToggleState {
		return ToggleState{Active: r.Bookmarked}
	})
}

func (g *HTTPGateway) CreateComment(ctx context.Context, publicationID int64, text string) envelope.Envelope[Comment] {
	if err := validateVar("publicationId", publicationID, "gt=0"); err != nil {
		return envelope.FromError[Comment](err)
	}
	if err := validateVar("body", text, "required,max=2000"); err != nil {
		return envelope.FromError[Comment](err)
	}
	body, err := jsonBody("body", text)
	if err != nil {
		return envelope.FromError[Comment](err)
	}
	return call[Comment](ctx, g, "create_comment", httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("publications/%d/comments", publicationID),
		Body:   body,
	}, codesCreate, callFallback)
}

func (g *HTTPGateway) DeleteComment(ctx context.Context, commentID int64) envelope.Envelope[envelope.NoContent] {
	if err := validateVar("commentId", commentID, "gt=0"); err != nil {
		return envelope.FromError[envelope.NoContent](err)
	}
	return call[envelope.NoContent](ctx, g, "delete_comment", httpclient.RequestOptions{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("comments/%d", commentID),
	}, codesDelete, callFallback)
}

func (g *HTTPGateway) GetUserInfo(ctx context.Context) envelope.Envelope[User] {
	return call[User](ctx, g, "get_user", httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "users/me",
	}, codesRead, callFallback)
}

func (g *HTTPGateway) UpdateUsername(ctx context.Context, username string) envelope.Envelope[User] {
	if err := validateVar("username", username, "required,min=3,max=32"); err != nil {
		return envelope.FromError[User](err)
	}
	body, err := jsonBody("username", username)
	if err != nil {
		return envelope.FromError[User](err)
	}
	return call[User](ctx, g, "update_username", httpclient.RequestOptions{
		Method: http.MethodPut,
		Path:   "users/me/username",
		Body:   body,
	}, codesUpdate, callFallback)
}

// UpdateProfilePicture uploads image as the user's picture. The image type is
// detected from its content; only image formats are accepted.
func (g *HTTPGateway) UpdateProfilePicture(ctx context.Context, image []byte) envelope.Envelope[User] {
	if len(image) == 0 {
		return envelope.FromError[User](apperrors.ErrClientValidation.Msg("image is required"))
	}
	kind, err := filetype.Match(image)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(image) {
		return envelope.FromError[User](ErrUnsupportedImage)
	}
	body, err := jsonBody(
		"contentType", kind.MIME.Value,
		"image", base64.StdEncoding.EncodeToString(image),
	)
	if err != nil {
		return envelope.FromError[User](err)
	}
	return call[User](ctx, g, "update_picture", httpclient.RequestOptions{
		Method: http.MethodPut,
		Path:   "users/me/picture",
		Body:   body,
	}, codesUpdate, callFallback)
}
