package gateway

import "time"

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Subcategory struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"categoryId"`
	Name       string `json:"name"`
}

// Publication is a post as listed in the feed and in search results. Likes, Liked
// and Bookmarked are from the point of view of the requesting user.
type Publication struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	AuthorID   int64     `json:"authorId"`
	CategoryID int64     `json:"categoryId"`
	Likes      int       `json:"likes"`
	Liked      bool      `json:"liked"`
	Bookmarked bool      `json:"bookmarked"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Comment struct {
	ID            int64     `json:"id"`
	PublicationID int64     `json:"publicationId"`
	AuthorID      int64     `json:"authorId"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
}

type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	PictureURL string `json:"pictureUrl"`
}

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

// ToggleState is the server's view of a publication after a like or bookmark
// toggle. Fields the server did not report are nil.
type ToggleState struct {
	Active *bool
	Count  *int
}

// Credentials are the login inputs.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration are the sign-up inputs.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}
