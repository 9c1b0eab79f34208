package articlesync

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Author is the immutable author reference carried by every article.
type Author struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// Article is a single article as served by the remote service. FavoritesCount
// is server-authoritative truth; it is only locally shadowed while a
// like/unlike mutation is in flight.
type Article struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Favorited      bool      `json:"favorited"`
	FavoritesCount int       `json:"favoritesCount"`
	Author         Author    `json:"author"`
}

// ArticleList is one page of the collection plus the server-owned total.
type ArticleList struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"articlesCount"`
}

// User is the authenticated account as returned by the user endpoints.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// ArticlePayload carries the fields for creating or updating an article.
type ArticlePayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList,omitempty"`
}

// Validate rejects malformed payloads before any network call is made.
func (p ArticlePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Description, validation.Required, validation.Length(1, 500)),
		validation.Field(&p.Body, validation.Required),
	)
}

// Credentials authenticates an existing account.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks login credentials locally.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
		validation.Field(&c.Password, validation.Required),
	)
}

// Registration creates a new account.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks registration input locally.
func (r Registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 20)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 40)),
	)
}

// UserUpdate carries the optional fields for PUT /user. Zero-valued fields
// are left untouched by the server.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Image    string `json:"image,omitempty"`
}

// Validate checks the populated fields of a profile update.
func (u UserUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Email, is.EmailFormat),
		validation.Field(&u.Username, validation.Length(3, 20)),
		validation.Field(&u.Password, validation.Length(6, 40)),
		validation.Field(&u.Image, is.URL),
	)
}
