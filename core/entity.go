package core

import (
	"context"
	"time"
)

type (
	// ShareableImage is the projection of a backend image record needed to render a shared view.
	ShareableImage struct {
		ID          string   `json:"id"`
		URL         string   `json:"url"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Categories  []string `json:"categories"`
		IsPublic    bool     `json:"isPublic"`
		// ShareToken caches backend share state. Only the Issuer's success paths write it.
		ShareToken string `json:"shareToken,omitempty"`
		Owner      string `json:"owner,omitempty"`
		CreatedAt  string `json:"createdAt,omitempty"`
	}

	// InlinePayload is the snapshot embedded into an inline share link.
	InlinePayload struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Timestamp   int64  `json:"ts"`
	}

	// ShareRecord is the locally cached copy of a persistent share issued by the backend.
	ShareRecord struct {
		ID        string    `json:"id"`
		ImageID   string    `json:"imageId"`
		Owner     string    `json:"owner"`
		Token     string    `json:"token"`
		ShareURL  string    `json:"shareUrl"`
		Link      string    `json:"link"`
		CreatedAt time.Time `json:"createdAt"`
	}

	LinkMode string

	// Link is the outcome of an issue operation.
	Link struct {
		URL       string   `json:"shareUrl"`
		Mode      LinkMode `json:"mode"`
		Revocable bool     `json:"revocable"`
		Notice    string   `json:"notice,omitempty"`
	}

	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}

	Session struct {
		Token string `json:"token"`
		User  *User  `json:"user,omitempty"`
	}

	SearchQuery struct {
		Q        string
		IsPublic *bool
	}
)

const (
	LinkPersistent LinkMode = "persistent"
	LinkInline     LinkMode = "inline"
)

type (
	// Backend is the share-link capability of the external image API.
	Backend interface {
		// IssueShare mints a persistent share and returns the backend's shareUrl.
		IssueShare(ctx context.Context, id string) (string, error)
		// RevokeShare removes a persistent share and returns the backend's message.
		RevokeShare(ctx context.Context, id string) (string, error)
		GetByID(ctx context.Context, id string) (*ShareableImage, error)
	}

	Gallery interface {
		ListPublic(ctx context.Context) ([]ShareableImage, error)
		ListMine(ctx context.Context) ([]ShareableImage, error)
		Search(ctx context.Context, query SearchQuery) ([]ShareableImage, error)
	}

	Accounts interface {
		Signup(ctx context.Context, username, email, password string) (map[string]any, error)
		Login(ctx context.Context, email, password string) (*Session, error)
		Me(ctx context.Context) (*User, error)
	}

	// ShareStore persists the client-side cache of persistent share state.
	ShareStore interface {
		SaveShare(ctx context.Context, record *ShareRecord) (string, error)
		FindShare(ctx context.Context, imageID string) (*ShareRecord, error)
		DeleteShare(ctx context.Context, imageID string) error
		ListShares(ctx context.Context, owner string) ([]ShareRecord, error)
	}

	// CredentialProvider yields the bearer credential for the current call, or "" when anonymous.
	CredentialProvider interface {
		Credential(ctx context.Context) string
	}

	Clock interface {
		Now() time.Time
	}
)

type CredentialFunc func(ctx context.Context) string

func (f CredentialFunc) Credential(ctx context.Context) string { return f(ctx) }

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
