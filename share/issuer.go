// Package share issues share links for images and resolves them back into views.
package share

import (
	"context"
	"errors"
	"imageshare-web/codec"
	"imageshare-web/core"
	"net/url"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
)

const InlineNotice = "Inline links embed the image URL in the link itself. They cannot be revoked and should not be used for sensitive content."

// RevokeResult reports the backend's answer to a revoke.
type RevokeResult struct {
	Message        string `json:"message"`
	AlreadyRevoked bool   `json:"alreadyRevoked"`
}

// Issuer produces share links. Public images get backend-issued persistent
// links; private images only ever get inline links.
type Issuer struct {
	backend core.Backend
	store   core.ShareStore
	clock   core.Clock
	origin  string
}

// NewIssuer returns an Issuer composing links under origin. store may be nil.
func NewIssuer(backend core.Backend, store core.ShareStore, clock core.Clock, origin string) *Issuer {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Issuer{
		backend: backend,
		store:   store,
		clock:   clock,
		origin:  strings.TrimRight(origin, "/"),
	}
}

func (i *Issuer) Origin() string {
	return i.origin
}

// WithOrigin returns a copy of the issuer composing links under origin.
func (i *Issuer) WithOrigin(origin string) *Issuer {
	c := *i
	c.origin = strings.TrimRight(origin, "/")
	return &c
}

// Share picks the strategy from the image's visibility.
func (i *Issuer) Share(ctx context.Context, img *core.ShareableImage, owner string) (core.Link, error) {
	if img.IsPublic {
		return i.IssuePersistent(ctx, img, owner)
	}
	return i.IssueInline(img), nil
}

// Revoke removes a persistent share. Inline links have no backend state and
// cannot be revoked.
func (i *Issuer) Revoke(ctx context.Context, img *core.ShareableImage) (RevokeResult, error) {
	if !img.IsPublic {
		return RevokeResult{}, core.ErrNotRevocable
	}
	return i.RevokePersistent(ctx, img)
}

func (i *Issuer) IssuePersistent(ctx context.Context, img *core.ShareableImage, owner string) (core.Link, error) {
	if img.ID == "" {
		return core.Link{}, core.ErrMissingID
	}
	if !img.IsPublic {
		return core.Link{}, core.ErrPrivateImage
	}

	log := logrus.WithField("image_id", img.ID)

	shareURL, err := i.backend.IssueShare(ctx, img.ID)
	if err != nil {
		log.WithField("error", err).Warn("Backend rejected share issue")
		return core.Link{}, err
	}

	img.ShareToken = TokenFromShareURL(shareURL)
	link := core.Link{
		URL:       i.origin + "/share/id/" + url.PathEscape(img.ID),
		Mode:      core.LinkPersistent,
		Revocable: true,
	}

	if i.store != nil {
		record := &core.ShareRecord{
			ImageID:   img.ID,
			Owner:     owner,
			Token:     img.ShareToken,
			ShareURL:  shareURL,
			Link:      link.URL,
			CreatedAt: i.clock.Now(),
		}
		if _, err := i.store.SaveShare(ctx, record); err != nil {
			// The backend already holds the share; the local cache is advisory.
			log.WithField("error", err).Error("Failed to cache share record")
		}
	}

	log.WithField("share_token", img.ShareToken).Info("Persistent share link issued")
	return link, nil
}

func (i *Issuer) RevokePersistent(ctx context.Context, img *core.ShareableImage) (RevokeResult, error) {
	if img.ID == "" {
		return RevokeResult{}, core.ErrMissingID
	}

	log := logrus.WithField("image_id", img.ID)

	var result RevokeResult
	msg, err := i.backend.RevokeShare(ctx, img.ID)
	switch {
	case err == nil:
		result.Message = msg
	case errors.Is(err, core.ErrNotFound):
		result.Message = err.Error()
		result.AlreadyRevoked = true
	default:
		log.WithField("error", err).Warn("Backend rejected share revoke")
		return RevokeResult{}, err
	}

	img.ShareToken = ""
	if i.store != nil {
		if err := i.store.DeleteShare(ctx, img.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			log.WithField("error", err).Error("Failed to drop cached share record")
		}
	}

	log.WithField("already_revoked", result.AlreadyRevoked).Info("Persistent share link revoked")
	return result, nil
}

// IssueInline snapshots the displayable fields into the link. It needs
// neither network access nor a credential.
func (i *Issuer) IssueInline(img *core.ShareableImage) core.Link {
	token := codec.Encode(core.InlinePayload{
		URL:         img.URL,
		Title:       img.Title,
		Description: img.Description,
		Timestamp:   i.clock.Now().UnixMilli(),
	})

	logrus.WithFields(logrus.Fields{
		"image_id":     img.ID,
		"token_length": len(token),
	}).Debug("Inline share link issued")

	return core.Link{
		URL:       i.origin + "/share/inline/" + url.PathEscape(token),
		Mode:      core.LinkInline,
		Revocable: false,
		Notice:    InlineNotice,
	}
}

// TokenFromShareURL extracts the share token from a backend shareUrl, which
// ends in the token (".../images/42/share/abc123").
func TokenFromShareURL(shareURL string) string {
	p := shareURL
	if u, err := url.Parse(shareURL); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return shareURL
	}
	token := path.Base(p)
	if unescaped, err := url.PathUnescape(token); err == nil {
		token = unescaped
	}
	return token
}

// Hydrate copies a cached share token onto img when the record did not carry one.
func (i *Issuer) Hydrate(ctx context.Context, img *core.ShareableImage) {
	if i.store == nil || img.ShareToken != "" || img.ID == "" {
		return
	}
	record, err := i.store.FindShare(ctx, img.ID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"image_id": img.ID,
				"error":    err,
			}).Warn("Failed to read cached share record")
		}
		return
	}
	img.ShareToken = record.Token
}
