package shares

import (
	"imageshare-web/core"
	"imageshare-web/handlers/api"
	"imageshare-web/middleware"
	"imageshare-web/share"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	IssueResponse struct {
		core.Link
		ShareToken string `json:"shareToken,omitempty"`
	}

	RevokeResponse struct {
		Message        string `json:"message"`
		AlreadyRevoked bool   `json:"alreadyRevoked"`
	}
)

// issuerFor binds share links to the request origin when no frontend URL is configured.
func issuerFor(r *http.Request, issuer *share.Issuer) *share.Issuer {
	if issuer.Origin() != "" {
		return issuer
	}
	return issuer.WithOrigin(api.RequestOrigin(r))
}

// owner is the verified account behind the request's credential, or "" for
// anonymous callers and credentials the image API will not vouch for.
func owner(r *http.Request, accounts core.Accounts) string {
	if middleware.CredentialFromContext(r.Context()) == "" {
		return ""
	}
	user, err := accounts.Me(r.Context())
	if err != nil || user == nil {
		logrus.WithField("error", err).Info("Could not resolve share owner")
		return ""
	}
	return user.ID
}

// HandleIssue issues the link the image's visibility calls for.
func HandleIssue(images core.Backend, accounts core.Accounts, issuer *share.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID := chi.URLParam(r, "id")
		ctx := r.Context()

		img, err := images.GetByID(ctx, imageID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"image_id": imageID,
				"error":    err,
			}).Info("Failed to load image for sharing")
			api.WriteError(w, r, err)
			return
		}

		issuer := issuerFor(r, issuer)
		issuer.Hydrate(ctx, img)

		link, err := issuer.Share(ctx, img, owner(r, accounts))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		if ctx.Err() != nil {
			return
		}

		render.JSON(w, r, IssueResponse{Link: link, ShareToken: img.ShareToken})
	}
}

// HandleRevoke revokes the persistent link of a public image.
func HandleRevoke(images core.Backend, issuer *share.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID := chi.URLParam(r, "id")
		ctx := r.Context()

		img, err := images.GetByID(ctx, imageID)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		result, err := issuerFor(r, issuer).Revoke(ctx, img)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		if ctx.Err() != nil {
			return
		}

		render.JSON(w, r, RevokeResponse{Message: result.Message, AlreadyRevoked: result.AlreadyRevoked})
	}
}

// HandleList lists the cached persistent shares of the account the image API
// reports for the caller's credential.
func HandleList(accounts core.Accounts, store core.ShareStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := accounts.Me(r.Context())
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		if user == nil || user.ID == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Session does not identify a user"})
			return
		}

		records, err := store.ListShares(r.Context(), user.ID)
		if err != nil {
			logrus.WithField("error", err).Error("Failed to list shares")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list shares"})
			return
		}

		if records == nil {
			records = []core.ShareRecord{}
		}

		render.JSON(w, r, records)
	}
}
