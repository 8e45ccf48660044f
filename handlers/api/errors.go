// Package api holds helpers shared by the JSON handlers.
package api

import (
	"context"
	"errors"
	"imageshare-web/backend"
	"imageshare-web/core"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// WriteError maps err onto a JSON {"error": ...} response. Backend 4xx
// answers keep their status and message; anything the backend failed to
// serve becomes 502. Nothing is written once the client has gone away.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		logrus.WithField("error", err).Debug("Request cancelled, dropping response")
		return
	}

	status, message := Classify(err)
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"status": status,
			"error":  err,
		}).Warn("Request failed")
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}

// Classify picks the HTTP status and user-facing message for err.
func Classify(err error) (int, string) {
	var statusErr *backend.StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.Status >= 400 && statusErr.Status < 500 {
			return statusErr.Status, statusErr.Message
		}
		return http.StatusBadGateway, statusErr.Message
	case errors.Is(err, core.ErrMissingID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, core.ErrPrivateImage), errors.Is(err, core.ErrNotRevocable):
		return http.StatusConflict, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusBadGateway, err.Error()
	}
}

// RequestOrigin is the scheme and host this request arrived on. Forwarded
// headers are only honoured once middleware.ForwardedOrigin has applied them.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if r.URL.Scheme == "http" || r.URL.Scheme == "https" {
		scheme = r.URL.Scheme
	}
	return scheme + "://" + r.Host
}
