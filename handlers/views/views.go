// Package views renders the read-only shared image pages.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"imageshare-web/share"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
)

var (
	//go:embed templates/*.html
	templateFS embed.FS

	//go:embed static
	staticFS embed.FS

	pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))
)

type page struct {
	*share.View
	Lang      string
	localizer *i18n.Localizer
}

func (p page) T(messageID string) string {
	return localize(p.localizer, messageID)
}

func (p page) PageTitle() string {
	if p.State == share.StateRendered {
		return p.ImageTitle()
	}
	return p.T("page.title")
}

func (p page) ImageTitle() string {
	if p.Image.Title == "" {
		return p.T("share.untitled")
	}
	return p.Image.Title
}

func (p page) Description() string {
	return p.Image.Description
}

// statusFor maps a terminal view state onto the response status.
func statusFor(state share.State) int {
	switch state {
	case share.StateRendered:
		return http.StatusOK
	case share.StateInvalidLink:
		return http.StatusBadRequest
	case share.StateNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// HandleByID renders /share/id/{id} from a single backend lookup.
func HandleByID(resolver *share.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := resolver.ByID(r.Context(), chi.URLParam(r, "id"))
		renderView(w, r, view)
	}
}

// HandleInline renders /share/inline/{payload} without contacting the backend.
func HandleInline(resolver *share.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := resolver.Inline(chi.URLParam(r, "payload"))
		renderView(w, r, view)
	}
}

// HandleStatic serves the embedded assets under /static/.
func HandleStatic() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func renderView(w http.ResponseWriter, r *http.Request, view *share.View) {
	// The visitor navigated away before the lookup finished.
	if r.Context().Err() != nil {
		logrus.WithField("state", view.State).Debug("Discarding view for cancelled request")
		return
	}

	localizer := localizerFor(r)
	lang := "en"
	if _, tag, err := localizer.LocalizeWithTag(&i18n.LocalizeConfig{MessageID: "page.title"}); err == nil {
		lang = tag.String()
	}

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "layout", page{View: view, Lang: lang, localizer: localizer}); err != nil {
		logrus.WithField("error", err).Error("Failed to render share view")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	status := statusFor(view.State)
	logrus.WithFields(logrus.Fields{
		"mode":   view.Mode,
		"state":  view.State,
		"status": status,
	}).Debug("Share view rendered")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logrus.WithField("error", err).Debug("Failed to write share view")
	}
}
