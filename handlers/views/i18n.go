package views

import (
	"embed"
	"encoding/json"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

var (
	bundle  *i18n.Bundle
	locales = []string{"en", "pt-BR"}
)

func init() {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, locale := range locales {
		data, err := localesFS.ReadFile("locales/" + locale + ".json")
		if err != nil {
			logrus.WithField("locale", locale).WithError(err).Warn("Failed to read locale file")
			continue
		}
		if _, err := bundle.ParseMessageFileBytes(data, locale+".json"); err != nil {
			logrus.WithField("locale", locale).WithError(err).Warn("Failed to parse locale file")
		}
	}
}

// localizerFor picks the best bundled language for the Accept-Language header.
func localizerFor(r *http.Request) *i18n.Localizer {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return i18n.NewLocalizer(bundle, language.English.String())
	}

	langs := make([]string, 0, len(tags))
	for _, tag := range tags {
		langs = append(langs, tag.String())
	}
	return i18n.NewLocalizer(bundle, langs...)
}

func localize(localizer *i18n.Localizer, messageID string) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	return msg
}
