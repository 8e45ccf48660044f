package images

import (
	"imageshare-web/core"
	"imageshare-web/handlers/api"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func writeList(w http.ResponseWriter, r *http.Request, images []core.ShareableImage, err error) {
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if images == nil {
		images = []core.ShareableImage{}
	}
	render.JSON(w, r, images)
}

func HandlePublic(gallery core.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		images, err := gallery.ListPublic(r.Context())
		writeList(w, r, images, err)
	}
}

func HandleMine(gallery core.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		images, err := gallery.ListMine(r.Context())
		writeList(w, r, images, err)
	}
}

// HandleSearch forwards q and isPublic. isPublic defaults to true; "any"
// drops the filter.
func HandleSearch(gallery core.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := core.SearchQuery{Q: r.URL.Query().Get("q")}

		switch raw := r.URL.Query().Get("isPublic"); raw {
		case "":
			isPublic := true
			query.IsPublic = &isPublic
		case "any":
		default:
			isPublic, err := strconv.ParseBool(raw)
			if err != nil {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "isPublic must be true, false or any"})
				return
			}
			query.IsPublic = &isPublic
		}

		images, err := gallery.Search(r.Context(), query)
		writeList(w, r, images, err)
	}
}

func HandleGet(images core.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := images.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, img)
	}
}
