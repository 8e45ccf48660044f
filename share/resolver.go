package share

import (
	"context"
	"errors"
	"imageshare-web/codec"
	"imageshare-web/core"
	"net/url"

	"github.com/sirupsen/logrus"
)

const (
	UntitledPlaceholder = "Untitled"
	ImagePlaceholder    = "/static/placeholder.svg"
)

type State string

const (
	StateLoading     State = "loading"
	StateRendered    State = "rendered"
	StateNotFound    State = "not_found"
	StateLoadFailed  State = "load_failed"
	StateInvalidLink State = "invalid_link"
)

// View is a read-only shared image view. It starts Loading and settles
// exactly once into a terminal state.
type View struct {
	Mode  core.LinkMode
	State State
	Image core.ShareableImage
	// Err is the internal cause of a failure state. It is logged, never rendered.
	Err error
}

func newView(mode core.LinkMode) *View {
	return &View{Mode: mode, State: StateLoading}
}

func (v *View) settle(state State, img *core.ShareableImage, err error) bool {
	if v.State != StateLoading {
		return false
	}
	v.State = state
	if img != nil {
		v.Image = core.ShareableImage{
			ID:          img.ID,
			URL:         img.URL,
			Title:       img.Title,
			Description: img.Description,
		}
	}
	v.Err = err
	return true
}

func (v *View) Terminal() bool {
	return v.State != StateLoading
}

func (v *View) Title() string {
	if v.Image.Title == "" {
		return UntitledPlaceholder
	}
	return v.Image.Title
}

func (v *View) ImageSrc() string {
	if v.Image.URL == "" {
		return ImagePlaceholder
	}
	return v.Image.URL
}

type Resolver struct {
	backend core.Backend
}

func NewResolver(backend core.Backend) *Resolver {
	return &Resolver{backend: backend}
}

// ByID performs a single backend lookup. It never retries.
func (r *Resolver) ByID(ctx context.Context, id string) *View {
	view := newView(core.LinkPersistent)
	log := logrus.WithField("image_id", id)

	if id == "" {
		view.settle(StateNotFound, nil, core.ErrMissingID)
		return view
	}

	img, err := r.backend.GetByID(ctx, id)
	switch {
	case err == nil:
		view.settle(StateRendered, img, nil)
	case errors.Is(err, core.ErrNotFound):
		log.WithField("error", err).Info("Shared image not found")
		view.settle(StateNotFound, nil, err)
	default:
		log.WithField("error", err).Warn("Failed to load shared image")
		view.settle(StateLoadFailed, nil, err)
	}
	return view
}

// Inline decodes a payload path segment without any backend call. The
// segment may still carry the router's percent-encoding.
func (r *Resolver) Inline(segment string) *View {
	view := newView(core.LinkInline)

	token, err := url.PathUnescape(segment)
	if err != nil {
		logrus.WithField("error", err).Warn("Inline share link is not valid percent-encoding")
		view.settle(StateInvalidLink, nil, &codec.DecodeError{Stage: codec.StageAlphabet, Err: err})
		return view
	}

	payload, err := codec.Decode(token)
	if err != nil {
		logrus.WithField("error", err).Warn("Failed to decode inline share payload")
		view.settle(StateInvalidLink, nil, err)
		return view
	}

	view.settle(StateRendered, &core.ShareableImage{
		URL:         payload.URL,
		Title:       payload.Title,
		Description: payload.Description,
	}, nil)
	return view
}
