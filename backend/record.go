package backend

import (
	"bytes"
	"encoding/json"
	"imageshare-web/core"
	"strconv"
	"strings"
)

// record accepts the field spellings the backend has used for image records.
type record struct {
	ID          json.RawMessage `json:"id"`
	MongoID     json.RawMessage `json:"_id"`
	URL         string          `json:"url"`
	ImageURL    string          `json:"imageUrl"`
	Src         string          `json:"src"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Categories  json.RawMessage `json:"categories"`
	IsPublic    json.RawMessage `json:"isPublic"`
	ShareToken  string          `json:"shareToken"`
	Owner       json.RawMessage `json:"owner"`
	OwnerName   string          `json:"ownerName"`
	CreatedAt   string          `json:"createdAt"`
}

func (r record) toImage() *core.ShareableImage {
	return &core.ShareableImage{
		ID:          firstNonEmpty(scalar(r.MongoID), scalar(r.ID)),
		URL:         firstNonEmpty(r.ImageURL, r.URL, r.Src),
		Title:       r.Title,
		Description: r.Description,
		Categories:  categories(r.Categories),
		IsPublic:    truthy(r.IsPublic),
		ShareToken:  r.ShareToken,
		Owner:       firstNonEmpty(r.OwnerName, scalar(r.Owner)),
		CreatedAt:   r.CreatedAt,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// scalar renders a JSON string or number as a string; anything else is "".
func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if raw[0] != '"' && json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func categories(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, c := range list {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
		return out
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		for _, c := range strings.Split(joined, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

func truthy(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	b, _ = strconv.ParseBool(scalar(raw))
	return b
}
