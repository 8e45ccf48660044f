// Package codec converts inline share payloads to and from URL-safe tokens.
//
// A token is base64url (no padding) over the UTF-8 JSON object
// {"url":...,"title":...,"description":...,"ts":...}.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"imageshare-web/core"
	"io"
	"strings"
	"unicode/utf8"
)

var ErrInvalidToken = errors.New("invalid or corrupted share link")

// Stage names the validation step a token failed.
type Stage string

const (
	StageAlphabet  Stage = "alphabet"
	StageBinary    Stage = "binary"
	StageStructure Stage = "structure"
)

type DecodeError struct {
	Stage Stage
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrInvalidToken, e.Err}
}

func fail(stage Stage, format string, args ...any) error {
	return &DecodeError{Stage: stage, Err: fmt.Errorf(format, args...)}
}

var encoding = base64.RawURLEncoding

// Encode serializes p in canonical field order. It is deterministic and
// never fails: invalid UTF-8 is replaced before serialization.
func Encode(p core.InlinePayload) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a struct of strings and an int64 cannot fail.
	_ = enc.Encode(struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Timestamp   int64  `json:"ts"`
	}{
		URL:         strings.ToValidUTF8(p.URL, "\uFFFD"),
		Title:       strings.ToValidUTF8(p.Title, "\uFFFD"),
		Description: strings.ToValidUTF8(p.Description, "\uFFFD"),
		Timestamp:   p.Timestamp,
	})
	return encoding.EncodeToString(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Decode reverses Encode. Any failure is a *DecodeError wrapping ErrInvalidToken
// and the returned payload is then the zero value.
func Decode(token string) (core.InlinePayload, error) {
	raw := strings.TrimRight(token, "=")
	if raw == "" {
		return core.InlinePayload{}, fail(StageAlphabet, "empty token")
	}
	for i := 0; i < len(raw); i++ {
		if !isURLSafe(raw[i]) {
			return core.InlinePayload{}, fail(StageAlphabet, "illegal byte %q at offset %d", raw[i], i)
		}
	}

	data, err := encoding.DecodeString(raw)
	if err != nil {
		return core.InlinePayload{}, &DecodeError{Stage: StageBinary, Err: err}
	}
	if !utf8.Valid(data) {
		return core.InlinePayload{}, fail(StageBinary, "payload is not valid UTF-8")
	}

	p, err := parse(data)
	if err != nil {
		return core.InlinePayload{}, &DecodeError{Stage: StageStructure, Err: err}
	}
	return p, nil
}

func isURLSafe(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

func parse(data []byte) (core.InlinePayload, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&fields); err != nil {
		return core.InlinePayload{}, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if fields == nil {
		return core.InlinePayload{}, errors.New("payload is not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return core.InlinePayload{}, errors.New("trailing data after payload")
	}

	var p core.InlinePayload
	rawURL, ok := fields["url"]
	if !ok {
		return p, errors.New("missing url field")
	}
	if err := stringField(rawURL, &p.URL); err != nil {
		return core.InlinePayload{}, fmt.Errorf("url: %w", err)
	}
	if v, ok := fields["title"]; ok {
		if err := stringField(v, &p.Title); err != nil {
			return core.InlinePayload{}, fmt.Errorf("title: %w", err)
		}
	}
	if v, ok := fields["description"]; ok {
		if err := stringField(v, &p.Description); err != nil {
			return core.InlinePayload{}, fmt.Errorf("description: %w", err)
		}
	}

	ts, ok := fields["ts"]
	if !ok {
		ts, ok = fields["timestamp"]
	}
	if ok {
		if err := timestampField(ts, &p.Timestamp); err != nil {
			return core.InlinePayload{}, fmt.Errorf("timestamp: %w", err)
		}
	}
	return p, nil
}

func stringField(raw json.RawMessage, dst *string) error {
	if len(raw) == 0 || raw[0] != '"' {
		return errors.New("must be a string")
	}
	return json.Unmarshal(raw, dst)
}

func timestampField(raw json.RawMessage, dst *int64) error {
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return errors.New("must be a number")
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return errors.New("must be a number")
	}
	if i, err := n.Int64(); err == nil {
		*dst = i
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return errors.New("must be a number")
	}
	*dst = int64(f)
	return nil
}
