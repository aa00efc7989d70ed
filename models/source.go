package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SlideSource is one client-submitted slide description. It is either an
// UploadedFile or a RetainedURL; ParseSlideSources never yields anything else.
type SlideSource interface {
	slideSource()
}

// UploadedFile refers to the binary at FileIndex in the files accompanying
// the submission.
type UploadedFile struct {
	FileIndex int
	Kind      Kind
	Duration  *int
	Animation string
}

// RetainedURL carries over a slide that already has a resolvable location.
type RetainedURL struct {
	URL          string
	AssetID      string
	ResourceKind Kind
	Kind         Kind
	Duration     *int
	Animation    string
}

func (UploadedFile) slideSource() {}
func (RetainedURL) slideSource()  {}

// Slide converts a retained entry into a persisted slide, applying the kind
// and duration defaults.
func (r RetainedURL) Slide() Slide {
	kind := r.Kind
	if !kind.Valid() {
		kind = KindImage
	}
	resourceKind := r.ResourceKind
	if !resourceKind.Valid() {
		resourceKind = kind
	}
	return Slide{
		Kind:         kind,
		URL:          r.URL,
		AssetID:      r.AssetID,
		ResourceKind: resourceKind,
		Duration:     ResolveDuration(kind, r.Duration),
		Animation:    r.Animation,
	}
}

type rawSource struct {
	FileIndex    *json.Number  `json:"fileIndex"`
	Kind         string        `json:"kind"`
	Type         string        `json:"type"`
	URL          string        `json:"url"`
	AssetID      string        `json:"externalAssetId"`
	PublicID     string        `json:"public_id"`
	ResourceKind string        `json:"resourceKind"`
	ResourceType string        `json:"resource_type"`
	Duration     lenientMillis `json:"duration"`
	Animation    *string       `json:"animation"`
}

// lenientMillis accepts a number or numeric string; anything else decodes
// to "unset" so the duration default applies.
type lenientMillis struct {
	v *int
}

func (m *lenientMillis) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > 1<<31-1 {
		return nil
	}
	v := int(f)
	m.v = &v
	return nil
}

// ParseSlideSources decodes the JSON slides payload of a write submission.
// An empty payload yields no sources. Malformed JSON, an unknown kind, or an
// entry that matches neither variant is a *ValidationError.
func ParseSlideSources(payload string) ([]SlideSource, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}

	var raw []rawSource
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &ValidationError{Field: "slides", Reason: "invalid slides format"}
	}

	sources := make([]SlideSource, 0, len(raw))
	for i, r := range raw {
		src, err := r.toSource()
		if err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("slides[%d]", i), Reason: err.Error()}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (r rawSource) toSource() (SlideSource, error) {
	kind, err := parseKind(firstNonEmpty(r.Kind, r.Type))
	if err != nil {
		return nil, err
	}
	animation := ""
	if r.Animation != nil {
		animation = *r.Animation
	}
	url := strings.TrimSpace(r.URL)

	switch {
	case r.FileIndex != nil && url != "":
		return nil, fmt.Errorf("entry has both fileIndex and url")
	case r.FileIndex != nil:
		idx, err := r.FileIndex.Int64()
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("fileIndex must be a non-negative integer")
		}
		return UploadedFile{
			FileIndex: int(idx),
			Kind:      kind,
			Duration:  r.Duration.v,
			Animation: animation,
		}, nil
	case url != "":
		resourceKind, err := parseKind(firstNonEmpty(r.ResourceKind, r.ResourceType))
		if err != nil {
			return nil, err
		}
		return RetainedURL{
			URL:          url,
			AssetID:      firstNonEmpty(r.AssetID, r.PublicID),
			ResourceKind: resourceKind,
			Kind:         kind,
			Duration:     r.Duration.v,
			Animation:    animation,
		}, nil
	default:
		return nil, fmt.Errorf("entry needs either fileIndex or url")
	}
}

func parseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown kind %q", s)
	}
	return k, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
