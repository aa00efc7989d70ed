package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultCategory = "General"
	// DefaultDuration is the display time in milliseconds of an image slide
	// that carries no duration of its own.
	DefaultDuration = 5000
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// KindFromMediaType classifies an uploaded binary by its declared media type.
func KindFromMediaType(mediaType string) Kind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "video") {
		return KindVideo
	}
	return KindImage
}

type Story struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Category  string             `bson:"category" json:"category"`
	Slides    []Slide            `bson:"slides" json:"slides"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	Version   int64              `bson:"version" json:"version"`
}

type Slide struct {
	Kind         Kind   `bson:"kind" json:"kind"`
	URL          string `bson:"url" json:"url"`
	AssetID      string `bson:"asset_id,omitempty" json:"externalAssetId,omitempty"`
	ResourceKind Kind   `bson:"resource_kind,omitempty" json:"resourceKind,omitempty"`
	Duration     *int   `bson:"duration,omitempty" json:"duration,omitempty"`
	Animation    string `bson:"animation,omitempty" json:"animation,omitempty"`
}

// Owned reports whether the slide's media was uploaded by this system and
// must be released when the slide goes away.
func (s Slide) Owned() bool {
	return s.AssetID != ""
}

// AssetKind is the kind the media object was stored under.
func (s Slide) AssetKind() Kind {
	if s.ResourceKind.Valid() {
		return s.ResourceKind
	}
	if s.Kind == KindVideo {
		return KindVideo
	}
	return KindImage
}

// DisplayDuration is the auto-advance delay for image slides.
func (s Slide) DisplayDuration() time.Duration {
	if s.Duration == nil || *s.Duration <= 0 {
		return DefaultDuration * time.Millisecond
	}
	return time.Duration(*s.Duration) * time.Millisecond
}

// ResolveDuration applies the duration rules for a slide of the given kind:
// video slides never carry one, image slides fall back to DefaultDuration.
func ResolveDuration(kind Kind, d *int) *int {
	if kind == KindVideo {
		return nil
	}
	if d == nil || *d <= 0 {
		v := DefaultDuration
		return &v
	}
	v := *d
	return &v
}

// CloneSlides returns a deep copy of the slide sequence.
func CloneSlides(slides []Slide) []Slide {
	if slides == nil {
		return nil
	}
	out := make([]Slide, len(slides))
	for i, s := range slides {
		if s.Duration != nil {
			d := *s.Duration
			s.Duration = &d
		}
		out[i] = s
	}
	return out
}

func (s Story) Clone() Story {
	s.Slides = CloneSlides(s.Slides)
	return s
}

// ParseStoryID parses a story id. Hex digits are accepted in either case,
// so anything keyed by id must use the returned value's Hex form.
func ParseStoryID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
